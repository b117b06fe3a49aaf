// Package bioframe scans a ring buffer for complete FASTQ or FASTA
// records and hands each one to a caller-supplied sink.
//
// A Framer starts in the Undecided format and commits to Fastq or Fasta
// on the first buffered byte ('@' or '>' respectively); once committed it
// never dispatches on format again. This is the tagged-variant
// replacement for a function-pointer-based framer: Format is the tag, and
// headerRead is the one bit of framing state the Fasta variant carries
// (alongside a resume offset and a count of lines not yet delivered).
package bioframe

// Format identifies which framing rule a Framer has committed to.
type Format uint8

const (
	// Undecided means the framer has not yet seen its first byte.
	Undecided Format = iota
	// Fastq frames four-line '@'-leader records.
	Fastq
	// Fasta frames '>'-leader records that end at the next line-leading '>'.
	Fasta
)

// Diagnostic describes a non-fatal framing anomaly.
type Diagnostic struct {
	// Kind is "unaligned-fastq", the only non-fatal diagnostic this
	// package currently emits.
	Kind   string
	LineNo uint64
}

// SinkFunc is invoked once per complete record with its length in bytes.
// It must perform (or attempt) the transfer out of the source buffer and
// report whether it succeeded. Returning false stops framing for this
// call without advancing the source buffer past the undelivered record.
type SinkFunc func(length int) bool

// Framer holds the per-buffer parsing state for one ring buffer. Each
// Buffer in this codebase has exactly one owning Framer.
type Framer struct {
	format     Format
	headerRead bool
	scanned    int // FASTA only: bytes from front already scanned without finding a boundary
	lineNo     uint64
	diag       func(Diagnostic)

	// FASTA only: newlines scanned in the record not yet delivered.
	pending uint64
}

// New returns a Framer in the Undecided format. diag, if non-nil, is
// called for every non-fatal diagnostic raised while scanning; it may be
// nil to discard diagnostics.
func New(diag func(Diagnostic)) *Framer {
	if diag == nil {
		diag = func(Diagnostic) {}
	}
	return &Framer{diag: diag}
}

// Format reports which framing rule this Framer has committed to.
func (f *Framer) Format() Format {
	return f.format
}

// LineNo reports the number of newline-terminated lines framed so far.
func (f *Framer) LineNo() uint64 {
	return f.lineNo
}

type buffer interface {
	Occupancy() int
	At(i int) byte
}

// Scan drains as many complete records as possible from src, calling
// sink once per record with its length. It returns ErrUnknownFormat if
// the format is still Undecided and the first buffered byte doesn't
// select one; any other return is nil, including the backpressure case
// where sink refused a record (framing simply stops, resumable on the
// next call).
func (f *Framer) Scan(src buffer, sink SinkFunc) error {
	if f.format == Undecided {
		if src.Occupancy() == 0 {
			return nil
		}
		switch src.At(0) {
		case '@':
			f.format = Fastq
		case '>':
			f.format = Fasta
		default:
			return ErrUnknownFormat
		}
	}
	switch f.format {
	case Fastq:
		f.scanFastq(src, sink)
	case Fasta:
		f.scanFasta(src, sink)
	}
	return nil
}

func (f *Framer) scanFastq(src buffer, sink SinkFunc) {
	for {
		n := src.Occupancy()
		lineInRecord := 0
		found := false
		for i := 0; i < n; i++ {
			if src.At(i) != '\n' {
				continue
			}
			lineInRecord++
			if lineInRecord != 4 {
				continue
			}
			length := i + 1
			if src.At(0) != '@' {
				f.diag(Diagnostic{Kind: "unaligned-fastq", LineNo: f.lineNo})
			}
			if !sink(length) {
				return
			}
			f.lineNo += 4
			found = true
			break
		}
		if !found {
			return
		}
	}
}

func (f *Framer) scanFasta(src buffer, sink SinkFunc) {
	for {
		n := src.Occupancy()
		if f.scanned > n {
			f.scanned = 0
			f.pending = 0
		}
		headerRead := f.headerRead
		ended := -1
		i := f.scanned
		for ; i < n; i++ {
			c := src.At(i)
			if headerRead && c == '>' {
				ended = i
				break
			}
			if c == '\n' {
				f.pending++
				headerRead = true
			} else {
				headerRead = false
			}
		}
		if ended < 0 {
			f.headerRead = headerRead
			f.scanned = n
			return
		}
		length := ended
		if !sink(length) {
			f.headerRead = headerRead
			f.scanned = ended
			return
		}
		f.headerRead = false
		f.scanned = 0
		f.lineNo += f.pending
		f.pending = 0
	}
}
