package bioframe

import "errors"

var (
	// ErrUnknownFormat is returned when the first buffered byte of a
	// format-undecided framer is neither '@' nor '>'.
	ErrUnknownFormat = errors.New("bioframe: unknown input format")

	// ErrInternalConsistency is a defensive sentinel kept for API parity
	// with the scanner invariant it would have guarded in a pointer-based
	// implementation. Scan locates record boundaries purely through
	// Buffer.At, which is always expressed relative to the buffer's own
	// front, so there is no independent cursor that can drift out of
	// sync with it; this error is never returned by this package.
	ErrInternalConsistency = errors.New("bioframe: scanner state disagrees with buffer")
)
