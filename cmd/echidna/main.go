// Command echidna fans a FASTQ/FASTA stream on stdin out to a pool of
// worker processes and merges their output back onto stdout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/hyeshik/echidna/bioframe"
	"github.com/hyeshik/echidna/internal/logcfg"
	"github.com/hyeshik/echidna/router"
	"github.com/hyeshik/echidna/supervisor"
)

type cliArgs struct {
	processes int
	command   string
}

var args cliArgs

var rootCmd = &cobra.Command{
	Use:   "echidna [program] [args...]",
	Short: "Fan out a FASTQ/FASTA stream to parallel worker processes",
	Args:  cobra.ArbitraryArgs,
	RunE: func(_ *cobra.Command, positional []string) error {
		return run(args, positional)
	},
}

func init() {
	rootCmd.Flags().IntVarP(&args.processes, "processes", "p", 4, "number of worker processes")
	rootCmd.Flags().StringVarP(&args.command, "command", "c", "", "run each worker as a shell command instead of exec'ing positional args")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "echidna: %v\n", err)
		os.Exit(1)
	}
}

func run(a cliArgs, positional []string) error {
	log, _, err := logcfg.Init(logcfg.Config{Level: zapcore.InfoLevel})
	if err != nil {
		return err
	}
	defer log.Sync()

	if a.processes < 1 {
		return fmt.Errorf("echidna: -p/--processes must be at least 1, got %d", a.processes)
	}
	spec := supervisor.Spec{Command: a.command, Args: positional}
	if spec.Command == "" && len(spec.Args) == 0 {
		return fmt.Errorf("echidna: no worker command given (pass one via -c or as positional arguments)")
	}

	diag := func(workerID int) func(bioframe.Diagnostic) {
		return func(d bioframe.Diagnostic) {
			log.Warnf("echidna: worker %d: %s at line %d", workerID, d.Kind, d.LineNo)
		}
	}

	handles, sup, err := supervisor.Spawn(a.processes, spec, diag, supervisor.WithLogger(log))
	if err != nil {
		return fmt.Errorf("echidna: %w", err)
	}

	r, err := router.New(
		int(os.Stdin.Fd()), int(os.Stdout.Fd()),
		handles, sup,
		router.WithLogger(log),
		router.WithDiagnostics(func(d router.Diagnostic) {
			log.Warnf("echidna: inlet: %s at line %d", d.Kind, d.LineNo)
		}),
	)
	if err != nil {
		return fmt.Errorf("echidna: %w", err)
	}

	if err := r.Run(); err != nil {
		return fmt.Errorf("echidna: %w", err)
	}
	return nil
}
