// harness - AWS search and ops task runner
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/oklog/run"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/opsharness/harness/internal/shell"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	os.Exit(execute(newApp(os.Stdout, os.Stderr), os.Args[1:]))
}

// execute runs the command line in args and returns the process exit code.
// SIGINT and SIGTERM cancel the command's context.
func execute(a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	g.Add(func() error {
		return root.ExecuteContext(ctx)
	}, func(error) {
		cancel()
	})
	err := g.Run()

	if cerr := a.close(context.Background()); cerr != nil {
		log.Warn().Err(cerr).Msg("shutdown")
	}

	return exitCode(a.stderr, err)
}

func exitCode(stderr io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, run.ErrSignal) {
		var sig *run.SignalError
		if errors.As(err, &sig) {
			log.Info().Str("signal", sig.Signal.String()).Msg("interrupted")
		}
		return 130
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return shell.ExitCode(err)
}
