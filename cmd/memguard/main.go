package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/kula-app/memguard/internal/logging"
)

func main() {
	// Entry point: create a root context and run the application.
	ctx := context.Background()

	// Pass in the command line arguments, environment variables, and standard error
	// stream to the run function. This allows the run function to be tested in isolation
	// without relying on the command line or environment variables.
	if err := run(ctx, os.Args, os.Getenv, os.Stderr); err != nil {
		exitOnError(err, os.Stderr, os.Exit)
	}
}

// exitOnError prints err as a fatal message and exits with the code it carries
func exitOnError(err error, stderr io.Writer, exit func(code int), opts ...logging.PrinterOption) {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = &ExitError{Code: 1, Err: err}
	}

	if exitErr.Silent {
		exit(exitErr.Code)
		return
	}

	opts = append(opts, logging.WithExit(exit))
	newPrinter(stderr, exitErr.NoColor, opts...).Fatalf(exitErr.Code, "%s", err)
}
