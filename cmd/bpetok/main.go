package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
)

// Exit codes for different failure modes
const (
	ExitSuccess = 0 // Command completed
	ExitUsage   = 1 // Bad configuration or bad token input
	ExitError   = 2 // Missing/corrupt artifact or runtime error
)

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, bpe.ErrInvalidConfig),
		errors.Is(err, bpe.ErrUnknownTokenID),
		errors.Is(err, bpe.ErrInvalidTokenInput):
		return ExitUsage
	default:
		return ExitError
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
