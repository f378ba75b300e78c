// Command bagu maintains the interview question bank.
//
// It parses the Feishu and Yuque markdown exports, deduplicates them and
// writes the result to the question store. rebuild replaces the whole bank
// in one transaction; import merges a single directory into it.
//
// Usage:
//
//	go run ./cmd/bagu [--config configs/development.yaml] rebuild --feishu-dir ... --yuque-dir ...
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	apperrors "github.com/bagu-prep/questionbank/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}
