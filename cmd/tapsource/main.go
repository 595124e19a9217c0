// Command tapsource resolves a test-output source and streams its protocol
// lines to stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintln(os.Stderr, "tapsource:", exitErr.Err)
			}
			os.Exit(int(exitErr.Code))
		}
		fmt.Fprintln(os.Stderr, "tapsource:", err)
		os.Exit(1)
	}
}
