package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// A canceled context is an orderly interrupt, not a failure worth
	// printing.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "csvwatch: %v\n", err)
	}
	os.Exit(1)
}
