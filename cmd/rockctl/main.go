package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for the different failure modes.
const (
	ExitSuccess = 0
	ExitInvalid = 1 // input rejected by validation
	ExitError   = 2 // configuration or runtime error
)

// ValidationError reports input that was read but did not pass checks.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d validation problem(s)", len(e.Problems))
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var invalid *ValidationError
		if errors.As(err, &invalid) {
			os.Exit(ExitInvalid)
		}
		os.Exit(ExitError)
	}
}
