package mcprice

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Exit codes returned by Report.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Report prints a failed run's diagnostics and returns the process exit code.
// A build log goes to stdout in full; the coded message goes to stderr.
func Report(stdout, stderr io.Writer, err error) int {
	if err == nil {
		return ExitSuccess
	}

	var e *Error
	if !errors.As(err, &e) {
		fmt.Fprintf(stderr, "%v\n", err)
		return ExitFailure
	}

	if e.BuildLog != "" {
		fmt.Fprint(stdout, e.BuildLog)
		if !strings.HasSuffix(e.BuildLog, "\n") {
			fmt.Fprintln(stdout)
		}
	}
	if e.Notice != "" {
		fmt.Fprintln(stdout, e.Notice)
	}

	fmt.Fprintf(stderr, "%s [%s]\n", e.Error(), e.Code)
	return ExitFailure
}

// FormatPrice renders the final estimate line.
func FormatPrice(avg float64) string {
	return fmt.Sprintf("Simulated theoretical price of option is %.6g.", avg)
}
