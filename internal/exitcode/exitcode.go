package exitcode

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/apidrift/internal/errors"
)

// Exit codes returned by apidrift.
const (
	Success       = 0
	GeneralError  = 1
	UsageError    = 2
	InputError    = 3
	DriftDetected = 4
	Interrupted   = 130
)

// byCategory maps an error code prefix to its exit code. Categories not
// listed, STORAGE among them, exit with GeneralError.
var byCategory = map[string]int{
	"USAGE":   UsageError,
	"TRAFFIC": InputError,
	"SPEC":    InputError,
	"CONFIG":  InputError,
	"DRIFT":   DriftDetected,
}

// Entry documents one exit code.
type Entry struct {
	Code        int
	Description string
}

var table = []Entry{
	{Success, "Success, including runs that report findings"},
	{GeneralError, "Unexpected failure, including storage errors"},
	{UsageError, "Invalid flags or arguments"},
	{InputError, "Invalid traffic, contract, or configuration input"},
	{DriftDetected, "Findings reported and --fail-on-findings set"},
	{Interrupted, "Interrupted by a signal"},
}

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with the code DetermineExitCode picks for err.
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode maps err to an exit code through the category of the
// first coded error in its chain.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}
	if stderrors.Is(err, context.Canceled) {
		return Interrupted
	}

	code, ok := errors.CodeOf(err)
	if !ok {
		return GeneralError
	}
	if exit, ok := byCategory[code.Category()]; ok {
		return exit
	}
	return GeneralError
}

// Describe returns the documented meaning of code.
func Describe(code int) string {
	for _, e := range table {
		if e.Code == code {
			return e.Description
		}
	}
	return "Unknown exit code"
}

// HelpText renders the exit code table for command help.
func HelpText() string {
	var b strings.Builder
	b.WriteString("Exit codes:\n")
	for _, e := range table {
		fmt.Fprintf(&b, "  %-4d %s\n", e.Code, e.Description)
	}
	return b.String()
}
