package mcprice

import (
	"fmt"

	"github.com/cwbudde/algo-mcprice/accel"
)

// check converts a non-nil status into a coded *Error.
func check(status error, code Code, format string, args ...any) error {
	if status == nil {
		return nil
	}
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Status: status}
}

// checkAllocation fails with CodeAllocationFailed when mem is empty.
func checkAllocation(mem []byte, format string, args ...any) error {
	if len(mem) > 0 {
		return nil
	}
	return &Error{Code: CodeAllocationFailed, Msg: fmt.Sprintf(format, args...), Status: accel.ErrOutOfHostMemory}
}
