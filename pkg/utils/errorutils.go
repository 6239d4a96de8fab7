package utils

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ContainsAnyErrorSubstring reports whether the error chain contains any of the
// given substrings, compared case-insensitively.
func ContainsAnyErrorSubstring(err error, targets ...string) bool {
	for err != nil {
		message := strings.ToLower(err.Error())
		for _, target := range targets {
			if strings.Contains(message, strings.ToLower(target)) {
				return true
			}
		}
		err = errors.Unwrap(err)
	}
	return false
}

func WrapIfNotNil(err error, context ...string) error {
	if err == nil {
		return nil
	}

	callerName := "unknown"
	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			callerName = fn.Name()
		}
	}

	parts := make([]string, 0, 1+len(context))
	parts = append(parts, callerName)
	parts = append(parts, context...)

	return fmt.Errorf("%s: %w", strings.Join(parts, " - "), err)
}
