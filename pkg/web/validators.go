package web

import (
	"fmt"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest int64) bool

func newComparisonValidator(valueInClosure int64, compareFn func(argValue, closedValue int64) bool) ParamValidator {
	return func(argValue int64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// Gte returns a ParamValidator that checks if the argument is greater than or equal to the value captured in the closure.
func Gte(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue >= closedValue
	})
}

// Gt returns a ParamValidator that checks if the argument is greater than the value captured in the closure.
func Gt(valToCompareAgainst int64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue int64) bool {
		return argValue > closedValue
	})
}

// OptionalQueryInt reads an optional integer query parameter.
// present is false when the parameter is missing or empty; err is set when it
// is present but not an int32 or rejected by pValidator.
func OptionalQueryInt(r *http.Request, key string, pValidator ParamValidator) (value int32, present bool, err error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, false, nil
	}
	intValue, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || !pValidator(intValue) {
		return 0, true, fmt.Errorf("invalid %s number: %s", key, raw)
	}
	return int32(intValue), true, nil
}
