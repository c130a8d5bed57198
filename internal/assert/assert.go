// Package assert panics on programmer errors found while wiring components.
package assert

import "fmt"

// NotNil panics when value is nil, what names the dependency in the message.
func NotNil(value any, what string) {
	if value == nil {
		panic(fmt.Sprintf("assert: %s must not be nil", what))
	}
}

// NotEmptyStr panics when str is empty, what names the field in the message.
func NotEmptyStr(str, what string) {
	if str == "" {
		panic(fmt.Sprintf("assert: %s must not be empty", what))
	}
}
