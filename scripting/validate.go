// Package scripting checks document-level JavaScript before it is stored in a
// PDF. Scripts are compiled, never executed.
package scripting

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ErrEmptyScript is returned for blank sources.
var ErrEmptyScript = errors.New("scripting: empty script")

// SyntaxError reports a script that does not compile.
type SyntaxError struct {
	Name string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("scripting: %s: %v", e.Name, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// Validate compiles source with goja in non-strict mode, the mode PDF viewers
// run document scripts in.
func Validate(name, source string) error {
	if isBlank(source) {
		return ErrEmptyScript
	}
	if _, err := goja.Compile(name, source, false); err != nil {
		return &SyntaxError{Name: name, Err: err}
	}
	return nil
}

func isBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r', '\f', '\v':
		default:
			return false
		}
	}
	return true
}
