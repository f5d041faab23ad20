package template

import (
	_ "embed"
	"fmt"
	"sync"
)

//go:embed builtin/receptionist.yaml
var builtinYAML []byte

var (
	builtinOnce sync.Once
	builtin     *Template
	builtinErr  error
)

// Builtin returns a copy of the template shipped with this binary.
func Builtin() (*Template, error) {
	builtinOnce.Do(func() {
		builtin, builtinErr = Parse(builtinYAML)
		if builtinErr != nil {
			builtinErr = fmt.Errorf("built-in template is invalid: %w", builtinErr)
		}
	})
	if builtinErr != nil {
		return nil, builtinErr
	}
	return builtin.Clone(), nil
}

// MustBuiltin is Builtin for callers that cannot recover from a broken binary.
func MustBuiltin() *Template {
	t, err := Builtin()
	if err != nil {
		panic(err)
	}
	return t
}
