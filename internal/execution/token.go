package execution

import (
	"fmt"
	"reflect"
)

// Token is the capability used to retrieve a plugin's per-invocation state.
// S is the type the caller wants to view the state as; the name selects the
// plugin.
type Token[S any] struct {
	name string
}

// NewToken creates a token for the plugin registered under name.
func NewToken[S any](name string) Token[S] {
	return Token[S]{name: name}
}

// Name returns the plugin name the token addresses.
func (t Token[S]) Name() string {
	return t.name
}

func (t Token[S]) String() string {
	return fmt.Sprintf("%s[%s]", t.name, typeName[S]())
}

func typeName[S any]() string {
	return reflect.TypeFor[S]().String()
}
