//go:build !cgo

package native

import "errors"

const MaxLibraryArity = 4

var errNoCgo = errors.New("shared libraries require a cgo build")

type sharedLibrary struct{}

func openLibrary(names []string) (*sharedLibrary, error) {
	return nil, errNoCgo
}

func (s *sharedLibrary) lookup(name string, arity int) (Func, bool) {
	return Func{}, false
}

func (s *sharedLibrary) close() error {
	return nil
}

func ReadSignatures(from, symbol string) (string, error) {
	return "", errNoCgo
}
