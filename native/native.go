// Package native supplies implementations for extern declarations when the
// program is interpreted: Go callables registered by the host, and symbols
// looked up in shared libraries such as libm.
package native

import (
	"fmt"
	"io"
	"os"
)

// DefaultLibraries are searched for extern symbols when none are configured.
var DefaultLibraries = []string{"libm.so.6", "libm.so", "libm.dylib"}

type Func struct {
	Arity int
	Call  func(args []float64) float64
}

type Registry struct {
	funcs     map[string]Func
	out       io.Writer
	libraries []string

	lib     *sharedLibrary
	libErr  error
	libOpen bool
}

type Option func(*Registry)

// WithOutput sets where putchard and printd write.
func WithOutput(w io.Writer) Option {
	return func(r *Registry) {
		r.out = w
	}
}

// WithLibraries replaces DefaultLibraries. An empty list disables shared
// library lookup.
func WithLibraries(libs ...string) Option {
	return func(r *Registry) {
		r.libraries = libs
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		funcs:     make(map[string]Func),
		out:       os.Stdout,
		libraries: DefaultLibraries,
	}
	for _, opt := range opts {
		opt(r)
	}
	addBuiltins(r)
	return r
}

func (r *Registry) Register(name string, arity int, fn func(args []float64) float64) {
	r.funcs[name] = Func{Arity: arity, Call: fn}
}

// Resolve finds an implementation for name. Registered functions win over
// library symbols. The arity of a library symbol is taken on trust.
func (r *Registry) Resolve(name string, arity int) (Func, bool) {
	if fn, ok := r.funcs[name]; ok {
		return fn, true
	}

	lib, err := r.library()
	if err != nil {
		return Func{}, false
	}
	fn, ok := lib.lookup(name, arity)
	if ok {
		r.funcs[name] = fn
	}
	return fn, ok
}

// LibraryError reports why shared libraries could not be opened, if they
// were needed.
func (r *Registry) LibraryError() error {
	return r.libErr
}

func (r *Registry) library() (*sharedLibrary, error) {
	if !r.libOpen {
		r.libOpen = true
		if len(r.libraries) == 0 {
			r.libErr = fmt.Errorf("no shared libraries configured")
		} else {
			r.lib, r.libErr = openLibrary(r.libraries)
		}
	}
	return r.lib, r.libErr
}

func (r *Registry) Close() error {
	if r.lib == nil {
		return nil
	}
	err := r.lib.close()
	r.lib = nil
	r.libOpen = false
	return err
}
