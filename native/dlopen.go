//go:build cgo

package native

/*
typedef double (*kfn0)(void);
typedef double (*kfn1)(double);
typedef double (*kfn2)(double, double);
typedef double (*kfn3)(double, double, double);
typedef double (*kfn4)(double, double, double, double);

static double call_double(void *fn, int n, double *a) {
	switch (n) {
	case 0: return ((kfn0)fn)();
	case 1: return ((kfn1)fn)(a[0]);
	case 2: return ((kfn2)fn)(a[0], a[1]);
	case 3: return ((kfn3)fn)(a[0], a[1], a[2]);
	case 4: return ((kfn4)fn)(a[0], a[1], a[2], a[3]);
	}
	return 0;
}
*/
import "C"

import (
	"unsafe"

	"github.com/coreos/pkg/dlopen"
)

// MaxLibraryArity is the largest parameter count a library symbol may take.
const MaxLibraryArity = 4

type sharedLibrary struct {
	handle *dlopen.LibHandle
}

func openLibrary(names []string) (*sharedLibrary, error) {
	handle, err := dlopen.GetHandle(names)
	if err != nil {
		return nil, err
	}
	return &sharedLibrary{handle: handle}, nil
}

func (s *sharedLibrary) lookup(name string, arity int) (Func, bool) {
	if arity > MaxLibraryArity {
		return Func{}, false
	}

	sym, err := s.handle.GetSymbolPointer(name)
	if err != nil {
		return Func{}, false
	}

	return Func{Arity: arity, Call: func(args []float64) float64 {
		var buf [MaxLibraryArity + 1]C.double
		for i, a := range args {
			buf[i] = C.double(a)
		}
		return float64(C.call_double(sym, C.int(len(args)), &buf[0]))
	}}, true
}

func (s *sharedLibrary) close() error {
	return s.handle.Close()
}

// ReadSignatures returns the signature table a compiled library carries in
// the named global.
func ReadSignatures(from, symbol string) (string, error) {
	handle, err := dlopen.GetHandle([]string{from})
	if err != nil {
		return "", err
	}
	defer handle.Close()

	sym, err := handle.GetSymbolPointer(symbol)
	if err != nil {
		return "", err
	}

	str := C.GoString((*C.char)(unsafe.Pointer(sym)))
	return str, nil
}
