package native

import (
	"fmt"
	"math"
)

func addBuiltins(r *Registry) {
	funcs := []func(*Registry) (string, Func){
		addPutchard,
		addPrintd,
	}
	for _, fn := range funcs {
		k, v := fn(r)
		r.funcs[k] = v
	}
}

// toByte clamps x into 0..255, truncating toward zero. NaN is 0.
func toByte(x float64) byte {
	switch {
	case math.IsNaN(x), x <= 0:
		return 0
	case x >= math.MaxUint8:
		return math.MaxUint8
	}
	return byte(x)
}

// putchard writes its argument as a single byte.
func addPutchard(r *Registry) (string, Func) {
	return "putchard", Func{Arity: 1, Call: func(args []float64) float64 {
		r.out.Write([]byte{toByte(args[0])})
		return 0
	}}
}

func addPrintd(r *Registry) (string, Func) {
	return "printd", Func{Arity: 1, Call: func(args []float64) float64 {
		fmt.Fprintf(r.out, "%f\n", args[0])
		return 0
	}}
}
