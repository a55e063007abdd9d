package common

import "fmt"

// Assert panics with a formatted message when cond is false. It is reserved
// for structural-violation failures: internal invariants that a correct
// caller can never trip, not validation of caller input.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("storagecore: invariant violated: "+format, args...))
	}
}
