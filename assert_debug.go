//go:build sampler_debug

package sampler

import "fmt"

// debugAssert panics, carrying a formatted message. Only compiled in when
// built with -tags sampler_debug.
func debugAssert(format string, args []any) {
	panic(fmt.Sprintf(format, args...))
}
