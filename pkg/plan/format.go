package plan

import (
	"fmt"
	"strconv"
)

// FormatValue stringifies an evaluated binding value for interpolation.
// Both backends (and generated code) use this one function, so "Count: 1"
// comes out identically whichever path produced it.
func FormatValue(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case bool:
		if n {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}
