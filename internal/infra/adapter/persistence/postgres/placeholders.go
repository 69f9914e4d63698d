package postgres

import (
	"strconv"
	"strings"
)

// inClause returns "$start, $start+1, ..." for n values and the args as []any.
func inClause(start int, ids []int64) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$")
		b.WriteString(strconv.Itoa(start + i))
		args = append(args, id)
	}
	return b.String(), args
}
