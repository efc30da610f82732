package util

import "fmt"

// MaxPortableIdentifierLength is PostgreSQL's NAMEDATALEN - 1, the shortest identifier limit
// among the supported dialects.
const MaxPortableIdentifierLength = 63

// BuildConstraintName returns "<table>_<column>_<suffix>" cut to maxLength the way PostgreSQL
// names implicit constraints: a column longer than 28 characters is shortened first (down to 28),
// the table takes the rest of the overflow.
func BuildConstraintName(table, column, suffix string, maxLength int) string {
	name := fmt.Sprintf("%s_%s_%s", table, column, suffix)
	overflow := len(name) - maxLength
	if overflow <= 0 {
		return name
	}

	const minColumnLength = 28
	columnCut := 0
	if len(column) > minColumnLength {
		columnCut = min(overflow, len(column)-minColumnLength)
	}
	tableCut := min(overflow-columnCut, len(table))

	return fmt.Sprintf("%s_%s_%s", table[:len(table)-tableCut], column[:len(column)-columnCut], suffix)
}
