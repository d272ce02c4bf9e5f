package question

import "strings"

const idPrefix = "QN="

// ParseID extracts the question id from a table's first cell.
// ok is false when the cell does not start with "QN=".
func ParseID(cell string) (id string, ok bool) {
	cell = strings.TrimSpace(cell)
	if !strings.HasPrefix(cell, idPrefix) {
		return "", false
	}
	return strings.TrimSpace(cell[len(idPrefix):]), true
}
