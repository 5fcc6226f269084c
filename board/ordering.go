package board

import "board-api/domain"

// NextOrder computes the append position for a new task in the given
// column: max(order)+1 over the column's tasks, or 0 when the column is
// empty. Two concurrent creators may compute the same value; the
// duplicates simply sort adjacently, which is an accepted race.
func NextOrder(tasks []domain.Task, column domain.Column) int {
	next := 0
	found := false
	for _, t := range tasks {
		if t.ColumnID != column {
			continue
		}
		if !found || t.Order+1 > next {
			next = t.Order + 1
		}
		found = true
	}
	if !found {
		return 0
	}
	return next
}

// ApplyMove sets the task's column and order verbatim. Sibling tasks
// keep their order values; order is a sort key, so no reindex happens
// on a move.
func ApplyMove(t *domain.Task, column domain.Column, order int) {
	t.ColumnID = column
	t.Order = order
}
