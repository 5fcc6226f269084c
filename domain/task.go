package domain

// Column partitions the board. It is a static enum, not a stored entity.
type Column string

const (
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "in-progress"
	ColumnDone       Column = "done"
)

// Columns lists every valid column in display order.
func Columns() []Column {
	return []Column{ColumnTodo, ColumnInProgress, ColumnDone}
}

// ValidColumn reports whether c is a member of the closed column set.
func ValidColumn(c Column) bool {
	switch c {
	case ColumnTodo, ColumnInProgress, ColumnDone:
		return true
	}
	return false
}

// Identity is a display snapshot of a user reference. Tasks keep the
// snapshot rather than resolving the user on every read.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Photo string `json:"photo,omitempty"`
}

// Task represents a single board item. Order is a sort key within the
// task's column, not a slot index: gaps and duplicates are tolerated.
type Task struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	ColumnID Column    `json:"columnId"`
	Order    int       `json:"order"`
	Color    string    `json:"color,omitempty"`
	Creator  *Identity `json:"creator,omitempty"`
	Assignee *Identity `json:"assignee,omitempty"`
}
