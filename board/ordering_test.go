package board

import (
	"testing"

	"board-api/domain"
)

func TestNextOrderEmptyColumn(t *testing.T) {
	if got := NextOrder(nil, domain.ColumnTodo); got != 0 {
		t.Fatalf("empty board: got %d, want 0", got)
	}
	tasks := []domain.Task{
		{ID: "t1", ColumnID: domain.ColumnDone, Order: 7},
	}
	if got := NextOrder(tasks, domain.ColumnTodo); got != 0 {
		t.Fatalf("empty column: got %d, want 0", got)
	}
}

func TestNextOrderAppendsAfterMax(t *testing.T) {
	tasks := []domain.Task{
		{ID: "t1", ColumnID: domain.ColumnTodo, Order: 0},
		{ID: "t2", ColumnID: domain.ColumnTodo, Order: 5},
		{ID: "t3", ColumnID: domain.ColumnTodo, Order: 2},
		{ID: "t4", ColumnID: domain.ColumnInProgress, Order: 9},
	}
	if got := NextOrder(tasks, domain.ColumnTodo); got != 6 {
		t.Fatalf("got %d, want 6", got)
	}
	if got := NextOrder(tasks, domain.ColumnInProgress); got != 10 {
		t.Fatalf("got %d, want 10", got)
	}
}

func TestNextOrderNegativeOrders(t *testing.T) {
	tasks := []domain.Task{
		{ID: "t1", ColumnID: domain.ColumnTodo, Order: -5},
		{ID: "t2", ColumnID: domain.ColumnTodo, Order: -9},
	}
	if got := NextOrder(tasks, domain.ColumnTodo); got != -4 {
		t.Fatalf("got %d, want -4", got)
	}
}

func TestApplyMoveVerbatim(t *testing.T) {
	task := domain.Task{ID: "t1", ColumnID: domain.ColumnTodo, Order: 2}
	ApplyMove(&task, domain.ColumnDone, -3)
	if task.ColumnID != domain.ColumnDone || task.Order != -3 {
		t.Fatalf("move not applied verbatim: %#v", task)
	}
}
