package board

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"board-api/domain"
	"board-api/storage"
)

// Store abstracts the keyed record store for the board service.
type Store interface {
	InsertTask(ctx context.Context, t domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	UpdateTask(ctx context.Context, t domain.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context) ([]domain.Task, error)
	AppendMessage(ctx context.Context, m domain.Message) error
}

// Broadcaster fans accepted mutations out to connected viewers.
type Broadcaster interface {
	BroadcastTaskCreated(ctx context.Context, t domain.Task) error
	BroadcastTaskMoved(ctx context.Context, id string, column domain.Column, order int) error
	BroadcastTaskDeleted(ctx context.Context, id string) error
	BroadcastMessage(ctx context.Context, m domain.Message) error
}

// Service owns the task collection. Every mutation persists through the
// Store first and is reported to the Broadcaster before the operation
// returns. Broadcast failures are logged and do not fail the mutation;
// storage failures fail it and suppress the broadcast.
type Service struct {
	store Store
	hub   Broadcaster
	newID func() string
}

// NewService creates the board state service.
func NewService(store Store, hub Broadcaster) *Service {
	return &Service{store: store, hub: hub, newID: uuid.NewString}
}

// CreateTask validates and persists a new task, then broadcasts it.
func (s *Service) CreateTask(ctx context.Context, title string, column domain.Column, order int, color string, creator *domain.Identity) (domain.Task, error) {
	if strings.TrimSpace(title) == "" {
		return domain.Task{}, ValidationError{Reason: "title must not be empty"}
	}
	if !domain.ValidColumn(column) {
		return domain.Task{}, ValidationError{Reason: "unknown column " + string(column)}
	}
	task := domain.Task{
		ID:       s.newID(),
		Title:    title,
		ColumnID: column,
		Order:    order,
		Color:    color,
		Creator:  creator,
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		log.WithError(err).WithField("title", title).Error("task create write failed")
		return domain.Task{}, err
	}
	if err := s.hub.BroadcastTaskCreated(ctx, task); err != nil {
		log.WithError(err).WithField("task", task.ID).Error("task created broadcast failed")
	}
	return task, nil
}

// MoveTask sets the task's column and order verbatim. Negative orders
// and gaps are permitted; concurrent moves resolve last-write-wins.
func (s *Service) MoveTask(ctx context.Context, id string, column domain.Column, order int) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NotFoundError{Key: id}
		}
		log.WithError(err).WithField("task", id).Error("task move read failed")
		return err
	}
	ApplyMove(task, column, order)
	if err := s.store.UpdateTask(ctx, *task); err != nil {
		log.WithError(err).WithField("task", id).Error("task move write failed")
		return err
	}
	if err := s.hub.BroadcastTaskMoved(ctx, id, column, order); err != nil {
		log.WithError(err).WithField("task", id).Error("task moved broadcast failed")
	}
	return nil
}

// DeleteTask removes the task and broadcasts the removal.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NotFoundError{Key: id}
		}
		log.WithError(err).WithField("task", id).Error("task delete failed")
		return err
	}
	if err := s.hub.BroadcastTaskDeleted(ctx, id); err != nil {
		log.WithError(err).WithField("task", id).Error("task deleted broadcast failed")
	}
	return nil
}

// FindTaskByTitleFragment resolves a free-text fragment to a task by
// case-insensitive substring match. When several tasks match, the first
// one in record insertion order wins, so the earliest-created match is
// the deterministic result.
func (s *Service) FindTaskByTitleFragment(ctx context.Context, fragment string) (domain.Task, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	needle := strings.ToLower(fragment)
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), needle) {
			return t, nil
		}
	}
	return domain.Task{}, NotFoundError{Key: fragment}
}

// PostMessage appends a chat message and broadcasts it.
func (s *Service) PostMessage(ctx context.Context, text, sender, senderID, senderPhoto string) (domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Message{}, ValidationError{Reason: "text must not be empty"}
	}
	msg := domain.Message{
		ID:          s.newID(),
		Text:        text,
		Sender:      sender,
		SenderID:    senderID,
		SenderPhoto: senderPhoto,
		Timestamp:   nextTimestamp(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		log.WithError(err).Error("message write failed")
		return domain.Message{}, err
	}
	if err := s.hub.BroadcastMessage(ctx, msg); err != nil {
		log.WithError(err).WithField("message", msg.ID).Error("message broadcast failed")
	}
	return msg, nil
}

// NextOrder computes the append position for the given column from the
// current store contents.
func (s *Service) NextOrder(ctx context.Context, column domain.Column) (int, error) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		return 0, err
	}
	return NextOrder(tasks, column), nil
}
