package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"board-api/domain"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	taskKeyPrefix = "task:"
	taskIndexKey  = "tasks:index"
	messagesKey   = "messages"
)

// Storage is the keyed record store for tasks and chat messages. Tasks
// are JSON values keyed by id with a list index preserving insertion
// order; messages live in a sorted set scored by timestamp.
type Storage struct {
	redis *redis.Client
}

// New creates a Storage backed by the given Redis client.
func New(client *redis.Client) *Storage {
	if client == nil {
		panic("storage.New: redis client is nil")
	}
	return &Storage{redis: client}
}

func taskKey(id string) string { return taskKeyPrefix + id }

// InsertTask persists a new task and appends its id to the insertion
// order index.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, taskKey(t.ID), data, 0)
		pipe.RPush(ctx, taskIndexKey, t.ID)
		return nil
	})
	return err
}

// GetTask loads a task by id. Returns ErrNotFound when absent.
func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	data, err := s.redis.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var t domain.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask overwrites an existing task record. The last write wins;
// concurrent updates are not serialized here.
func (s *Storage) UpdateTask(ctx context.Context, t domain.Task) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, taskKey(t.ID), data, 0).Err()
}

// DeleteTask removes a task record and its index entry. Returns
// ErrNotFound when the record was already gone.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	cmds, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, taskKey(id))
		pipe.LRem(ctx, taskIndexKey, 1, id)
		return nil
	})
	if err != nil {
		return err
	}
	if del, ok := cmds[0].(*redis.IntCmd); ok && del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTasks returns all tasks in record insertion order. Callers that
// need display order sort by the order field themselves.
func (s *Storage) ListTasks(ctx context.Context) ([]domain.Task, error) {
	ids, err := s.redis.LRange(ctx, taskIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(ids))
	if len(ids) == 0 {
		return tasks, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = taskKey(id)
	}
	values, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a record: a delete raced the scan.
			continue
		}
		var t domain.Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// AppendMessage persists a chat message. Messages are never updated or
// deleted by the board core.
func (s *Storage) AppendMessage(ctx context.Context, m domain.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.redis.ZAdd(ctx, messagesKey, redis.Z{
		Score:  float64(m.Timestamp),
		Member: data,
	}).Err()
}

// ListMessages returns all messages ordered by timestamp ascending.
func (s *Storage) ListMessages(ctx context.Context) ([]domain.Message, error) {
	values, err := s.redis.ZRange(ctx, messagesKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(values))
	for _, v := range values {
		var m domain.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
