package board

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"board-api/domain"
)

// MutationKind discriminates the typed intents carried on the board's
// internal command bus.
type MutationKind int

const (
	MutationCreate MutationKind = iota
	MutationMove
	MutationDelete
	MutationPostMessage
)

// Mutation is a typed board-mutation intent. Both the structured UI
// channel and the external message channel produce these, so the
// service never knows which channel originated a request.
type Mutation struct {
	Kind MutationKind

	// Create fields.
	Title   string
	Color   string
	Creator *domain.Identity

	// Create and move fields.
	ColumnID domain.Column
	Order    int

	// Move and delete fields.
	ID string

	// Message fields.
	Text        string
	Sender      string
	SenderID    string
	SenderPhoto string
}

// Result carries the outcome of an accepted mutation back to the
// producing channel.
type Result struct {
	Task    *domain.Task
	Message *domain.Message
}

type job struct {
	ctx  context.Context
	m    Mutation
	done chan outcome
}

type outcome struct {
	res Result
	err error
}

// Dispatcher is the command bus between mutation producers and the
// board state service. Jobs are handed to worker goroutines through a
// buffered channel; when the buffer is saturated past a short handoff
// window the caller processes the mutation inline instead of failing.
type Dispatcher struct {
	svc            *Service
	jobs           chan job
	handoffTimeout time.Duration
	wg             sync.WaitGroup

	closeOnce sync.Once
}

// NewDispatcher starts worker goroutines consuming the mutation bus.
func NewDispatcher(svc *Service, workers, buffer int, handoffTimeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		svc:            svc,
		jobs:           make(chan job, buffer),
		handoffTimeout: handoffTimeout,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	log.WithFields(log.Fields{"workers": workers, "buffer": buffer, "handoff": handoffTimeout}).
		Info("mutation dispatcher started")
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		res, err := d.apply(j.ctx, j.m)
		j.done <- outcome{res: res, err: err}
	}
}

// Submit places a mutation on the bus and waits for its outcome. When
// the bus is saturated the mutation is applied inline so no accepted
// intent is ever dropped.
func (d *Dispatcher) Submit(ctx context.Context, m Mutation) (Result, error) {
	j := job{ctx: ctx, m: m, done: make(chan outcome, 1)}
	if !d.trySend(j) {
		log.Warn("mutation bus saturated; processing inline")
		return d.apply(ctx, m)
	}
	select {
	case o := <-j.done:
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (d *Dispatcher) trySend(j job) bool {
	select {
	case d.jobs <- j:
		return true
	default:
	}
	if d.handoffTimeout <= 0 {
		return false
	}
	timer := time.NewTimer(d.handoffTimeout)
	defer timer.Stop()
	select {
	case d.jobs <- j:
		return true
	case <-timer.C:
		return false
	}
}

func (d *Dispatcher) apply(ctx context.Context, m Mutation) (Result, error) {
	switch m.Kind {
	case MutationCreate:
		task, err := d.svc.CreateTask(ctx, m.Title, m.ColumnID, m.Order, m.Color, m.Creator)
		if err != nil {
			return Result{}, err
		}
		return Result{Task: &task}, nil
	case MutationMove:
		return Result{}, d.svc.MoveTask(ctx, m.ID, m.ColumnID, m.Order)
	case MutationDelete:
		return Result{}, d.svc.DeleteTask(ctx, m.ID)
	case MutationPostMessage:
		msg, err := d.svc.PostMessage(ctx, m.Text, m.Sender, m.SenderID, m.SenderPhoto)
		if err != nil {
			return Result{}, err
		}
		return Result{Message: &msg}, nil
	}
	return Result{}, ValidationError{Reason: "unknown mutation kind"}
}

// Close stops the workers after draining queued jobs. Intended for
// shutdown and tests.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.jobs)
	})
	d.wg.Wait()
}
