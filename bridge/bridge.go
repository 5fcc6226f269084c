package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"board-api/board"
	"board-api/domain"
)

// ExternalCreatorID is the sentinel identity id attached to tasks
// created through the external channel.
const ExternalCreatorID = "external-channel"

// DefaultTaskColor is the display tag for channel-created tasks.
const DefaultTaskColor = "bg-green-500"

// Bus accepts typed mutation intents for the board state service.
type Bus interface {
	Submit(ctx context.Context, m board.Mutation) (board.Result, error)
}

// Directory exposes the read operations the bridge needs to resolve
// free-text commands against board state.
type Directory interface {
	FindTaskByTitleFragment(ctx context.Context, fragment string) (domain.Task, error)
	NextOrder(ctx context.Context, column domain.Column) (int, error)
}

// AdminPublisher narrow-casts pairing progress to admin sessions.
type AdminPublisher interface {
	PublishPairingQR(ctx context.Context, token string) error
	PublishPairingReady(ctx context.Context) error
}

// Bridge connects the external messaging channel to the board. Inbound
// messages are interpreted one at a time in arrival order; a successful
// mutation is never rolled back when the acknowledgment reply fails.
type Bridge struct {
	client  ChannelClient
	bus     Bus
	dir     Directory
	admin   AdminPublisher
	dedupe  Deduper
	pairing *PairingState
}

// New creates a Bridge. dedupe may be nil to disable redelivery
// filtering.
func New(client ChannelClient, bus Bus, dir Directory, admin AdminPublisher, dedupe Deduper) *Bridge {
	return &Bridge{
		client:  client,
		bus:     bus,
		dir:     dir,
		admin:   admin,
		dedupe:  dedupe,
		pairing: &PairingState{},
	}
}

// Pairing exposes the pairing state machine for admin-session replay.
func (b *Bridge) Pairing() *PairingState {
	return b.pairing
}

// Run consumes pairing events and inbound messages until ctx ends. A
// single loop keeps message handling strictly sequential.
func (b *Bridge) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-b.client.PairingEvents():
			if !ok {
				return
			}
			b.handlePairing(ctx, ev)
		case msg, ok := <-b.client.Messages():
			if !ok {
				return
			}
			b.handleMessage(ctx, msg)
		}
	}
}

func (b *Bridge) handlePairing(ctx context.Context, ev PairingEvent) {
	if ev.Ready {
		b.pairing.SetReady()
		if err := b.admin.PublishPairingReady(ctx); err != nil {
			log.WithError(err).Error("pairing ready publish failed")
		}
		log.Info("external channel linked")
		return
	}
	b.pairing.SetToken(ev.QR)
	if err := b.admin.PublishPairingQR(ctx, ev.QR); err != nil {
		log.WithError(err).Error("pairing token publish failed")
	}
}

func (b *Bridge) handleMessage(ctx context.Context, msg InboundMessage) {
	if b.dedupe != nil && msg.ID != "" {
		added, err := b.dedupe.Add(ctx, msg.ID)
		if err != nil {
			// Dedupe is advisory; the mutation matters more than the
			// occasional replay.
			log.WithError(err).WithField("message", msg.ID).Warn("dedupe check failed")
		} else if !added {
			log.WithField("message", msg.ID).Debug("skipping redelivered message")
			return
		}
	}

	cmd := domain.Interpret(msg.Text)
	switch cmd.Kind {
	case domain.KindCreate:
		b.handleCreate(ctx, msg, cmd)
	case domain.KindDelete:
		b.handleDelete(ctx, msg, cmd)
	case domain.KindMove:
		b.handleMove(ctx, msg, cmd)
	case domain.KindUnknownColumn:
		b.reply(ctx, msg, "I don't know that column. Try one of: "+strings.Join(domain.ColumnKeywordHints(), ", "))
	case domain.KindNoMatch:
		// Ordinary chatter; stay silent.
	}
}

func (b *Bridge) handleCreate(ctx context.Context, msg InboundMessage, cmd domain.Command) {
	order, err := b.dir.NextOrder(ctx, domain.ColumnTodo)
	if err != nil {
		log.WithError(err).Error("next order lookup failed")
		b.reply(ctx, msg, "Sorry, something went wrong. Please try again.")
		return
	}
	_, err = b.bus.Submit(ctx, board.Mutation{
		Kind:     board.MutationCreate,
		Title:    cmd.Title,
		ColumnID: domain.ColumnTodo,
		Order:    order,
		Color:    DefaultTaskColor,
		Creator:  &domain.Identity{ID: ExternalCreatorID, Name: msg.Sender},
	})
	if err != nil {
		log.WithError(err).WithField("title", cmd.Title).Error("channel create failed")
		b.reply(ctx, msg, "Sorry, something went wrong. Please try again.")
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Added %q to the board.", cmd.Title))
}

func (b *Bridge) handleDelete(ctx context.Context, msg InboundMessage, cmd domain.Command) {
	task, err := b.dir.FindTaskByTitleFragment(ctx, cmd.Fragment)
	if err != nil {
		b.replyLookupFailure(ctx, msg, cmd.Fragment, err)
		return
	}
	if _, err := b.bus.Submit(ctx, board.Mutation{Kind: board.MutationDelete, ID: task.ID}); err != nil {
		log.WithError(err).WithField("task", task.ID).Error("channel delete failed")
		b.reply(ctx, msg, "Sorry, something went wrong. Please try again.")
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Deleted %q.", task.Title))
}

func (b *Bridge) handleMove(ctx context.Context, msg InboundMessage, cmd domain.Command) {
	task, err := b.dir.FindTaskByTitleFragment(ctx, cmd.Fragment)
	if err != nil {
		b.replyLookupFailure(ctx, msg, cmd.Fragment, err)
		return
	}
	order, err := b.dir.NextOrder(ctx, cmd.TargetColumn)
	if err != nil {
		log.WithError(err).Error("next order lookup failed")
		b.reply(ctx, msg, "Sorry, something went wrong. Please try again.")
		return
	}
	_, err = b.bus.Submit(ctx, board.Mutation{
		Kind:     board.MutationMove,
		ID:       task.ID,
		ColumnID: cmd.TargetColumn,
		Order:    order,
	})
	if err != nil {
		log.WithError(err).WithField("task", task.ID).Error("channel move failed")
		b.reply(ctx, msg, "Sorry, something went wrong. Please try again.")
		return
	}
	b.reply(ctx, msg, fmt.Sprintf("Moved %q to %s.", task.Title, cmd.TargetColumn))
}

func (b *Bridge) replyLookupFailure(ctx context.Context, msg InboundMessage, fragment string, err error) {
	var nferr board.NotFoundError
	if errors.As(err, &nferr) {
		b.reply(ctx, msg, fmt.Sprintf("No task matching %q was found.", fragment))
		return
	}
	log.WithError(err).WithField("fragment", fragment).Error("task lookup failed")
	b.reply(ctx, msg, "Sorry, something went wrong. Please try again.")
}

// reply sends an acknowledgment back on the external channel. Failures
// are logged and never retried; the board mutation already happened.
func (b *Bridge) reply(ctx context.Context, msg InboundMessage, text string) {
	if err := b.client.Send(ctx, msg.ChatID, text); err != nil {
		log.WithError(err).WithField("chat", msg.ChatID).Error("reply delivery failed")
	}
}
