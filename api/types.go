package api

import (
	"context"

	"board-api/board"
	"board-api/bridge"
	"board-api/domain"
)

const postBodyMaxSize = 64 * 1024 // 64 KiB

// Storage abstracts the snapshot reads served at connect time.
type Storage interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListMessages(ctx context.Context) ([]domain.Message, error)
}

// Bus accepts typed mutation intents from the structured UI channel.
type Bus interface {
	Submit(ctx context.Context, m board.Mutation) (board.Result, error)
}

// Streamer provides live event subscriptions for viewer and admin
// sessions.
type Streamer interface {
	Subscribe(ctx context.Context) (<-chan domain.Event, func(), error)
	SubscribeAdmin(ctx context.Context) (<-chan domain.Event, func(), error)
}

// PairingSource exposes the external channel's current pairing state so
// a newly connected admin session can replay it.
type PairingSource interface {
	State() (bridge.PairingStatus, string)
}

// Authenticator guards the admin stream.
type Authenticator interface {
	Authenticate(authHeader string) error
}
