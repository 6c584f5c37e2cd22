package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/partycards/internal/model"
)

// Channel names shared by every server process.
const (
	GamesChannel    = "games"
	ChatChannel     = "chat"
	PresenceChannel = "presence"
)

// Handler receives raw payloads from the shared channels.
type Handler interface {
	HandleGame(data []byte)
	HandleChat(data []byte)
	HandlePresence(data []byte)
}

// PublishGame publishes a committed game projection on the games channel.
func (c *Client) PublishGame(ctx context.Context, payload *model.GamePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal game payload: %w", err)
	}
	if err := c.rdb.Publish(ctx, GamesChannel, data).Err(); err != nil {
		return fmt.Errorf("publish game: %w", err)
	}
	return nil
}

// PublishChat publishes a chat message on the chat channel.
func (c *Client) PublishChat(ctx context.Context, payload *model.ChatPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal chat payload: %w", err)
	}
	if err := c.rdb.Publish(ctx, ChatChannel, data).Err(); err != nil {
		return fmt.Errorf("publish chat: %w", err)
	}
	return nil
}

// PublishPresence tells every process that a player reconnected to a game.
func (c *Client) PublishPresence(ctx context.Context, payload *model.PresencePayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal presence payload: %w", err)
	}
	if err := c.rdb.Publish(ctx, PresenceChannel, data).Err(); err != nil {
		return fmt.Errorf("publish presence: %w", err)
	}
	return nil
}

// Listen subscribes to the shared channels and dispatches every message to h
// until ctx is cancelled. It returns once the subscription is confirmed
// failed, or when the context ends.
func (c *Client) Listen(ctx context.Context, h Handler) error {
	channels := []string{GamesChannel, ChatChannel, PresenceChannel}
	pubsub := c.rdb.Subscribe(ctx, channels...)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	log.Info().Strs("channels", channels).Msg("Pub/sub listener started")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Pub/sub listener stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			switch msg.Channel {
			case GamesChannel:
				h.HandleGame([]byte(msg.Payload))
			case ChatChannel:
				h.HandleChat([]byte(msg.Payload))
			case PresenceChannel:
				h.HandlePresence([]byte(msg.Payload))
			}
		}
	}
}
