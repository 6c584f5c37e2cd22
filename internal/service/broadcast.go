package service

import (
	"context"
	"time"

	"github.com/freeeve/partycards/internal/model"
)

// Timers is the scheduling the engine asks for after a commit. Implemented
// by Scheduler.
type Timers interface {
	// StartRound auto-plays bots now and, when timeout > 0, auto-plays slow
	// players once it expires.
	StartRound(gameID string, timeout time.Duration)
	CancelRoundTimeout(gameID string)
	// ScheduleAdvance moves the game past roundIndex on the chooser's
	// behalf after a fixed delay.
	ScheduleAdvance(gameID, chooserGUID string, roundIndex int)
	CancelAdvance(gameID string)
	// Clear drops every round timer of the game.
	Clear(gameID string)
}

// NoopPublisher is a no-op publisher for testing or single-process runs
// without Redis.
type NoopPublisher struct{}

func (NoopPublisher) PublishGame(context.Context, *model.GamePayload) error { return nil }
func (NoopPublisher) PublishChat(context.Context, *model.ChatPayload) error { return nil }

type noopTimers struct{}

func (noopTimers) StartRound(string, time.Duration)    {}
func (noopTimers) CancelRoundTimeout(string)           {}
func (noopTimers) ScheduleAdvance(string, string, int) {}
func (noopTimers) CancelAdvance(string)                {}
func (noopTimers) Clear(string)                        {}
