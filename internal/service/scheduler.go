package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RussellLuo/timingwheel"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
)

const (
	defaultSchedulerTick    = 100 * time.Millisecond
	defaultSchedulerWheel   = 64
	defaultSchedulerWorkers = 64
	timerJobTimeout         = 30 * time.Second
)

// roundDriver is the slice of the engine the scheduler calls back into.
type roundDriver interface {
	AutoPlay(ctx context.Context, gameID string, botsOnly bool) error
	AdvanceRound(ctx context.Context, gameID, chooserGUID string, roundIndex int) error
	KickForTimeout(ctx context.Context, gameID, guid string) error
}

var (
	_ roundDriver = (*GameService)(nil)
	_ Timers      = (*Scheduler)(nil)
)

// SchedulerConfig holds the delays used by the scheduler.
type SchedulerConfig struct {
	RoundTimeoutGrace time.Duration
	AutoAdvanceDelay  time.Duration
	IdleKickDelay     time.Duration
	Tick              time.Duration
	Workers           int
}

// timer is one armed timer. gen identifies the arming; a callback whose gen
// no longer matches was superseded and does nothing.
type timer struct {
	t   *timingwheel.Timer
	gen uint64
}

// Scheduler owns every per-game timer in this process: round timeouts,
// auto-advance and idle kicks. At most one timer of each kind exists per
// game (per player for idle kicks); arming a kind replaces the previous one.
type Scheduler struct {
	driver roundDriver
	cfg    SchedulerConfig
	wheel  *timingwheel.TimingWheel
	pool   *ants.Pool

	mu     sync.Mutex
	gen    uint64
	timers map[string]map[string]*timer // gameID -> kind -> timer
}

// NewScheduler creates and starts a Scheduler.
func NewScheduler(driver roundDriver, cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Tick <= 0 {
		cfg.Tick = defaultSchedulerTick
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultSchedulerWorkers
	}
	pool, err := ants.NewPool(cfg.Workers, ants.WithPanicHandler(func(p any) {
		log.Error().Interface("panic", p).Msg("Scheduled job panicked")
	}))
	if err != nil {
		return nil, fmt.Errorf("scheduler pool: %w", err)
	}
	s := &Scheduler{
		driver: driver,
		cfg:    cfg,
		wheel:  timingwheel.NewTimingWheel(cfg.Tick, defaultSchedulerWheel),
		pool:   pool,
		timers: make(map[string]map[string]*timer),
	}
	s.wheel.Start()
	return s, nil
}

// Stop halts the wheel and releases the worker pool.
func (s *Scheduler) Stop() {
	s.wheel.Stop()
	s.pool.Release()
}

const (
	kindRound   = "round"
	kindAdvance = "advance"
)

func idleKind(guid string) string {
	return "idle:" + guid
}

// StartRound lets bots play immediately and, when timeout > 0, auto-plays
// for slow players after timeout plus a grace period.
func (s *Scheduler) StartRound(gameID string, timeout time.Duration) {
	s.cancel(gameID, kindRound)
	s.run(gameID, "bot auto-play", func(ctx context.Context) error {
		return s.driver.AutoPlay(ctx, gameID, true)
	})
	if timeout > 0 {
		s.arm(gameID, kindRound, timeout+s.cfg.RoundTimeoutGrace, "round timeout", func(ctx context.Context) error {
			return s.driver.AutoPlay(ctx, gameID, false)
		})
	}
}

// CancelRoundTimeout drops the game's round timeout.
func (s *Scheduler) CancelRoundTimeout(gameID string) {
	s.cancel(gameID, kindRound)
}

// ScheduleAdvance starts the next round on the chooser's behalf after the
// auto-advance delay. The job is a no-op once the game has left roundIndex,
// which covers timers armed by another process.
func (s *Scheduler) ScheduleAdvance(gameID, chooserGUID string, roundIndex int) {
	s.arm(gameID, kindAdvance, s.cfg.AutoAdvanceDelay, "auto-advance", func(ctx context.Context) error {
		return s.driver.AdvanceRound(ctx, gameID, chooserGUID, roundIndex)
	})
}

// CancelAdvance drops the game's auto-advance timer.
func (s *Scheduler) CancelAdvance(gameID string) {
	s.cancel(gameID, kindAdvance)
}

// Clear drops the game's round timeout and auto-advance timers.
func (s *Scheduler) Clear(gameID string) {
	s.cancel(gameID, kindRound)
	s.cancel(gameID, kindAdvance)
}

// ScheduleIdleKick times out a player who left the game's sockets.
func (s *Scheduler) ScheduleIdleKick(gameID, guid string) {
	s.arm(gameID, idleKind(guid), s.cfg.IdleKickDelay, "idle kick", func(ctx context.Context) error {
		return s.driver.KickForTimeout(ctx, gameID, guid)
	})
}

// CancelIdleKick drops a pending idle kick, typically because the player
// reconnected.
func (s *Scheduler) CancelIdleKick(gameID, guid string) {
	s.cancel(gameID, idleKind(guid))
}

// Pending reports whether a timer of the given kind is armed.
func (s *Scheduler) Pending(gameID, kind string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[gameID][kind]
	return ok
}

func (s *Scheduler) arm(gameID, kind string, d time.Duration, what string, job func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked(gameID, kind)
	s.gen++
	gen := s.gen
	if s.timers[gameID] == nil {
		s.timers[gameID] = make(map[string]*timer)
	}
	s.timers[gameID][kind] = &timer{
		gen: gen,
		t: s.wheel.AfterFunc(d, func() {
			if s.take(gameID, kind, gen) {
				s.run(gameID, what, job)
			}
		}),
	}
}

// take claims a fired timer, returning false when it was superseded.
func (s *Scheduler) take(gameID, kind string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timers[gameID][kind]
	if !ok || t.gen != gen {
		return false
	}
	s.deleteLocked(gameID, kind)
	return true
}

func (s *Scheduler) cancel(gameID, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked(gameID, kind)
}

func (s *Scheduler) stopLocked(gameID, kind string) {
	if t, ok := s.timers[gameID][kind]; ok {
		t.t.Stop()
		s.deleteLocked(gameID, kind)
	}
}

func (s *Scheduler) deleteLocked(gameID, kind string) {
	delete(s.timers[gameID], kind)
	if len(s.timers[gameID]) == 0 {
		delete(s.timers, gameID)
	}
}

// run executes a job on the worker pool. Failures are logged; one game's
// trouble never takes the scheduler down.
func (s *Scheduler) run(gameID, what string, job func(ctx context.Context) error) {
	err := s.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timerJobTimeout)
		defer cancel()
		if err := job(ctx); err != nil {
			log.Error().Err(err).Str("gameId", gameID).Str("job", what).Msg("Scheduled job failed")
		}
	})
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Str("job", what).Msg("Could not submit scheduled job")
	}
}
