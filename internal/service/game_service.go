package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/freeeve/partycards/internal/logger"
	"github.com/freeeve/partycards/internal/model"
	"github.com/freeeve/partycards/internal/repository"
	"github.com/freeeve/partycards/pkg/cards"
)

const (
	maxCommitAttempts = 3
	maxIDAttempts     = 10
	publicPageSize    = 8
)

// errNoChange aborts a mutation without writing or publishing.
var errNoChange = errors.New("no change")

// IdentityValidator verifies a player's guid/secret pair.
type IdentityValidator interface {
	Validate(id model.Identity) error
}

// GameService is the game engine. Every command validates the caller,
// applies its change to a fresh copy of the game and commits it with an
// optimistic version check before publishing the result.
type GameService struct {
	store        repository.GameStore
	packs        PackSource
	pub          repository.Publisher
	identity     IdentityValidator
	timers       Timers
	deal         *dealer
	rng          cards.Rand
	now          func() time.Time
	buildVersion int64
}

// NewGameService creates a GameService. Timers default to no-ops until
// SetTimers is called.
func NewGameService(store repository.GameStore, packs PackSource, pub repository.Publisher, identity IdentityValidator, buildVersion int64) *GameService {
	rng := cards.NewRand(0)
	return &GameService{
		store:        store,
		packs:        packs,
		pub:          pub,
		identity:     identity,
		timers:       noopTimers{},
		deal:         &dealer{packs: packs, rng: rng},
		rng:          rng,
		now:          time.Now,
		buildVersion: buildVersion,
	}
}

// SetTimers wires the scheduler. The scheduler needs the service too, so
// one side has to be set after construction.
func (s *GameService) SetTimers(t Timers) {
	s.timers = t
}

// change is one attempt at mutating a game.
type change struct {
	game *model.Game
	// rescore re-evaluates suggested rounds against the leader's score.
	rescore bool
}

type mutation func(c *change) error

// commit loads the game, applies fn to a copy and writes it back. A version
// conflict re-reads the game and re-applies fn.
func (s *GameService) commit(ctx context.Context, gameID string, fn mutation) (*model.Game, error) {
	log := logger.ForGame(ctx, gameID)
	var lastErr error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		current, err := s.store.FindByID(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
		}

		c := &change{game: current.Clone()}
		before := len(current.Players())
		if err := fn(c); err != nil {
			if errors.Is(err, errNoChange) {
				return current, nil
			}
			return nil, err
		}

		g := c.game
		g.DateUpdated = s.now()
		g.Settings.SuggestedRoundsToWin = model.SuggestedRoundsToWin(g, c.rescore || before != len(g.Players()))

		err = s.store.Update(ctx, g)
		if errors.Is(err, repository.ErrVersionConflict) {
			log.Warn().Int("attempt", attempt).Msg("Game changed underneath command, retrying")
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		s.publish(ctx, g)
		return g, nil
	}
	return nil, lastErr
}

// publish fans the committed state out. The store is authoritative, so a
// failed publish is logged rather than failing the command.
func (s *GameService) publish(ctx context.Context, g *model.Game) {
	payload := &model.GamePayload{ClientGame: g.ToClient(), BuildVersion: s.buildVersion}
	if err := s.pub.PublishGame(ctx, payload); err != nil {
		l := logger.ForGame(ctx, g.ID)
		l.Error().Err(err).Msg("Failed to publish game update")
	}
}

func (s *GameService) validate(id model.Identity) error {
	if err := s.identity.Validate(id); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	return nil
}

// GetGame returns a game by ID.
func (s *GameService) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	g, err := s.store.FindByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return g, nil
}

// ListPublicGames returns one page of recently active public games.
func (s *GameService) ListPublicGames(ctx context.Context, page int) ([]*model.Game, error) {
	if page < 0 {
		page = 0
	}
	return s.store.ListPublic(ctx, page*publicPageSize, publicPageSize)
}

// CreateGame creates a game with the caller as owner and only player.
func (s *GameService) CreateGame(ctx context.Context, owner model.Identity, nickname string, family bool) (*model.Game, error) {
	if err := s.validate(owner); err != nil {
		return nil, err
	}
	packIDs, err := s.packs.DefaultPackIDs(ctx, family)
	if err != nil {
		return nil, fmt.Errorf("default packs: %w", err)
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		player := model.NewPlayer(owner.GUID, strings.TrimSpace(nickname), false)
		g := model.NewGame(humanReadableID(s.rng), player, packIDs, []string{}, family, s.now())
		err := s.store.Insert(ctx, g)
		if errors.Is(err, repository.ErrDuplicateID) {
			continue
		}
		if err != nil {
			return nil, err
		}
		l := logger.ForGame(ctx, g.ID)
		l.Info().Str("owner", owner.GUID).Msg("Created game")
		s.publish(ctx, g)
		return g, nil
	}
	return nil, fmt.Errorf("create game: %w after %d attempts", repository.ErrDuplicateID, maxIDAttempts)
}

// JoinGame adds the caller to a game as a player or spectator.
func (s *GameService) JoinGame(ctx context.Context, player model.Identity, gameID, nickname string, spectating bool) (*model.Game, error) {
	if err := s.validate(player); err != nil {
		return nil, err
	}
	return s.commit(ctx, gameID, func(c *change) error {
		return s.join(ctx, c.game, player.GUID, strings.TrimSpace(nickname), spectating, false)
	})
}

// AddBot adds a randomly playing member. Only the owner may add bots.
func (s *GameService) AddBot(ctx context.Context, owner model.Identity, gameID string) (*model.Game, error) {
	if err := s.validate(owner); err != nil {
		return nil, err
	}
	guid, err := botGUID()
	if err != nil {
		return nil, fmt.Errorf("bot id: %w", err)
	}
	return s.commit(ctx, gameID, func(c *change) error {
		g := c.game
		if g.OwnerGUID != owner.GUID {
			return ErrNotOwner
		}
		used := lo.MapToSlice(g.Members, func(_ string, p *model.GamePlayer) string { return p.Nickname })
		return s.join(ctx, g, guid, botNickname(used, s.rng), false, true)
	})
}

func (s *GameService) join(ctx context.Context, g *model.Game, guid, nickname string, spectating, isRandom bool) error {
	if !spectating && g.RoleOf(guid) != model.RoleActive && len(g.Players()) >= g.Settings.PlayerLimit {
		return ErrGameFull
	}

	now := s.now()
	p := g.Member(guid)
	isNew := p == nil
	if isNew {
		p = model.NewPlayer(guid, nickname, isRandom)
	} else {
		p.Nickname = nickname
	}
	if p.IsApproved != nil && !*p.IsApproved {
		return ErrJoinDenied
	}
	p.IsIdle = false

	role := model.RoleActive
	switch {
	case spectating:
		role = model.RoleSpectating
	case !isNew && p.Role == model.RoleActive:
		role = model.RoleActive
	case guid == g.LastTrueOwnerGUID:
		// the original owner never waits for approval in their own game
	case !p.IsRandom && (g.Started || g.Settings.RequireJoinApproval):
		role = model.RolePending
	}

	if isNew {
		if err := g.AddMember(p, role, now); err != nil {
			return err
		}
	} else {
		p.KickedForTimeout = false
		if err := g.Transition(guid, role, now); err != nil {
			return err
		}
	}

	if guid == g.LastTrueOwnerGUID {
		g.OwnerGUID = guid
	}

	if g.Started && role == model.RoleActive && g.HasBlackCard() {
		return s.deal.dealHand(ctx, g, p)
	}
	return nil
}

// KickPlayer removes target from the game. The owner may kick anyone; any
// player may remove themself.
func (s *GameService) KickPlayer(ctx context.Context, actor model.Identity, gameID, target string) (*model.Game, error) {
	if err := s.validate(actor); err != nil {
		return nil, err
	}
	return s.commit(ctx, gameID, func(c *change) error {
		return removeMember(c.game, actor.GUID, target, false, s.rng, s.now())
	})
}

// KickForTimeout handles a player whose sockets all went away. Public games
// in progress drop the player; everything else just marks them idle.
func (s *GameService) KickForTimeout(ctx context.Context, gameID, guid string) error {
	g, err := s.commit(ctx, gameID, func(c *change) error {
		return removeMember(c.game, guid, guid, true, s.rng, s.now())
	})
	if err != nil {
		return err
	}
	l := logger.ForGame(ctx, gameID)
	l.Info().Str("player", guid).Str("role", string(g.RoleOf(guid))).Msg("Handled idle player")
	return nil
}

// removeMember applies the kick rules to g.
func removeMember(g *model.Game, actor, target string, timeout bool, rng cards.Rand, now time.Time) error {
	if g.OwnerGUID != actor && target != actor {
		return ErrNoKickRights
	}

	isKick := !timeout || (g.Started && g.Settings.Public)
	if !isKick {
		if g.Member(target) == nil {
			return errNoChange
		}
		g.SetIdle(target, true)
		return nil
	}

	m := g.Member(target)
	if m == nil || m.Role == model.RoleKicked {
		if timeout {
			return errNoChange
		}
		return ErrTargetNotInGame
	}
	if err := g.Transition(target, model.RoleKicked, now); err != nil {
		return err
	}
	m.KickedForTimeout = timeout
	delete(g.RoundCards, target)
	g.PlayerOrder = cards.ShuffledStrings(g.PlayerGUIDs(), rng)

	humans := g.HumanPlayerGUIDs()
	onlyBotsLeft := len(humans) == 0
	if onlyBotsLeft && timeout {
		return errNoChange
	}

	if target == g.OwnerGUID {
		if onlyBotsLeft {
			return ErrSoleLeave
		}
		g.OwnerGUID = humans[0]
		if !timeout {
			g.LastTrueOwnerGUID = g.OwnerGUID
		}
	}
	if target == g.ChooserGUID {
		g.ChooserGUID = g.OwnerGUID
	}
	return nil
}

// SetPlayerApproval approves or denies a member. Approving a pending member
// of an unstarted game seats them; denying kicks them.
func (s *GameService) SetPlayerApproval(ctx context.Context, owner model.Identity, gameID, target string, approved bool) (*model.Game, error) {
	if err := s.validate(owner); err != nil {
		return nil, err
	}
	return s.commit(ctx, gameID, func(c *change) error {
		g := c.game
		if g.OwnerGUID != owner.GUID {
			return ErrNotOwner
		}
		m := g.Member(target)
		if m == nil || m.Role == model.RoleKicked {
			return ErrTargetNotInGame
		}
		m.IsApproved = &approved
		if !approved {
			return removeMember(g, owner.GUID, target, false, s.rng, s.now())
		}
		if !g.Started && m.Role == model.RolePending {
			return g.Transition(target, model.RoleActive, s.now())
		}
		return nil
	})
}

// UpdateSettings replaces the game's settings. Only the owner may do so.
func (s *GameService) UpdateSettings(ctx context.Context, owner model.Identity, gameID string, settings model.Settings) (*model.Game, error) {
	if err := s.validate(owner); err != nil {
		return nil, err
	}
	if settings.PlayerLimit > model.MaxPlayerLimit {
		return nil, ErrPlayerLimit
	}
	return s.commit(ctx, gameID, func(c *change) error {
		g := c.game
		if g.OwnerGUID != owner.GUID {
			return ErrNotOwner
		}
		c.rescore = !sameRounds(g.Settings.RoundsToWin, settings.RoundsToWin)
		applySettings(g, settings)
		return nil
	})
}

func sameRounds(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func applySettings(g *model.Game, settings model.Settings) {
	if settings.PlayerLimit <= 0 {
		settings.PlayerLimit = g.Settings.PlayerLimit
	}
	if settings.IncludedPacks == nil {
		settings.IncludedPacks = g.Settings.IncludedPacks
	}
	if settings.IncludedCustomPackIDs == nil {
		settings.IncludedCustomPackIDs = g.Settings.IncludedCustomPackIDs
	}
	settings.SuggestedRoundsToWin = g.Settings.SuggestedRoundsToWin
	g.Settings = settings
}

// StartGame deals the first prompt and a full hand to every player.
// settings, when given, replace the lobby settings first.
func (s *GameService) StartGame(ctx context.Context, owner model.Identity, gameID string, settings *model.Settings) (*model.Game, error) {
	if err := s.validate(owner); err != nil {
		return nil, err
	}
	if settings != nil && settings.PlayerLimit > model.MaxPlayerLimit {
		return nil, ErrPlayerLimit
	}
	return s.commit(ctx, gameID, func(c *change) error {
		g := c.game
		if g.OwnerGUID != owner.GUID {
			return ErrNotOwner
		}
		if settings != nil {
			applySettings(g, *settings)
		}
		g.ChooserGUID = g.OwnerGUID
		if humans := g.HumanPlayerGUIDs(); len(humans) > 0 {
			g.ChooserGUID = humans[0]
		}
		g.Started = true
		if err := s.deal.dealBlackCard(ctx, g); err != nil {
			return err
		}
		return s.deal.dealWhiteCards(ctx, g)
	})
}

// RestartGame returns the game to its lobby, keeping every member.
func (s *GameService) RestartGame(ctx context.Context, owner model.Identity, gameID string) (*model.Game, error) {
	if err := s.validate(owner); err != nil {
		return nil, err
	}
	g, err := s.commit(ctx, gameID, func(c *change) error {
		g := c.game
		if g.OwnerGUID != owner.GUID {
			return ErrNotOwner
		}
		for _, p := range g.Members {
			p.WhiteCards = []cards.CardID{}
			p.Wins = 0
		}
		g.RoundIndex = 0
		g.RevealIndex = -1
		g.RoundCards = map[string][]cards.CardID{}
		g.RoundStarted = false
		g.Started = false
		g.BlackCard = cards.CardID{CardIndex: -1}
		g.LastWinner = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.timers.Clear(gameID)
	return g, nil
}

// PlayCard submits the caller's response cards for the current round.
func (s *GameService) PlayCard(ctx context.Context, player model.Identity, gameID string, cardIDs []cards.CardID) (*model.Game, error) {
	if err := s.validate(player); err != nil {
		return nil, err
	}
	return s.commit(ctx, gameID, func(c *change) error {
		g := c.game
		if err := s.checkPlay(ctx, g, player.GUID, cardIDs); err != nil {
			return err
		}
		g.SetIdle(player.GUID, false)
		s.recordPlay(g, player.GUID, cardIDs)
		return nil
	})
}

// Forfeit burns every card in the caller's hand except the ones played and
// submits the play, so the next deal hands out a fresh set.
func (s *GameService) Forfeit(ctx context.Context, player model.Identity, gameID string, played []cards.CardID) (*model.Game, error) {
	if err := s.validate(player); err != nil {
		return nil, err
	}
	return s.commit(ctx, gameID, func(c *change) error {
		g := c.game
		if err := s.checkPlay(ctx, g, player.GUID, played); err != nil {
			return err
		}
		p := g.Player(player.GUID)
		for _, card := range cards.Without(p.WhiteCards, played) {
			if !card.IsCustom() {
				g.UsedWhiteCards.Add(card)
			}
		}
		p.WhiteCards = []cards.CardID{}
		g.SetIdle(player.GUID, false)
		s.recordPlay(g, player.GUID, played)
		return nil
	})
}

func (s *GameService) checkPlay(ctx context.Context, g *model.Game, guid string, cardIDs []cards.CardID) error {
	p := g.Player(guid)
	if p == nil {
		return ErrNotParticipant
	}
	if !g.Started || !g.HasBlackCard() {
		return ErrGameNotStarted
	}
	if guid == g.ChooserGUID {
		return ErrChooserPlay
	}
	for _, card := range cardIDs {
		if card.IsCustom() {
			if !g.Settings.AllowCustoms {
				return ErrCustomsDisabled
			}
			continue
		}
		if !cards.Contains(p.WhiteCards, card) {
			return ErrNotInHand
		}
	}
	def, err := blackCardDef(ctx, s.packs, g.BlackCard)
	if err != nil {
		return err
	}
	if def.Pick != len(cardIDs) {
		return fmt.Errorf("%w: expected %d but received %d", ErrWrongCardCount, def.Pick, len(cardIDs))
	}
	return nil
}

func (s *GameService) recordPlay(g *model.Game, guid string, cardIDs []cards.CardID) {
	if g.RoundCards == nil {
		g.RoundCards = map[string][]cards.CardID{}
	}
	g.RoundCards[guid] = append([]cards.CardID(nil), cardIDs...)
	g.PlayerOrder = cards.ShuffledStrings(g.PlayerGUIDs(), s.rng)
}

// AutoPlay submits a random legal play for members who have not played.
// With botsOnly it only plays for bots; otherwise for every non-chooser.
func (s *GameService) AutoPlay(ctx context.Context, gameID string, botsOnly bool) error {
	var played []string
	_, err := s.commit(ctx, gameID, func(c *change) error {
		g := c.game
		played = played[:0]
		if !g.RoundStarted || g.RevealIndex >= 0 || !g.HasBlackCard() {
			return errNoChange
		}
		def, err := blackCardDef(ctx, s.packs, g.BlackCard)
		if err != nil {
			return err
		}
		for _, p := range g.Players() {
			if p.GUID == g.ChooserGUID || (botsOnly && !p.IsRandom) {
				continue
			}
			if _, ok := g.RoundCards[p.GUID]; ok {
				continue
			}
			sel, err := cards.RandomSelection(p.WhiteCards, def.Pick, s.rng)
			if err != nil {
				l := logger.ForGame(ctx, gameID)
				l.Warn().Err(err).Str("player", p.GUID).Msg("Cannot auto-play")
				continue
			}
			s.recordPlay(g, p.GUID, sel)
			played = append(played, p.GUID)
		}
		if len(played) == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(played) > 0 {
		l := logger.ForGame(ctx, gameID)
		l.Info().Strs("players", played).Bool("botsOnly", botsOnly).Msg("Auto-played cards")
	}
	return nil
}

func (s *GameService) chooserOnly(guid string, fn mutation) mutation {
	return func(c *change) error {
		if c.game.ChooserGUID != guid {
			return ErrNotChooser
		}
		c.game.SetIdle(guid, false)
		return fn(c)
	}
}

// RevealNext reveals the next submission. With skipReveal every submission
// is revealed at once.
func (s *GameService) RevealNext(ctx context.Context, chooser model.Identity, gameID string) (*model.Game, error) {
	if err := s.validate(chooser); err != nil {
		return nil, err
	}
	s.timers.CancelRoundTimeout(gameID)
	return s.commit(ctx, gameID, s.chooserOnly(chooser.GUID, func(c *change) error {
		g := c.game
		g.RevealIndex++
		if g.Settings.SkipReveal {
			g.RevealIndex = len(g.RoundCards)
		}
		return nil
	}))
}

// SkipBlack swaps the current prompt for another one.
func (s *GameService) SkipBlack(ctx context.Context, chooser model.Identity, gameID string) (*model.Game, error) {
	if err := s.validate(chooser); err != nil {
		return nil, err
	}
	return s.commit(ctx, gameID, s.chooserOnly(chooser.GUID, func(c *change) error {
		if err := s.deal.dealBlackCard(ctx, c.game); err != nil {
			return err
		}
		// a prompt with a bigger pick needs bigger hands
		return s.deal.dealWhiteCards(ctx, c.game)
	}))
}

// StartRound opens the round for submissions, then lets bots play and arms
// the round timeout.
func (s *GameService) StartRound(ctx context.Context, chooser model.Identity, gameID string) (*model.Game, error) {
	if err := s.validate(chooser); err != nil {
		return nil, err
	}
	g, err := s.commit(ctx, gameID, s.chooserOnly(chooser.GUID, func(c *change) error {
		if !c.game.Started {
			return ErrGameNotStarted
		}
		c.game.RoundStarted = true
		c.game.LastWinner = nil
		return nil
	}))
	if err != nil {
		return nil, err
	}
	var timeout time.Duration
	if t := g.Settings.RoundTimeoutSeconds; t != nil && *t > 0 {
		timeout = time.Duration(*t) * time.Second
	}
	s.timers.StartRound(gameID, timeout)
	return g, nil
}

// SelectWinnerCard awards the round to winnerGUID. Unless that ends the
// game, the next round starts automatically after a short delay.
func (s *GameService) SelectWinnerCard(ctx context.Context, chooser model.Identity, gameID, winnerGUID string) (*model.Game, error) {
	if err := s.validate(chooser); err != nil {
		return nil, err
	}
	g, err := s.commit(ctx, gameID, s.chooserOnly(chooser.GUID, func(c *change) error {
		g := c.game
		if g.LastWinner != nil {
			return ErrWinnerChosen
		}
		winner := g.Player(winnerGUID)
		if winner == nil {
			return ErrTargetNotInGame
		}
		if _, ok := g.RoundCards[winnerGUID]; !ok {
			return ErrNotPlayedThisTurn
		}
		winner.Wins++
		last := *winner
		last.WhiteCards = append([]cards.CardID(nil), winner.WhiteCards...)
		g.LastWinner = &last
		return nil
	}))
	if err != nil {
		return nil, err
	}
	if g.Winner() == nil {
		s.timers.ScheduleAdvance(gameID, chooser.GUID, g.RoundIndex)
	} else {
		s.timers.Clear(gameID)
		l := logger.ForGame(ctx, gameID)
		l.Info().Str("winner", g.Winner().GUID).Msg("Game won")
	}
	return g, nil
}

// NextRound moves to the next round on the chooser's request.
func (s *GameService) NextRound(ctx context.Context, chooser model.Identity, gameID string) (*model.Game, error) {
	if err := s.validate(chooser); err != nil {
		return nil, err
	}
	return s.nextRound(ctx, gameID, chooser.GUID, anyRound)
}

// AdvanceRound moves past roundIndex on behalf of chooserGUID, used by the
// auto-advance timer. It does nothing when the game already left roundIndex
// or the round has no winner yet.
func (s *GameService) AdvanceRound(ctx context.Context, gameID, chooserGUID string, roundIndex int) error {
	_, err := s.nextRound(ctx, gameID, chooserGUID, roundIndex)
	return err
}

// anyRound lets nextRound advance from whatever round the game is in.
const anyRound = -1

func (s *GameService) nextRound(ctx context.Context, gameID, chooserGUID string, from int) (*model.Game, error) {
	advanced := false
	next := s.chooserOnly(chooserGUID, func(c *change) error {
		g := c.game
		now := s.now()
		g.RevealIndex = -1
		g.RoundStarted = false
		g.RoundIndex++

		for _, p := range g.ByRole(model.RolePending) {
			if p.IsApproved == nil || *p.IsApproved {
				if err := g.Transition(p.GUID, model.RoleActive, now); err != nil {
					return err
				}
			}
		}

		humans := g.HumanPlayerGUIDs()
		g.ChooserGUID = ""
		if len(humans) > 0 {
			g.ChooserGUID = humans[g.RoundIndex%len(humans)]
		}
		if lw := g.LastWinner; g.Settings.WinnerBecomesCzar && lw != nil && !lw.IsRandom && g.Player(lw.GUID) != nil {
			g.ChooserGUID = lw.GUID
		}
		if g.ChooserGUID == "" {
			g.ChooserGUID = g.OwnerGUID
		}
		g.LastWinner = nil

		for _, p := range g.Players() {
			p.WhiteCards = cards.Without(p.WhiteCards, g.RoundCards[p.GUID])
		}
		g.RoundCards = map[string][]cards.CardID{}
		g.PlayerOrder = cards.ShuffledStrings(g.PlayerGUIDs(), s.rng)

		if err := s.deal.dealBlackCard(ctx, g); err != nil {
			return err
		}
		return s.deal.dealWhiteCards(ctx, g)
	})
	g, err := s.commit(ctx, gameID, func(c *change) error {
		// a timer only advances the judged round it was armed for
		advanced = from == anyRound || (c.game.RoundIndex == from && c.game.LastWinner != nil)
		if !advanced {
			return errNoChange
		}
		return next(c)
	})
	if err != nil {
		return nil, err
	}
	if advanced {
		s.timers.CancelAdvance(gameID)
	}
	return g, nil
}

// SendChat publishes a chat message to everyone watching the game.
func (s *GameService) SendChat(ctx context.Context, player model.Identity, gameID, message string) error {
	if err := s.validate(player); err != nil {
		return err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	g, err := s.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	if role := g.RoleOf(player.GUID); role == "" || role == model.RoleKicked {
		return ErrNotParticipant
	}
	payload := &model.ChatPayload{GameID: gameID, PlayerGUID: player.GUID, Message: message}
	if err := s.pub.PublishChat(ctx, payload); err != nil {
		return fmt.Errorf("publish chat: %w", err)
	}
	return nil
}
