package model

import (
	"encoding/json"
	"time"

	"github.com/freeeve/partycards/pkg/cards"
)

// Default settings for a freshly created game.
const (
	DefaultPlayerLimit  = 50
	MaxPlayerLimit      = 50
	DefaultRoundsToWin  = 7
	DefaultRoundTimeout = 60
)

// Identity is the opaque player credential minted by the auth layer.
type Identity struct {
	GUID   string `json:"guid"`
	Secret string `json:"secret"`
}

// GamePlayer is one member of a game, whatever their current role.
type GamePlayer struct {
	GUID             string         `json:"guid"`
	Nickname         string         `json:"nickname"`
	Wins             int            `json:"wins"`
	WhiteCards       []cards.CardID `json:"whiteCards"`
	IsRandom         bool           `json:"isRandom"`
	IsIdle           bool           `json:"isIdle"`
	IsApproved       *bool          `json:"isApproved"` // nil = undecided
	KickedForTimeout bool           `json:"kickedForTimeout"`
	Role             Role           `json:"role"`
	RoleSince        time.Time      `json:"roleSince"`
	JoinSeq          int            `json:"joinSeq"`
}

// Settings are the owner-controlled options of a game.
type Settings struct {
	Public                bool     `json:"public"`
	HideDuringReveal      bool     `json:"hideDuringReveal"`
	SkipReveal            bool     `json:"skipReveal"`
	PlayerLimit           int      `json:"playerLimit"`
	SuggestedRoundsToWin  int      `json:"suggestedRoundsToWin"`
	RoundsToWin           *int     `json:"roundsToWin,omitempty"`
	IncludedPacks         []string `json:"includedPacks"`
	IncludedCustomPackIDs []string `json:"includedCustomPackIds"`
	WinnerBecomesCzar     bool     `json:"winnerBecomesCzar"`
	RoundTimeoutSeconds   *int     `json:"roundTimeoutSeconds"`
	AllowCustoms          bool     `json:"allowCustoms"`
	RequireJoinApproval   bool     `json:"requireJoinApproval"`
	FamilyMode            bool     `json:"familyMode"`
}

// Game is the authoritative document for one play session.
type Game struct {
	ID                string                    `json:"id"`
	Version           int64                     `json:"version"`
	DateCreated       time.Time                 `json:"dateCreated"`
	DateUpdated       time.Time                 `json:"dateUpdated"`
	OwnerGUID         string                    `json:"ownerGuid"`
	LastTrueOwnerGUID string                    `json:"lastTrueOwnerGuid"`
	ChooserGUID       string                    `json:"chooserGuid"`
	Started           bool                      `json:"started"`
	RoundStarted      bool                      `json:"roundStarted"`
	RoundIndex        int                       `json:"roundIndex"`
	BlackCard         cards.CardID              `json:"blackCard"`
	RoundCards        map[string][]cards.CardID `json:"roundCards"`
	PlayerOrder       []string                  `json:"playerOrder"`
	RevealIndex       int                       `json:"revealIndex"`
	LastWinner        *GamePlayer               `json:"lastWinner,omitempty"`
	Members           map[string]*GamePlayer    `json:"members"`
	NextJoinSeq       int                       `json:"nextJoinSeq"`
	UsedBlackCards    cards.PackMap             `json:"usedBlackCards"`
	UsedWhiteCards    cards.PackMap             `json:"usedWhiteCards"`
	Settings          Settings                  `json:"settings"`
}

// ChatPayload is published verbatim on the chat channel.
type ChatPayload struct {
	GameID     string `json:"gameId"`
	PlayerGUID string `json:"playerGuid"`
	Message    string `json:"message"`
}

// PresencePayload announces that a player has a live socket in a game, so
// every process drops its pending idle kick for them.
type PresencePayload struct {
	GameID     string `json:"gameId"`
	PlayerGUID string `json:"playerGuid"`
}

// BlackCardDef is a prompt card as stored in a pack.
type BlackCardDef struct {
	Content string `json:"content"`
	Pick    int    `json:"pick"`
	Draw    int    `json:"draw"`
}

// Pack is a card pack definition.
type Pack struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	IsOfficial bool           `json:"is_official"`
	IsFamily   bool           `json:"is_family"`
	IsDefault  bool           `json:"is_default"`
	Black      []BlackCardDef `json:"black"`
	White      []string       `json:"white"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// NewPlayer creates a member record. Bots are approved from the start.
func NewPlayer(guid, nickname string, isRandom bool) *GamePlayer {
	p := &GamePlayer{
		GUID:       guid,
		Nickname:   nickname,
		WhiteCards: []cards.CardID{},
		IsRandom:   isRandom,
	}
	if isRandom {
		approved := true
		p.IsApproved = &approved
	}
	return p
}

// NewGame builds the initial document with owner as its only player.
func NewGame(id string, owner *GamePlayer, packs, customPacks []string, family bool, now time.Time) *Game {
	g := &Game{
		ID:                id,
		DateCreated:       now,
		DateUpdated:       now,
		OwnerGUID:         owner.GUID,
		LastTrueOwnerGUID: owner.GUID,
		BlackCard:         cards.CardID{CardIndex: -1},
		RoundCards:        map[string][]cards.CardID{},
		PlayerOrder:       []string{},
		RevealIndex:       -1,
		Members:           map[string]*GamePlayer{},
		UsedBlackCards:    cards.PackMap{},
		UsedWhiteCards:    cards.PackMap{},
		Settings: Settings{
			PlayerLimit:           DefaultPlayerLimit,
			SuggestedRoundsToWin:  DefaultRoundsToWin,
			IncludedPacks:         packs,
			IncludedCustomPackIDs: customPacks,
			RequireJoinApproval:   true,
			FamilyMode:            family,
		},
	}
	// A fresh game cannot reject its first member.
	_ = g.AddMember(owner, RoleActive, now)
	g.Settings.SuggestedRoundsToWin = SuggestedRoundsToWin(g, false)
	return g
}

// Clone returns a deep copy of the game.
func (g *Game) Clone() *Game {
	data, err := json.Marshal(g)
	if err != nil {
		panic("model: marshal game: " + err.Error())
	}
	var out Game
	if err := json.Unmarshal(data, &out); err != nil {
		panic("model: unmarshal game: " + err.Error())
	}
	return &out
}

// PacksForGame returns the official and custom packs the game draws from.
func (g *Game) PacksForGame() []string {
	out := make([]string, 0, len(g.Settings.IncludedPacks)+len(g.Settings.IncludedCustomPackIDs))
	out = append(out, g.Settings.IncludedPacks...)
	out = append(out, g.Settings.IncludedCustomPackIDs...)
	return out
}

// HasBlackCard reports whether a prompt has been dealt.
func (g *Game) HasBlackCard() bool {
	return g.BlackCard.PackID != "" && g.BlackCard.CardIndex >= 0
}

// RoundsToWin is the effective win threshold.
func (g *Game) RoundsToWin() int {
	if g.Settings.RoundsToWin != nil && *g.Settings.RoundsToWin > 0 {
		return *g.Settings.RoundsToWin
	}
	return g.Settings.SuggestedRoundsToWin
}

// Winner returns the active player who reached the win threshold, if any.
func (g *Game) Winner() *GamePlayer {
	target := g.RoundsToWin()
	var best *GamePlayer
	for _, p := range g.Players() {
		if best == nil || p.Wins > best.Wins {
			best = p
		}
	}
	if best != nil && best.Wins >= target && target > 0 {
		return best
	}
	return nil
}

// SuggestedRoundsToWin derives the suggested threshold from the player
// count and, when the player set changed, from the current leader's score.
func SuggestedRoundsToWin(g *Game, playersChanged bool) int {
	players := g.Players()
	n := len(players)
	if n == 0 {
		n = 1
	}
	mostWins := 0
	for _, p := range players {
		if p.Wins > mostWins {
			mostWins = p.Wins
		}
	}

	minSuggested := (32 + n - 1) / n
	suggested := minSuggested
	if playersChanged && mostWins+1 > suggested {
		suggested = mostWins + 1
	}
	if suggested < 4 {
		suggested = 4
	}
	if suggested > 7 {
		suggested = 7
	}
	return suggested
}
