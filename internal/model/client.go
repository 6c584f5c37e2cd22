package model

import (
	"time"

	"github.com/freeeve/partycards/pkg/cards"
)

// PlayerMap is the client-facing role map keyed by player guid.
type PlayerMap map[string]*ClientPlayer

// ClientPlayer is the member shape clients render.
type ClientPlayer struct {
	GUID             string         `json:"guid"`
	Nickname         string         `json:"nickname"`
	Wins             int            `json:"wins"`
	WhiteCards       []cards.CardID `json:"whiteCards"`
	IsSpectating     bool           `json:"isSpectating"`
	IsRandom         bool           `json:"isRandom"`
	IsIdle           bool           `json:"isIdle"`
	IsApproved       *bool          `json:"isApproved"`
	KickedForTimeout bool           `json:"kickedForTimeout"`
}

// ClientGame is the projection of a Game that is safe to send to browsers.
// Usage ledgers, the update time and the last true owner stay on the server.
type ClientGame struct {
	ID             string                    `json:"id"`
	DateCreated    time.Time                 `json:"dateCreated"`
	RoundIndex     int                       `json:"roundIndex"`
	RoundStarted   bool                      `json:"roundStarted"`
	OwnerGUID      string                    `json:"ownerGuid"`
	ChooserGUID    *string                   `json:"chooserGuid"`
	Started        bool                      `json:"started"`
	Players        PlayerMap                 `json:"players"`
	Spectators     PlayerMap                 `json:"spectators"`
	PendingPlayers PlayerMap                 `json:"pendingPlayers"`
	KickedPlayers  PlayerMap                 `json:"kickedPlayers"`
	BlackCard      cards.CardID              `json:"blackCard"`
	RoundCards     map[string][]cards.CardID `json:"roundCards"`
	PlayerOrder    []string                  `json:"playerOrder"`
	RevealIndex    int                       `json:"revealIndex"`
	LastWinner     *ClientPlayer             `json:"lastWinner,omitempty"`
	Settings       Settings                  `json:"settings"`
}

// GamePayload is what travels on the games channel.
type GamePayload struct {
	ClientGame
	BuildVersion int64 `json:"buildVersion"`
}

func toClientPlayer(p *GamePlayer) *ClientPlayer {
	hand := p.WhiteCards
	if hand == nil {
		hand = []cards.CardID{}
	}
	return &ClientPlayer{
		GUID:             p.GUID,
		Nickname:         p.Nickname,
		Wins:             p.Wins,
		WhiteCards:       hand,
		IsSpectating:     p.Role == RoleSpectating,
		IsRandom:         p.IsRandom,
		IsIdle:           p.IsIdle,
		IsApproved:       p.IsApproved,
		KickedForTimeout: p.KickedForTimeout,
	}
}

// ToClient builds the client projection, splitting the member registry back
// into the four role maps.
func (g *Game) ToClient() ClientGame {
	cg := ClientGame{
		ID:             g.ID,
		DateCreated:    g.DateCreated,
		RoundIndex:     g.RoundIndex,
		RoundStarted:   g.RoundStarted,
		OwnerGUID:      g.OwnerGUID,
		Started:        g.Started,
		Players:        PlayerMap{},
		Spectators:     PlayerMap{},
		PendingPlayers: PlayerMap{},
		KickedPlayers:  PlayerMap{},
		BlackCard:      g.BlackCard,
		RoundCards:     g.RoundCards,
		PlayerOrder:    g.PlayerOrder,
		RevealIndex:    g.RevealIndex,
		Settings:       g.Settings,
	}
	if g.ChooserGUID != "" {
		chooser := g.ChooserGUID
		cg.ChooserGUID = &chooser
	}
	if g.LastWinner != nil {
		cg.LastWinner = toClientPlayer(g.LastWinner)
	}
	for guid, p := range g.Members {
		switch p.Role {
		case RoleActive:
			cg.Players[guid] = toClientPlayer(p)
		case RolePending:
			cg.PendingPlayers[guid] = toClientPlayer(p)
		case RoleSpectating:
			cg.Spectators[guid] = toClientPlayer(p)
		case RoleKicked:
			cg.KickedPlayers[guid] = toClientPlayer(p)
		}
	}
	return cg
}

// MemberGUIDs returns every guid present in any role map of the payload.
func (cg *ClientGame) MemberGUIDs() []string {
	var out []string
	for _, m := range []PlayerMap{cg.Players, cg.PendingPlayers, cg.Spectators, cg.KickedPlayers} {
		for guid := range m {
			out = append(out, guid)
		}
	}
	return out
}
