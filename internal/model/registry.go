package model

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Role is a member's standing in a game. Every member holds exactly one.
type Role string

const (
	RoleActive     Role = "active"
	RolePending    Role = "pending"
	RoleSpectating Role = "spectating"
	RoleKicked     Role = "kicked"
)

var (
	ErrUnknownMember     = errors.New("player is not in this game")
	ErrIllegalTransition = errors.New("illegal role transition")
	ErrAlreadyMember     = errors.New("player is already in this game")
)

// transitions lists the legal role changes. The empty role is "not yet a member".
var transitions = map[Role]map[Role]bool{
	"":             {RoleActive: true, RolePending: true, RoleSpectating: true},
	RolePending:    {RoleActive: true, RoleKicked: true, RoleSpectating: true},
	RoleActive:     {RoleKicked: true, RoleSpectating: true},
	RoleSpectating: {RoleActive: true, RolePending: true, RoleKicked: true},
	RoleKicked:     {RoleActive: true, RolePending: true, RoleSpectating: true},
}

// CanTransition reports whether a member may move from one role to another.
func CanTransition(from, to Role) bool {
	if from == to {
		return true
	}
	return transitions[from][to]
}

// AddMember registers p with the given starting role.
func (g *Game) AddMember(p *GamePlayer, role Role, at time.Time) error {
	if g.Members == nil {
		g.Members = map[string]*GamePlayer{}
	}
	if _, ok := g.Members[p.GUID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyMember, p.GUID)
	}
	if !CanTransition("", role) {
		return fmt.Errorf("%w: new member to %s", ErrIllegalTransition, role)
	}
	g.NextJoinSeq++
	p.JoinSeq = g.NextJoinSeq
	p.Role = role
	p.RoleSince = at
	g.Members[p.GUID] = p
	return nil
}

// Transition moves an existing member to a new role.
func (g *Game) Transition(guid string, to Role, at time.Time) error {
	p, ok := g.Members[guid]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMember, guid)
	}
	if p.Role == to {
		return nil
	}
	if !CanTransition(p.Role, to) {
		return fmt.Errorf("%w: %s to %s", ErrIllegalTransition, p.Role, to)
	}
	p.Role = to
	p.RoleSince = at
	return nil
}

// Member returns the member record for guid, or nil.
func (g *Game) Member(guid string) *GamePlayer {
	return g.Members[guid]
}

// RoleOf returns the member's role, or "" for strangers.
func (g *Game) RoleOf(guid string) Role {
	if p, ok := g.Members[guid]; ok {
		return p.Role
	}
	return ""
}

// Player returns the member only when they are active.
func (g *Game) Player(guid string) *GamePlayer {
	if p, ok := g.Members[guid]; ok && p.Role == RoleActive {
		return p
	}
	return nil
}

// ByRole returns the members with the given role in join order.
func (g *Game) ByRole(role Role) []*GamePlayer {
	var out []*GamePlayer
	for _, p := range g.Members {
		if p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinSeq < out[j].JoinSeq })
	return out
}

// Players returns the active players in join order.
func (g *Game) Players() []*GamePlayer {
	return g.ByRole(RoleActive)
}

// PlayerGUIDs returns the active player guids in join order.
func (g *Game) PlayerGUIDs() []string {
	players := g.Players()
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.GUID
	}
	return out
}

// HumanPlayerGUIDs returns the active non-bot player guids in join order.
func (g *Game) HumanPlayerGUIDs() []string {
	var out []string
	for _, p := range g.Players() {
		if !p.IsRandom {
			out = append(out, p.GUID)
		}
	}
	return out
}

// SetIdle flags an active or pending member as idle or present.
func (g *Game) SetIdle(guid string, idle bool) {
	p, ok := g.Members[guid]
	if !ok {
		return
	}
	if p.Role == RoleActive || p.Role == RolePending {
		p.IsIdle = idle
	}
}
