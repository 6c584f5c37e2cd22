package service

import (
	"errors"

	"github.com/freeeve/partycards/internal/model"
	"github.com/freeeve/partycards/internal/repository"
	"github.com/freeeve/partycards/pkg/cards"
)

// Identity errors.
var (
	ErrInvalidIdentity = errors.New("there's a problem with your session, refresh and try again")
)

// Authorization errors.
var (
	ErrNotOwner       = errors.New("you are not the owner")
	ErrNotChooser     = errors.New("you are not the chooser")
	ErrNoKickRights   = errors.New("you don't have kick permission")
	ErrNotParticipant = errors.New("you are not in this game")
)

// Precondition errors.
var (
	ErrGameFull          = errors.New("this game is full")
	ErrJoinDenied        = errors.New("the game owner denied your join request")
	ErrNotInHand         = errors.New("you cannot play cards that aren't in your hand")
	ErrWrongCardCount    = errors.New("you submitted the wrong number of cards")
	ErrPlayerLimit       = errors.New("player limit cannot be greater than 50")
	ErrSoleLeave         = errors.New("you can't leave the game if you're the only player")
	ErrNotEnoughCards    = errors.New("your packs don't contain enough cards")
	ErrNoPacks           = errors.New("no card packs are selected")
	ErrGameNotStarted    = errors.New("game has not started")
	ErrChooserPlay       = errors.New("the chooser doesn't play this round")
	ErrWinnerChosen      = errors.New("a winner was already chosen this round")
	ErrNotPlayedThisTurn = errors.New("that player did not play this round")
	ErrTargetNotInGame   = errors.New("this player is no longer in this game")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrCustomsDisabled   = errors.New("custom cards are not allowed in this game")
)

// Not found errors.
var (
	ErrGameNotFound = errors.New("game not found")
	ErrPackNotFound = errors.New("card pack not found")
)

// ErrorKind is the taxonomy a failed command falls into.
type ErrorKind int

const (
	KindInfrastructure ErrorKind = iota
	KindIdentity
	KindAuthorization
	KindPrecondition
	KindNotFound
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindIdentity:
		return "identity"
	case KindAuthorization:
		return "authorization"
	case KindPrecondition:
		return "precondition"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "infrastructure"
	}
}

var kinds = map[ErrorKind][]error{
	KindIdentity: {ErrInvalidIdentity},
	KindAuthorization: {
		ErrNotOwner, ErrNotChooser, ErrNoKickRights, ErrNotParticipant,
	},
	KindPrecondition: {
		ErrGameFull, ErrJoinDenied, ErrNotInHand, ErrWrongCardCount,
		ErrPlayerLimit, ErrSoleLeave, ErrNotEnoughCards, ErrNoPacks,
		ErrGameNotStarted, ErrChooserPlay, ErrWinnerChosen,
		ErrNotPlayedThisTurn, ErrTargetNotInGame, ErrEmptyMessage,
		ErrCustomsDisabled,
		model.ErrIllegalTransition, model.ErrAlreadyMember, model.ErrUnknownMember,
		cards.ErrExhausted, cards.ErrNotEnoughToPick,
	},
	KindNotFound: {ErrGameNotFound, ErrPackNotFound},
	KindConflict: {repository.ErrVersionConflict},
}

// Classify maps an error returned by the engine to its kind. Anything not
// recognised is an infrastructure failure. A conflict means the game kept
// changing under every retry; the client may simply try again.
func Classify(err error) ErrorKind {
	for kind, list := range kinds {
		for _, target := range list {
			if errors.Is(err, target) {
				return kind
			}
		}
	}
	return KindInfrastructure
}
