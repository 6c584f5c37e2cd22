package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/freeeve/partycards/internal/model"
	"github.com/freeeve/partycards/pkg/cards"
)

// dealer draws prompts and responses for a game from its packs.
type dealer struct {
	packs PackSource
	rng   cards.Rand
}

// dealBlackCard replaces the game's prompt with an unused one. When every
// prompt has been used the black ledger starts over.
func (d *dealer) dealBlackCard(ctx context.Context, g *model.Game) error {
	black, _, err := allowedCards(ctx, d.packs, g)
	if err != nil {
		return err
	}
	if black.Count() == 0 {
		return fmt.Errorf("%w: selected packs have no prompts", ErrNotEnoughCards)
	}

	card, err := cards.AllowedCard(black, g.UsedBlackCards, d.rng)
	if errors.Is(err, cards.ErrExhausted) {
		g.UsedBlackCards = cards.PackMap{}
		card, err = cards.AllowedCard(black, g.UsedBlackCards, d.rng)
	}
	if err != nil {
		return err
	}
	g.UsedBlackCards.Add(card)
	g.BlackCard = card
	return nil
}

// pick returns the number of responses the current prompt needs.
func (d *dealer) pick(ctx context.Context, g *model.Game) (int, error) {
	if !g.HasBlackCard() {
		return 1, nil
	}
	def, err := blackCardDef(ctx, d.packs, g.BlackCard)
	if err != nil {
		return 0, err
	}
	return def.Pick, nil
}

// dealWhiteCards tops every active player up to the hand size for the
// current prompt. Dealing fails only when the packs cannot fill one hand
// per active player. If the unused supply cannot cover the draw, the ledger
// is reset to the cards active players already hold and drawing continues
// against the full pool.
func (d *dealer) dealWhiteCards(ctx context.Context, g *model.Game) error {
	_, white, err := allowedCards(ctx, d.packs, g)
	if err != nil {
		return err
	}
	pick, err := d.pick(ctx, g)
	if err != nil {
		return err
	}
	target := cards.TargetHandSize(pick)
	players := g.Players()
	if err := checkSupply(white, len(players)*target); err != nil {
		return err
	}

	required := lo.SumBy(players, func(p *model.GamePlayer) int {
		return max(target-len(p.WhiteCards), 0)
	})
	if g.UsedWhiteCards == nil {
		g.UsedWhiteCards = cards.PackMap{}
	}
	if len(cards.Remaining(white, g.UsedWhiteCards)) < required {
		g.UsedWhiteCards = heldCards(g)
	}
	if remaining := len(cards.Remaining(white, g.UsedWhiteCards)); remaining < required {
		return fmt.Errorf("%w: %d cards are free, but hands need %d more",
			ErrNotEnoughCards, remaining, required)
	}

	for _, p := range players {
		hand, err := cards.TopUp(p.WhiteCards, target, white, g.UsedWhiteCards, d.rng)
		if err != nil {
			return err
		}
		p.WhiteCards = hand
	}
	return nil
}

// dealHand tops up a single player, used when someone joins mid-game.
func (d *dealer) dealHand(ctx context.Context, g *model.Game, p *model.GamePlayer) error {
	_, white, err := allowedCards(ctx, d.packs, g)
	if err != nil {
		return err
	}
	pick, err := d.pick(ctx, g)
	if err != nil {
		return err
	}
	target := cards.TargetHandSize(pick)
	if err := checkSupply(white, len(g.Players())*target); err != nil {
		return err
	}
	need := max(target-len(p.WhiteCards), 0)
	if g.UsedWhiteCards == nil {
		g.UsedWhiteCards = cards.PackMap{}
	}
	if len(cards.Remaining(white, g.UsedWhiteCards)) < need {
		g.UsedWhiteCards = heldCards(g)
	}
	hand, err := cards.TopUp(p.WhiteCards, target, white, g.UsedWhiteCards, d.rng)
	if errors.Is(err, cards.ErrExhausted) {
		return fmt.Errorf("%w: packs contain %d cards", ErrNotEnoughCards, white.Count())
	}
	if err != nil {
		return err
	}
	p.WhiteCards = hand
	return nil
}

// checkSupply fails when the packs hold fewer white cards than need.
func checkSupply(white cards.PackMap, need int) error {
	if white.Count() < need {
		return fmt.Errorf("%w: packs contain %d cards, but you need at least %d",
			ErrNotEnoughCards, white.Count(), need)
	}
	return nil
}

// heldCards builds a ledger of the cards in active players' hands. Kicked
// members and spectators do not hold cards in play.
func heldCards(g *model.Game) cards.PackMap {
	held := cards.PackMap{}
	for _, p := range g.Players() {
		for _, c := range p.WhiteCards {
			if !c.IsCustom() {
				held.Add(c)
			}
		}
	}
	return held
}
