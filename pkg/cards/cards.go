// Package cards implements card identifiers, per-pack usage ledgers and
// the random allocation used when dealing prompts and responses.
package cards

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// BaseHandSize is the hand size for a single-pick prompt.
const BaseHandSize = 10

var (
	ErrExhausted       = errors.New("no unused cards remain")
	ErrNotEnoughToPick = errors.New("hand holds fewer cards than the prompt requires")
)

// CardID identifies one card inside a pack. A non-empty CustomInput marks a
// free-text write-in that never touches the pack itself.
type CardID struct {
	PackID      string `json:"packId"`
	CardIndex   int    `json:"cardIndex"`
	CustomInput string `json:"customInput,omitempty"`
}

// Key returns the ledger key "packId:cardIndex".
func (c CardID) Key() string {
	return c.PackID + ":" + strconv.Itoa(c.CardIndex)
}

// IsCustom reports whether the card is a write-in.
func (c CardID) IsCustom() bool {
	return c.CustomInput != ""
}

func (c CardID) String() string {
	if c.IsCustom() {
		return fmt.Sprintf("%s(custom %q)", c.Key(), c.CustomInput)
	}
	return c.Key()
}

// Equal compares all three fields, so two write-ins from the same pack slot
// with different text are distinct plays.
func Equal(a, b CardID) bool {
	return a.PackID == b.PackID && a.CardIndex == b.CardIndex && a.CustomInput == b.CustomInput
}

// Contains reports whether list holds a card equal to c.
func Contains(list []CardID, c CardID) bool {
	for _, x := range list {
		if Equal(x, c) {
			return true
		}
	}
	return false
}

// Without returns the cards of hand that are not present in remove.
func Without(hand, remove []CardID) []CardID {
	out := make([]CardID, 0, len(hand))
	for _, c := range hand {
		if !Contains(remove, c) {
			out = append(out, c)
		}
	}
	return out
}

// TargetHandSize is the number of response cards a player holds for a
// prompt requiring pick cards.
func TargetHandSize(pick int) int {
	if pick < 1 {
		pick = 1
	}
	return BaseHandSize + pick - 1
}

// PackMap is a ledger of card ids keyed by pack id then card index.
type PackMap map[string]map[int]CardID

// FullPack builds the allowed map for a pack holding n cards.
func FullPack(packID string, n int) map[int]CardID {
	m := make(map[int]CardID, n)
	for i := 0; i < n; i++ {
		m[i] = CardID{PackID: packID, CardIndex: i}
	}
	return m
}

// Add records c in the ledger.
func (m PackMap) Add(c CardID) {
	pack, ok := m[c.PackID]
	if !ok {
		pack = make(map[int]CardID)
		m[c.PackID] = pack
	}
	pack[c.CardIndex] = CardID{PackID: c.PackID, CardIndex: c.CardIndex}
}

// Has reports whether the ledger holds the pack slot of c.
func (m PackMap) Has(c CardID) bool {
	_, ok := m[c.PackID][c.CardIndex]
	return ok
}

// Count returns the number of entries across all packs.
func (m PackMap) Count() int {
	n := 0
	for _, pack := range m {
		n += len(pack)
	}
	return n
}

// Clone returns a deep copy.
func (m PackMap) Clone() PackMap {
	out := make(PackMap, len(m))
	for packID, pack := range m {
		cp := make(map[int]CardID, len(pack))
		for i, c := range pack {
			cp[i] = c
		}
		out[packID] = cp
	}
	return out
}

// Flatten returns every entry in a stable pack/index order.
func (m PackMap) Flatten() []CardID {
	out := make([]CardID, 0, m.Count())
	packIDs := make([]string, 0, len(m))
	for id := range m {
		packIDs = append(packIDs, id)
	}
	sort.Strings(packIDs)
	for _, id := range packIDs {
		idx := make([]int, 0, len(m[id]))
		for i := range m[id] {
			idx = append(idx, i)
		}
		sort.Ints(idx)
		for _, i := range idx {
			out = append(out, m[id][i])
		}
	}
	return out
}

// Remaining returns the allowed cards that are absent from used.
func Remaining(allowed, used PackMap) []CardID {
	var out []CardID
	for _, c := range allowed.Flatten() {
		if !used.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// AllowedCard picks a uniformly random allowed card that is not in used.
func AllowedCard(allowed, used PackMap, rng Rand) (CardID, error) {
	valid := Remaining(allowed, used)
	if len(valid) == 0 {
		return CardID{}, ErrExhausted
	}
	return valid[rng.Intn(len(valid))], nil
}

// TopUp draws cards into hand until it holds target cards, recording each
// draw in used.
func TopUp(hand []CardID, target int, allowed, used PackMap, rng Rand) ([]CardID, error) {
	out := append([]CardID(nil), hand...)
	for len(out) < target {
		c, err := AllowedCard(allowed, used, rng)
		if err != nil {
			return nil, err
		}
		used.Add(c)
		out = append(out, c)
	}
	return out, nil
}

// RandomSelection picks n distinct cards from hand.
func RandomSelection(hand []CardID, n int, rng Rand) ([]CardID, error) {
	if n > len(hand) {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNotEnoughToPick, n, len(hand))
	}
	pool := append([]CardID(nil), hand...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:n], nil
}
