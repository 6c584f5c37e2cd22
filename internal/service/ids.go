package service

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/samber/lo"

	"github.com/freeeve/partycards/pkg/cards"
)

var idAdjectives = []string{
	"able", "brave", "calm", "clever", "cozy", "crisp", "daring", "eager",
	"fancy", "fuzzy", "gentle", "giddy", "happy", "jolly", "keen", "lucky",
	"merry", "mighty", "nimble", "noble", "odd", "plucky", "proud", "quick",
	"quiet", "rapid", "shiny", "silly", "sneaky", "spicy", "swift", "tidy",
	"wacky", "witty", "zany", "zesty",
}

var idNouns = []string{
	"badger", "bat", "bear", "beaver", "bison", "camel", "cat", "cobra",
	"crab", "crow", "deer", "dingo", "dog", "duck", "eagle", "ferret",
	"fox", "frog", "gecko", "goat", "goose", "hawk", "heron", "koala",
	"lemur", "lion", "llama", "mole", "moose", "otter", "owl", "panda",
	"parrot", "puffin", "rabbit", "seal", "sloth", "squid", "tiger", "toad",
	"walrus", "wolf", "yak", "zebra",
}

// botNicknames are handed out to bots that join a game.
var botNicknames = []string{
	"Beep Boop", "Clanky", "Sir Randomly", "Dice Goblin", "Chaos Intern",
	"Lil' Entropy", "Coin Flip", "Mr. Shuffle", "Wildcard Wendy",
	"Roll Model", "Dealer's Choice", "Captain Whatever", "Unpredictable Pete",
	"Lady Luck", "Static", "Glitch", "Toaster", "Roomba", "Calculator",
	"Autocorrect",
}

// humanReadableID returns an id like "brave-otter-42".
func humanReadableID(rng cards.Rand) string {
	adj := idAdjectives[rng.Intn(len(idAdjectives))]
	noun := idNouns[rng.Intn(len(idNouns))]
	return fmt.Sprintf("%s-%s-%d", adj, noun, rng.Intn(100))
}

// botGUID returns a short random id for a bot member.
func botGUID() (string, error) {
	return gonanoid.New(14)
}

// botNickname picks a nickname no current member is using.
func botNickname(used []string, rng cards.Rand) string {
	free := lo.Without(botNicknames, used...)
	if len(free) == 0 {
		return fmt.Sprintf("Bot %d", len(used)+1)
	}
	return free[rng.Intn(len(free))]
}
