package bottest

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

// Dice emoji accepted by sendDice.
const (
	DiceEmojiDie        = "🎲"
	DiceEmojiDarts      = "🎯"
	DiceEmojiBowling    = "🎳"
	DiceEmojiBasketball = "🏀"
	DiceEmojiFootball   = "⚽"
	DiceEmojiSlot       = "🎰"
)

// RandomDiceValue asks for a value drawn from the emoji's range. Every range
// starts at 1, so it never collides with a valid value.
const RandomDiceValue = 0

// DiceRange returns the inclusive value range of emoji. Unknown emoji roll
// like a standard die.
func DiceRange(emoji string) (int, int) {
	switch emoji {
	case DiceEmojiBasketball, DiceEmojiFootball:
		return 1, 5
	case DiceEmojiSlot:
		return 1, 64
	default:
		return 1, 6
	}
}

// ValidateDiceValue reports ErrInvalidArgument when value is outside the
// range of emoji.
func ValidateDiceValue(emoji string, value int) error {
	low, high := DiceRange(emoji)
	if value < low || value > high {
		return fmt.Errorf(
			"dice value %d is out of range for emoji %q, valid range is %d-%d: %w",
			value, emoji, low, high, ErrInvalidArgument,
		)
	}

	return nil
}

// randomizer serializes access to an optional seeded source.
type randomizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newRandomizer(source rand.Source) *randomizer {
	if source == nil {
		return &randomizer{}
	}

	return &randomizer{rnd: rand.New(source)}
}

// between returns a uniform value in [low, high].
func (r *randomizer) between(low, high int) int {
	if r == nil || r.rnd == nil {
		return low + rand.IntN(high-low+1)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return low + r.rnd.IntN(high-low+1)
}

// rollDice draws a value from the range of emoji.
func (r *randomizer) rollDice(emoji string) int {
	return r.between(DiceRange(emoji))
}
