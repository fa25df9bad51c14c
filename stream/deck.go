package stream

import "math/rand/v2"

// Wrap maps any virtual index onto [0, length). It reports false for an empty deck.
func Wrap(index, length int) (int, bool) {
	if length <= 0 {
		return 0, false
	}
	return ((index % length) + length) % length, true
}

// Deck is a shuffled, read-only copy of a content list, addressed by virtual index.
type Deck[T any] struct {
	items []T
}

// NewDeck copies items and shuffles the copy once (Fisher-Yates). A nil rng seeds a fresh one.
func NewDeck[T any](items []T, rng *rand.Rand) *Deck[T] {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	shuffled := make([]T, len(items))
	copy(shuffled, items)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return &Deck[T]{items: shuffled}
}

// Len returns the number of distinct items.
func (d *Deck[T]) Len() int { return len(d.items) }

// RealIndex returns the deck position behind virtual index i.
func (d *Deck[T]) RealIndex(i int) (int, bool) { return Wrap(i, len(d.items)) }

// At returns the item at virtual index i. It reports false for an empty deck.
func (d *Deck[T]) At(i int) (T, bool) {
	j, ok := Wrap(i, len(d.items))
	if !ok {
		var zero T
		return zero, false
	}
	return d.items[j], true
}
