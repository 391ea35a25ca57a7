package game

import (
	"fmt"
	"strings"
)

// Rank is a card rank, in the lower case form used on the wire.
type Rank string

// Suit is a card suit, in the lower case form used on the wire.
type Suit string

const (
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "jack"
	Queen Rank = "queen"
	King  Rank = "king"
	Ace   Rank = "ace"
)

const (
	Hearts   Suit = "hearts"
	Spades   Suit = "spades"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

// Ranks and Suits in canonical order.
var (
	Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
	Suits = []Suit{Hearts, Spades, Diamonds, Clubs}
)

// DeckSize is the number of distinct cards.
const DeckSize = 52

// Card is a value; two cards with the same rank and suit are the same card.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// Universe returns all 52 cards, rank major.
func Universe() []Card {
	out := make([]Card, 0, DeckSize)
	for _, r := range Ranks {
		for _, s := range Suits {
			out = append(out, Card{Rank: r, Suit: s})
		}
	}
	return out
}

// ParseCard makes a card from wire strings, checking both parts.
func ParseCard(rank, suit string) (Card, error) {
	c := Card{Rank: Rank(strings.ToLower(rank)), Suit: Suit(strings.ToLower(suit))}
	if !c.Valid() {
		return Card{}, errBadCard(rank, suit)
	}
	return c, nil
}

// Valid is true for members of the universe only.
func (c Card) Valid() bool {
	return c.Rank.valid() && c.Suit.valid()
}

func (r Rank) valid() bool {
	for _, x := range Ranks {
		if x == r {
			return true
		}
	}
	return false
}

func (s Suit) valid() bool {
	for _, x := range Suits {
		if x == s {
			return true
		}
	}
	return false
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", titleCase(string(c.Rank)), titleCase(string(c.Suit)))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// IsWild is true for aces, which go on anything.
func (c Card) IsWild() bool {
	return c.Rank == Ace
}

// IsSkip is true for tens.
func (c Card) IsSkip() bool {
	return c.Rank == Ten
}

// PickupCount is how many cards the next player has to draw.
func (c Card) PickupCount() int {
	switch c.Rank {
	case Two:
		return 2
	case Five:
		return 5
	default:
		return 0
	}
}

// IsPickup is true if the card makes someone draw.
func (c Card) IsPickup() bool {
	return c.PickupCount() > 0
}

// PlayableOn says whether c may go on top of top. Only the wildness of c
// matters, never the wildness of top.
func (c Card) PlayableOn(top Card) bool {
	return c.Suit == top.Suit || c.Rank == top.Rank || c.IsWild()
}
