package game

import (
	"testing"
)

func TestCard_universe(t *testing.T) {
	u := Universe()
	if len(u) != DeckSize {
		t.Errorf("universe has %d cards", len(u))
	}
	seen := map[Card]bool{}
	for _, c := range u {
		if seen[c] {
			t.Errorf("%s twice", c)
		}
		seen[c] = true
	}
}

func TestCard_parse(t *testing.T) {
	c, err := ParseCard("Queen", "HEARTS")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != (Card{Queen, Hearts}) {
		t.Errorf("parsed %v", c)
	}
	if c.String() != "Queen of Hearts" {
		t.Errorf("string %q", c.String())
	}

	if _, err := ParseCard("11", "hearts"); !IsValidation(err) {
		t.Errorf("bad rank: %v", err)
	}
	if _, err := ParseCard("2", "diamond"); !IsValidation(err) {
		t.Errorf("bad suit: %v", err)
	}
}

func TestCard_effects(t *testing.T) {
	for _, c := range Universe() {
		if c.IsWild() != (c.Rank == Ace) {
			t.Errorf("wild %s", c)
		}
		if c.IsSkip() != (c.Rank == Ten) {
			t.Errorf("skip %s", c)
		}
		want := 0
		switch c.Rank {
		case Two:
			want = 2
		case Five:
			want = 5
		}
		if c.PickupCount() != want {
			t.Errorf("pickup %s: %d", c, c.PickupCount())
		}
		if c.IsPickup() != (want > 0) {
			t.Errorf("is pickup %s", c)
		}
	}
}

func TestCard_playableOn(t *testing.T) {
	top := Card{Seven, Clubs}
	cases := []struct {
		c    Card
		want bool
	}{
		{Card{Two, Clubs}, true},
		{Card{Seven, Hearts}, true},
		{Card{Ace, Diamonds}, true},
		{Card{Eight, Hearts}, false},
		{Card{King, Spades}, false},
	}
	for _, tc := range cases {
		if got := tc.c.PlayableOn(top); got != tc.want {
			t.Errorf("%s on %s: got %v", tc.c, top, got)
		}
	}
}

func TestCard_wildTopIsNotWild(t *testing.T) {
	top := Card{Ace, Spades}
	if (Card{Nine, Hearts}).PlayableOn(top) {
		t.Errorf("only the played card's wildness counts")
	}
	if !(Card{Nine, Spades}).PlayableOn(top) {
		t.Errorf("suit should match")
	}
}
