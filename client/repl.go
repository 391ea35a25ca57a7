package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	rl "github.com/chzyer/readline"

	"github.com/undeconstructed/lastcard/game"
)

const (
	RED    = "[31m"
	GREEN  = "[32m"
	YELLOW = "[33m"
	BLUE   = "[34m"
	RESET  = "[0m"
)

func col(s game.Suit) string {
	switch s {
	case game.Hearts, game.Diamonds:
		return RED
	default:
		return BLUE
	}
}

func showCard(c game.Card) string {
	return fmt.Sprintf("\033%s%s\033%s", col(c.Suit), c, RESET)
}

func showCards(cs []game.Card) string {
	var out []string
	for _, c := range cs {
		out = append(out, showCard(c))
	}
	return strings.Join(out, ", ")
}

// ParseCards reads "<rank> <suit> <rank> <suit> ...".
func ParseCards(args []string) ([]game.Card, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, errors.New("play <rank> <suit> [<rank> <suit> ...]")
	}
	var out []game.Card
	for i := 0; i < len(args); i += 2 {
		c, err := game.ParseCard(args[i], args[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func names(st game.StateView) map[string]string {
	out := map[string]string{}
	for _, p := range st.Players {
		out[p.ID] = p.Name
	}
	return out
}

// describe says what an action did, without giving away other hands.
func describe(a game.ActionView, me string, names map[string]string) string {
	who := names[a.PlayerID]
	if a.PlayerID == me {
		who = "you"
	}
	card := game.Card{Rank: a.CardRank, Suit: a.CardSuit}
	switch a.Effect {
	case game.EffectStartGame:
		return "the cards are dealt"
	case game.EffectShuffle:
		return "the pile is shuffled back into the deck"
	case game.EffectPickup:
		if a.PlayerID == me {
			return "you picked up " + showCard(card)
		}
		return who + " picked up a card"
	case game.EffectPlay:
		return who + " played " + showCard(card)
	default:
		return a.Effect.String()
	}
}

func printState(w io.Writer, st game.StateView, me string) {
	n := names(st)
	if !st.Started {
		fmt.Fprintf(w, "Waiting to start\n")
		for _, p := range st.Players {
			ready := "not ready"
			if p.Ready {
				ready = "ready"
			}
			fmt.Fprintf(w, "\t%s (%s): %s\n", p.Name, p.Role, ready)
		}
		return
	}
	if top, ok := st.Top(); ok {
		fmt.Fprintf(w, "Pile:  %s (%d cards)\n", showCard(top), len(st.Pile))
	}
	fmt.Fprintf(w, "Deck:  %d cards\n", len(st.Deck))
	for _, p := range st.Players {
		if p.Role != game.RolePlayer {
			continue
		}
		mark := " "
		if p.HasTurn {
			mark = "*"
		}
		last := ""
		if p.LastCard {
			last = " last card!"
		}
		fmt.Fprintf(w, "%s %s: %d cards%s\n", mark, p.Name, len(st.Hands[p.ID]), last)
	}
	if st.Winner != "" {
		fmt.Fprintf(w, "Winner: %s\n", n[st.Winner])
	}
	if hand := st.Hands[me]; len(hand) > 0 {
		fmt.Fprintf(w, "Hand:  %s\n", showCards(hand))
	}
}

func printResult(w io.Writer, res game.Result) {
	if !res.Success {
		fmt.Fprintf(w, "Refused: %s\n", strings.Join(res.Errors, "; "))
		return
	}
	fmt.Fprintf(w, "OK: %s\n", res.Outcome)
	if res.Drawn != nil {
		fmt.Fprintf(w, "Drew %s\n", showCard(*res.Drawn))
	}
	if res.Skip {
		fmt.Fprintf(w, "Next player misses a go\n")
	}
	if res.Pickup > 0 {
		fmt.Fprintf(w, "Next player picks up %d\n", res.Pickup)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warn)
	}
}

// Repl runs the prompt until the user quits. It follows box for news.
func Repl(ctx context.Context, l *rl.Instance, g GameClient, box *Box, me string) error {
	prompt := func(snap *Snapshot) {
		if snap == nil {
			l.SetPrompt("» ")
			return
		}
		name := names(snap.State)[me]
		for _, p := range snap.State.Players {
			if p.ID == me && p.HasTurn && snap.State.Winner == "" {
				l.SetPrompt(fmt.Sprintf("\033%s%s*»\033%s ", GREEN, name, RESET))
				return
			}
		}
		l.SetPrompt(fmt.Sprintf("%s» ", name))
	}

	go func() {
		var seen *Snapshot
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-box.Listen(seen):
				n := names(snap.State)
				for _, a := range snap.News {
					fmt.Fprintf(l.Stdout(), "> %s\n", describe(a, me, n))
				}
				if snap.State.Winner != "" && (seen == nil || seen.State.Winner == "") {
					fmt.Fprintf(l.Stdout(), "> %s wins\n", n[snap.State.Winner])
				}
				prompt(snap)
				l.Refresh()
				seen = snap
			}
		}
	}()

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	out := l.Stdout()
	for {
		prompt(box.Get())

		line, err := l.Readline()
		if err == rl.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if err == io.EOF {
			return nil
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			parts = []string{"state"}
		}

		rctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = command(rctx, out, g, me, parts[0], parts[1:])
		cancel()
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func command(ctx context.Context, w io.Writer, g GameClient, me, cmd string, args []string) error {
	switch cmd {
	case "ready":
		res, err := g.Ready(ctx)
		if err != nil {
			return err
		}
		printResult(w, res)
	case "start":
		res, err := g.Start(ctx)
		if err != nil {
			return err
		}
		printResult(w, res)
	case "play":
		cards, err := ParseCards(args)
		if err != nil {
			return err
		}
		res, err := g.Play(ctx, cards)
		if err != nil {
			return err
		}
		printResult(w, res)
	case "draw", "pickup":
		res, err := g.Pickup(ctx)
		if err != nil {
			return err
		}
		printResult(w, res)
	case "hand":
		st, err := g.State(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Hand: %s\n", showCards(st.Hands[me]))
	case "pile":
		st, err := g.State(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Pile: %s\n", showCards(st.Pile))
	case "state":
		st, err := g.State(ctx)
		if err != nil {
			return err
		}
		printState(w, st, me)
	default:
		fmt.Fprintf(w, "ready | start | play <rank> <suit> ... | draw | hand | pile | state\n")
	}
	return nil
}

// NewReadline sets up the prompt with completion for the commands.
func NewReadline(history string) (*rl.Instance, error) {
	var suits []rl.PrefixCompleterInterface
	for _, s := range game.Suits {
		suits = append(suits, rl.PcItem(string(s)))
	}
	var ranks []rl.PrefixCompleterInterface
	for _, r := range game.Ranks {
		ranks = append(ranks, rl.PcItem(string(r), suits...))
	}

	completer := rl.NewPrefixCompleter(
		rl.PcItem("ready"),
		rl.PcItem("start"),
		rl.PcItem("play", ranks...),
		rl.PcItem("draw"),
		rl.PcItem("hand"),
		rl.PcItem("pile"),
		rl.PcItem("state"),
	)

	return rl.NewEx(&rl.Config{
		Prompt:            "» ",
		HistoryFile:       history,
		AutoComplete:      completer,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
}
