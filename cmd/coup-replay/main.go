// Command coup-replay prints stored coup matches in the terminal.
//
//	coup-replay -list
//	coup-replay <matchId>            fetch from the host's history API
//	coup-replay -file match.json     a tape, a history entry or a script
//	coup-replay -step 12 <matchId>   one step with the table at that point
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"coup-lite/card"
	"coup-lite/coup"
	"coup-lite/replay"

	"github.com/pterm/pterm"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "host base URL")
	file := flag.String("file", "", "read a tape, history entry or script from a file")
	list := flag.Bool("list", false, "list recent matches")
	limit := flag.Int("limit", 20, "entries shown by -list")
	step := flag.Int("step", -1, "show the table at one step")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	client := newHistoryClient(*server)

	if *list {
		items, err := client.recent(ctx, *limit)
		if err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}
		printRecent(items)
		return
	}

	var (
		tape *replay.Tape
		err  error
	)
	switch {
	case *file != "":
		tape, err = loadFile(*file)
	case flag.NArg() == 1:
		tape, err = client.match(ctx, flag.Arg(0))
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [-server URL] [-step K] <matchId> | -file PATH | -list\n", os.Args[0])
		os.Exit(2)
	}
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	printHeader(tape)
	if *step >= 0 {
		snap, err := tape.At(*step)
		if err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}
		pterm.Info.Printfln("Step %d: %s", *step, tape.Steps[*step].Text)
		printTable(snap)
		return
	}
	printSteps(tape)
	if final, ok := tape.Final(); ok {
		printTable(final)
	}
}

func printRecent(items []historyEntry) {
	if len(items) == 0 {
		pterm.Info.Println("No matches recorded yet.")
		return
	}
	data := pterm.TableData{{"Match", "Room", "Played", "Winner", "Steps"}}
	for _, it := range items {
		data = append(data, []string{
			it.MatchID,
			it.Room,
			it.PlayedAt.Local().Format("2006-01-02 15:04"),
			it.WinnerName,
			fmt.Sprint(it.Steps),
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printHeader(tape *replay.Tape) {
	pterm.DefaultHeader.WithFullWidth().Println("Coup replay " + tape.MatchID)
	names := make([]string, 0, len(tape.Players))
	for _, p := range tape.Players {
		name := p.Name
		if p.Bot {
			name += " (bot)"
		}
		names = append(names, name)
	}
	pterm.Info.Printfln("Seed %d, %d steps, players: %s", tape.Seed, tape.Len(), strings.Join(names, ", "))
}

func printSteps(tape *replay.Tape) {
	for _, s := range tape.Steps {
		text := s.Text
		switch {
		case strings.Contains(text, "WINS THE GAME"):
			text = pterm.LightGreen(text)
		case strings.Contains(text, "ELIMINATED"), strings.Contains(text, "BLUFFING"):
			text = pterm.LightRed(text)
		case strings.Contains(text, "CHALLENGES"), strings.Contains(text, "BLOCKS"):
			text = pterm.LightYellow(text)
		}
		pterm.Printfln("%4d  %s", s.Index, text)
	}
}

// printTable renders one box per player with coins and influence.
func printTable(snap coup.Snapshot) {
	var row []pterm.Panel
	for _, p := range snap.Players {
		box := pterm.DefaultBox.WithHorizontalPadding(2)
		title := pterm.LightCyan(p.Name)
		if !p.Alive {
			title = pterm.Gray(p.Name + " (out)")
		}
		body := pterm.Sprintfln("Coins: %d", p.Coins) +
			pterm.Sprintfln("Hand: %s", cards(p.Hand)) +
			pterm.Sprintf("Lost: %s", cards(p.Revealed))
		row = append(row, pterm.Panel{Data: box.WithTitle(title).WithTitleTopCenter().Sprint(body)})
	}
	pterm.DefaultPanel.WithPanels([][]pterm.Panel{row}).Render()
	if snap.GameOver {
		pterm.Success.Printfln("Winner: %s", snap.Winner)
	}
}

func cards(cs []card.Card) string {
	if len(cs) == 0 {
		return "-"
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		if c == card.Hidden {
			parts[i] = "??"
			continue
		}
		parts[i] = c.Role.String()
	}
	return strings.Join(parts, " ")
}
