package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/swdee/go-screendetect/locate"
	"github.com/urfave/cli/v2"
)

// maxSuggestions limits the windows listed when a target is not found
const maxSuggestions = 20

func windowsCommand() *cli.Command {
	return &cli.Command{
		Name:  "windows",
		Usage: "list visible windows and the processes that own them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagFilter,
				Usage: "only list windows whose title contains `TEXT`",
			},
		},
		Action: func(c *cli.Context) error {

			loc, err := locate.NewSystemLocator()

			if err != nil {
				return err
			}

			defer loc.Close()

			wins, err := loc.VisibleWindows()

			if err != nil {
				return err
			}

			if c.IsSet(flagFilter) {
				wins = locate.MatchWindows(wins, c.String(flagFilter))
			}

			fmt.Println(windowTable(wins))

			return nil
		},
	}
}

func windowTable(wins []locate.Window) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Handle", "PID", "Title"})

	for _, w := range wins {
		t.AppendRow(table.Row{fmt.Sprintf("%#x", uintptr(w.Handle)), w.PID, w.Title})
	}

	return t.Render()
}

// suggestWindows prints windows that might belong to process after it could
// not be found
func suggestWindows(loc *locate.Locator, process string) {

	wins, err := loc.VisibleWindows()

	if err != nil || len(wins) == 0 {
		return
	}

	stem := strings.TrimSuffix(strings.ToLower(process), ".exe")
	matched := locate.MatchWindows(wins, stem)

	if len(matched) > 0 {
		fmt.Fprintln(os.Stderr, "Windows matching the process name:")
	} else {
		fmt.Fprintln(os.Stderr, "No matching windows, visible windows are:")
		matched = wins
	}

	for _, w := range lo.Subset(matched, 0, maxSuggestions) {
		fmt.Fprintf(os.Stderr, "  - %s (pid %d)\n", w.Title, w.PID)
	}
}
