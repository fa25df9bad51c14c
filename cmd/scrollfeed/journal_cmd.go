package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"scrollfeed/journal"
)

// runJournalCommand implements `scrollfeed journal`: print recent sessions from the journal.
func runJournalCommand(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite session journal path (required)")
	limit := fs.Int("limit", 10, "Number of recent sessions to show (0 = all)")
	milestones := fs.Bool("milestones", false, "List milestones under each session")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: scrollfeed journal -db PATH [-limit N] [-milestones]")
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "error: -db is required")
		fs.Usage()
		os.Exit(1)
	}

	store, err := journal.NewStore(ExpandPath(*dbPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := printJournal(os.Stdout, store, *limit, *milestones); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printJournal(w io.Writer, store *journal.Store, limit int, withMilestones bool) error {
	n, total, err := store.Totals()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s sessions, %s m scrolled\n", humanize.Comma(n), humanize.FormatFloat("#,###.##", total))

	sessions, err := store.Sessions(limit)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		state := "open"
		if !s.EndedAt.IsZero() {
			state = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "%s  %s  %-8s  %s m  (%s m net, %s steps)\n",
			s.ID,
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			state,
			humanize.FormatFloat("#,###.##", s.AbsoluteMeters),
			humanize.FormatFloat("#,###.##", s.SignedMeters),
			humanize.FormatFloat("#,###.#", s.Steps))

		if !withMilestones {
			continue
		}
		ms, err := store.Milestones(s.ID)
		if err != nil {
			return err
		}
		for _, m := range ms {
			fmt.Fprintf(w, "    %s m at %s\n", humanize.FormatFloat("#,###.", m.Meters), m.ReachedAt.Local().Format("15:04:05"))
		}
	}
	return nil
}
