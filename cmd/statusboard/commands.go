package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/jaakkos/statusboard/internal/app"
	"github.com/jaakkos/statusboard/internal/domain"
	"github.com/jaakkos/statusboard/internal/policy"
	"github.com/jaakkos/statusboard/internal/repository/sqlite"
)

const defaultHistoryLimit = 10

// runHistoryCommand implements "statusboard history [element] [limit]".
func runHistoryCommand(args []string) {
	element, limit, err := parseHistoryArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	pol := policy.New(loadConfig(log.New(os.Stderr, "", 0)))
	store := openJournal(pol)
	defer store.Close()

	rows, err := store.Recent(element, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	writeHistory(os.Stdout, rows)
}

// runTailCommand implements "statusboard tail": follow new journal rows until interrupted.
func runTailCommand() {
	logger := log.New(os.Stderr, logPrefix, log.LstdFlags)
	pol := policy.New(loadConfig(logger))
	store := openJournal(pol)
	defer store.Close()

	from, err := store.LatestID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tailer := app.NewTailer(pol.SignalFilePath(), store, from, func(u domain.Update) {
		writeUpdate(os.Stdout, u)
	}, logger)
	logger.Printf("Tailing %s from #%d (Ctrl-C to stop)", pol.JournalPath(), from)
	go tailer.Start(ctx)

	<-ctx.Done()
	tailer.Stop()
}

// runEndpointsCommand implements "statusboard endpoints".
func runEndpointsCommand() {
	pol := policy.New(loadConfig(log.New(os.Stderr, "", 0)))
	writeEndpoints(os.Stdout, pol.Endpoints())
}

func openJournal(pol *policy.Policy) *sqlite.Store {
	if !pol.JournalEnabled() {
		fmt.Fprintln(os.Stderr, "error: journal is disabled (set journal.enabled in the file named by STATUSBOARD_CONFIG)")
		os.Exit(1)
	}
	store, err := sqlite.New(pol.JournalPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return store
}

// parseHistoryArgs accepts an optional element and an optional positive limit, in that order.
func parseHistoryArgs(args []string) (string, int, error) {
	element, limit := "", defaultHistoryLimit
	if len(args) > 2 {
		return "", 0, fmt.Errorf("usage: statusboard history [element] [limit]")
	}
	for i, a := range args {
		if n, err := strconv.Atoi(a); err == nil {
			if i != len(args)-1 {
				return "", 0, fmt.Errorf("limit %q must be the last argument", a)
			}
			if n <= 0 {
				return "", 0, fmt.Errorf("limit must be positive, got %d", n)
			}
			limit = n
			continue
		}
		if i > 0 || !domain.IsElement(a) {
			return "", 0, fmt.Errorf("unknown element %q (want one of %s)", a, strings.Join(domain.Elements(), ", "))
		}
		element = a
	}
	return element, limit, nil
}

func writeHistory(w io.Writer, rows []domain.Update) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No journal entries.")
		return
	}
	for _, u := range rows {
		fmt.Fprintf(w, "#%d %s from %s, %s\n%s\n\n", u.ID, u.Element, u.Endpoint, humanize.Time(u.RecordedAt), u.Text)
	}
}

func writeUpdate(w io.Writer, u domain.Update) {
	fmt.Fprintf(w, "[%s] #%d %s\n%s\n", u.RecordedAt.Local().Format("15:04:05"), u.ID, u.Element, u.Text)
}

func writeEndpoints(w io.Writer, endpoints []domain.Endpoint) {
	for _, ep := range endpoints {
		stamp := ""
		if ep.Stamp {
			stamp = " +" + domain.ElementLastUpdated
		}
		fmt.Fprintf(w, "%-13s %-13s %s%s\n", ep.Name, ep.Element, ep.URL, stamp)
	}
}
