package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jaakkos/statusboard/internal/board"
	"github.com/jaakkos/statusboard/internal/policy"
)

type stepLog struct {
	mu    sync.Mutex
	steps []string
}

func (l *stepLog) add(step string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.steps = append(l.steps, step)
}

func (l *stepLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.steps...)
}

type fakePoller struct{ log *stepLog }

func (p fakePoller) Stop() { p.log.add("poller.Stop") }
func (p fakePoller) Wait() { p.log.add("poller.Wait") }

type fakeWatchdog struct{ log *stepLog }

func (w fakeWatchdog) Stop() { w.log.add("watchdog.Stop") }

type fakeConsole struct {
	log  *stepLog
	done chan struct{}
	hang bool
}

func (c *fakeConsole) Stop() {
	c.log.add("console.Stop")
	if !c.hang {
		close(c.done)
	}
}

func (c *fakeConsole) Done() <-chan struct{} { return c.done }

type fakeJournal struct {
	log *stepLog
	err error
}

func (j fakeJournal) Close() error {
	j.log.add("journal.Close")
	return j.err
}

func TestShutdown_Order(t *testing.T) {
	steps := &stepLog{}
	b := board.New()
	srv := httptest.NewServer(newMux(0, b, policy.New(policy.DefaultConfig()).Endpoints(), nil, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health before shutdown: %v", err)
	}
	resp.Body.Close()

	sd := &shutdown{
		poller:   fakePoller{steps},
		watchdog: fakeWatchdog{steps},
		console:  &fakeConsole{log: steps, done: make(chan struct{})},
		httpShutdown: func() {
			srv.Close()
			steps.add("http")
		},
		journal:     fakeJournal{log: steps},
		consoleWait: time.Second,
		logger:      log.New(io.Discard, "", 0),
	}
	sd.run()

	want := []string{"poller.Stop", "watchdog.Stop", "console.Stop", "http", "poller.Wait", "journal.Close"}
	if got := steps.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("shutdown steps = %v, want %v", got, want)
	}
	if _, err := http.Get(srv.URL + "/health"); err == nil {
		t.Error("HTTP server still serving after shutdown")
	}
}

func TestShutdown_OptionalServicesAbsent(t *testing.T) {
	steps := &stepLog{}
	sd := &shutdown{
		poller: fakePoller{steps},
		logger: log.New(io.Discard, "", 0),
	}
	sd.run()

	want := []string{"poller.Stop", "poller.Wait"}
	if got := steps.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("shutdown steps = %v, want %v", got, want)
	}
}

func TestShutdown_HungConsoleDoesNotBlock(t *testing.T) {
	steps := &stepLog{}
	var logs strings.Builder
	sd := &shutdown{
		poller:      fakePoller{steps},
		console:     &fakeConsole{log: steps, done: make(chan struct{}), hang: true},
		journal:     fakeJournal{log: steps, err: errors.New("disk full")},
		consoleWait: 20 * time.Millisecond,
		logger:      log.New(&logs, "", 0),
	}

	finished := make(chan struct{})
	go func() {
		sd.run()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown blocked on a console that never stops")
	}

	want := []string{"poller.Stop", "console.Stop", "poller.Wait", "journal.Close"}
	if got := steps.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("shutdown steps = %v, want %v", got, want)
	}
	if !strings.Contains(logs.String(), "Console did not stop") {
		t.Errorf("missing console timeout log: %q", logs.String())
	}
	if !strings.Contains(logs.String(), "close journal: disk full") {
		t.Errorf("missing journal close error: %q", logs.String())
	}
}
