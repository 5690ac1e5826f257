// Statusboard polls the stats and analyzer services on a randomized interval
// and shows their latest JSON on a terminal console and a web dashboard.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/term"

	"github.com/jaakkos/statusboard/internal/app"
	"github.com/jaakkos/statusboard/internal/board"
	"github.com/jaakkos/statusboard/internal/console"
	"github.com/jaakkos/statusboard/internal/dashboard"
	"github.com/jaakkos/statusboard/internal/domain"
	"github.com/jaakkos/statusboard/internal/policy"
	"github.com/jaakkos/statusboard/internal/repository"
	"github.com/jaakkos/statusboard/internal/tools/view"
)

// Version is set by -ldflags at build time.
var Version = "dev"

const logPrefix = "[statusboard] "

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "run":
		case "history":
			runHistoryCommand(os.Args[2:])
			return
		case "tail":
			runTailCommand()
			return
		case "endpoints":
			runEndpointsCommand()
			return
		case "--version", "-v", "version":
			fmt.Println("statusboard " + Version)
			return
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q (want run, history, tail, endpoints or version)\n", os.Args[1])
			os.Exit(2)
		}
	}
	run()
}

func run() {
	tmpLogger := log.New(os.Stderr, logPrefix, log.LstdFlags|log.Lshortfile)
	cfg := loadConfig(tmpLogger)
	pol := policy.New(cfg)

	var con *console.Console
	if console.ShouldEnable(pol.ConsoleMode()) {
		con = console.New()
	}

	var extra []io.Writer
	if con != nil {
		extra = append(extra, con.LogWriter())
	}
	logger := setupLogger(pol.LogFile(), con == nil, extra...)
	logger.Println("Starting statusboard...")
	logger.Printf("Log file: %s", pol.LogFile())

	endpoints := pol.Endpoints()
	for _, ep := range endpoints {
		logger.Printf("Endpoint %s: %s", ep.Name, ep.URL)
	}

	b := board.New()
	surfaces := board.Fanout{b}
	if con != nil {
		surfaces = append(surfaces, con)
	}

	var journal app.Journal
	if pol.JournalEnabled() {
		j, err := repository.NewJournal(pol.JournalPath())
		if err != nil {
			logger.Printf("Warning: journal init failed: %v (journal disabled)", err)
		} else {
			journal = j
			logger.Printf("Journal: %s (retention=%d per element)", pol.JournalPath(), pol.JournalRetentionMax())
		}
	}

	minInterval, maxInterval := pol.IntervalBounds()
	pollerOpts := []app.PollerOption{
		app.WithInterval(minInterval, maxInterval),
		app.WithRequestTimeout(pol.RequestTimeout()),
		app.WithTimeLayout(pol.TimeLayout()),
	}
	if journal != nil {
		pollerOpts = append(pollerOpts, app.WithJournal(journal, pol.SignalFilePath(), pol.JournalRetentionMax()))
	}
	poller := app.NewPoller(endpoints, surfaces, logger, pollerOpts...)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signal.Ignore(syscall.SIGHUP)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	var mcpServer *server.MCPServer
	if pol.MCPEnabled() {
		mcpServer = newMCPServer(b, endpoints, journal, logger)
	}

	httpShutdown := startHTTPServer(pol.HTTPPort(), b, endpoints, journal, mcpServer, logger)

	go poller.Start(ctx)

	var watchdog *app.Watchdog
	if d := pol.StaleAfter(); d > 0 {
		watchdog = app.NewWatchdog(b, endpoints, logger, app.WithStaleThreshold(d))
		go watchdog.Start(ctx)
	}

	if con != nil {
		go func() {
			if err := con.Run(); err != nil {
				logger.Printf("Console stopped: %v", err)
			}
			// Quitting the console ends the process.
			cancel()
		}()
	}

	<-ctx.Done()

	sd := &shutdown{
		poller:       poller,
		httpShutdown: httpShutdown,
		journal:      journal,
		consoleWait:  2 * time.Second,
		logger:       logger,
	}
	if watchdog != nil {
		sd.watchdog = watchdog
	}
	if con != nil {
		sd.console = con
	}
	sd.run()

	logger.Println("Statusboard stopped")
}

// shutdown tears down the running services. The poller stops launching
// cycles first, the HTTP server drains next, and the journal closes only
// after every in-flight fetch has finished writing to it.
type shutdown struct {
	poller interface {
		Stop()
		Wait()
	}
	watchdog interface{ Stop() }
	console  interface {
		Stop()
		Done() <-chan struct{}
	}
	httpShutdown func()
	journal      any
	consoleWait  time.Duration
	logger       *log.Logger
}

func (s *shutdown) run() {
	s.poller.Stop()
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
	if s.console != nil {
		s.console.Stop()
		select {
		case <-s.console.Done():
		case <-time.After(s.consoleWait):
			s.logger.Printf("Console did not stop within %s", s.consoleWait)
		}
	}
	if s.httpShutdown != nil {
		s.httpShutdown()
	}
	s.poller.Wait()

	if c, ok := s.journal.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Printf("Warning: close journal: %v", err)
		}
	}
}

// newMCPServer builds the read-only MCP server served at /mcp.
func newMCPServer(b *board.Board, endpoints []domain.Endpoint, journal app.JournalReader, logger *log.Logger) *server.MCPServer {
	hooks := &server.Hooks{}
	hooks.AddAfterCallTool(func(ctx context.Context, id any, message *mcp.CallToolRequest, result *mcp.CallToolResult) {
		if message != nil {
			logger.Printf("Calling tool: %s", message.Params.Name)
		}
	})

	s := server.NewMCPServer(
		"statusboard",
		Version,
		server.WithToolCapabilities(false),
		server.WithHooks(hooks),
	)

	var opts []view.RegisterOption
	if journal != nil {
		opts = append(opts, view.WithJournal(journal))
	}
	view.Register(s, b, endpoints, logger, opts...)
	return s
}

// startHTTPServer starts the dashboard HTTP server in the background. Returns a
// shutdown function. Uses net.Listen to support port 0 (auto-assign).
func startHTTPServer(port int, b *board.Board, endpoints []domain.Endpoint, journal app.JournalReader, mcpServer *server.MCPServer, logger *log.Logger) func() {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		logger.Fatalf("HTTP listen: %v", err)
	}
	actualPort := ln.Addr().(*net.TCPAddr).Port
	baseURL := fmt.Sprintf("http://localhost:%d", actualPort)

	logger.Printf("HTTP server on :%d", actualPort)
	logger.Printf("  Dashboard:               %s/dashboard", baseURL)

	mux := newMux(actualPort, b, endpoints, journal, mcpServer)
	if mcpServer != nil {
		logger.Printf("  MCP clients connect at:  %s/mcp", baseURL)
	}

	httpServer := &http.Server{Handler: mux}

	go func() {
		if err := httpServer.Serve(ln); err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}
}

func newMux(port int, b *board.Board, endpoints []domain.Endpoint, journal app.JournalReader, mcpServer *server.MCPServer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","port":%d,"revision":%d}`, port, b.Revision())
	})
	if mcpServer != nil {
		mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer))
	}

	var dashOpts []dashboard.HandlerOption
	if journal != nil {
		dashOpts = append(dashOpts, dashboard.WithJournal(journal))
	}
	dashboard.NewHandler(b, endpoints, dashOpts...).RegisterRoutes(mux)
	return mux
}

// setupLogger creates a logger that writes to a log file, any extra writers,
// and stderr when allowed. Stderr is only used when it is a terminal, or when
// there is no other output.
func setupLogger(logFilePath string, allowStderr bool, extra ...io.Writer) *log.Logger {
	var writers []io.Writer

	stderrIsTerminal := term.IsTerminal(int(os.Stderr.Fd()))

	hasLogFile := false
	lower := strings.ToLower(logFilePath)
	if lower != "none" && lower != "off" && logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err == nil {
			f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err == nil {
				writers = append(writers, f)
				hasLogFile = true
			} else {
				fmt.Fprintf(os.Stderr, "%sWarning: cannot open log file %s: %v\n", logPrefix, logFilePath, err)
			}
		} else {
			fmt.Fprintf(os.Stderr, "%sWarning: cannot create log dir %s: %v\n", logPrefix, filepath.Dir(logFilePath), err)
		}
	}
	writers = append(writers, extra...)

	if allowStderr && (stderrIsTerminal || !hasLogFile) {
		writers = append(writers, os.Stderr)
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	return log.New(io.MultiWriter(writers...), logPrefix, log.LstdFlags|log.Lshortfile)
}

// loadConfig loads configuration from STATUSBOARD_CONFIG or defaults.
func loadConfig(logger *log.Logger) *policy.Config {
	cfg := policy.DefaultConfig()
	if configPath := os.Getenv("STATUSBOARD_CONFIG"); configPath != "" {
		var err error
		cfg, err = policy.LoadConfig(configPath)
		if err != nil {
			logger.Printf("Warning: failed to load config %s: %v, using defaults", configPath, err)
			cfg = policy.DefaultConfig()
		}
	}
	return cfg
}
