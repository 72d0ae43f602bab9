// Command imposter is the terminal client: local pass-the-device games, or
// online games through a roomd server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aaronzipp/imposter/internal/config"
	"github.com/aaronzipp/imposter/internal/engine"
	"github.com/aaronzipp/imposter/internal/logging"
	"github.com/aaronzipp/imposter/internal/realtime"
	"github.com/aaronzipp/imposter/internal/remote"
	"github.com/aaronzipp/imposter/internal/session"
	"github.com/aaronzipp/imposter/internal/store"
	"github.com/aaronzipp/imposter/internal/voice"
	"github.com/aaronzipp/imposter/internal/wordgen"
)

// eventBuffer is how many realtime events wait for the control loop
const eventBuffer = 64

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	// the game owns stdout
	log := logging.Setup(os.Stderr, cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg, log, os.Stdout)
	if err := a.loop(ctx, readLines(os.Stdin), time.NewTicker(time.Second).C); err != nil {
		log.Error("client stopped", "error", err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context, cfg config.Config, log *slog.Logger, out io.Writer) *app {
	api := remote.New(cfg.ServerURL, log, cfg.BackendTimeout)
	rooms := store.NewClient(api, log, cfg.BackendTimeout)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.BackendTimeout)
	if err := rooms.Ping(pingCtx); err != nil {
		log.Warn("room server unreachable, online play unavailable", "server", cfg.ServerURL, "error", err)
	} else {
		log.Info("connected to room server", "server", cfg.ServerURL)
	}
	cancel()

	var gen wordgen.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := wordgen.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn("word generator unavailable", "error", err)
		} else {
			gen = g
		}
	}

	m := engine.New(engine.Deps{
		Rooms:    rooms,
		Bridge:   realtime.NewBridge(rooms, log, eventBuffer),
		Accounts: api,
		Words:    wordgen.WithFallback{Gen: gen, Log: log},
		Voice:    voice.Silent{},
		Sessions: session.NewFileStore(cfg.SessionDir),
		Log:      log,
	})
	return &app{m: m, out: out, now: time.Now, publicURL: cfg.PublicURL}
}

// readLines feeds stdin to the control loop; the channel closes at EOF
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}
