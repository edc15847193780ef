package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"homefit/internal/api"
	"homefit/internal/chat"
	"homefit/internal/commands"
	"homefit/internal/config"
	"homefit/internal/query"
	"homefit/internal/session"
	"homefit/internal/storage"
	"homefit/internal/tui"
	"homefit/internal/ws"
)

func run(ctx context.Context) error {
	loginCode := flag.String("login", "", "OAuth authorization code to exchange for a token")
	logout := flag.Bool("logout", false, "Drop the stored token")
	addExercise := flag.String("add", "", "Add an exercise for today and exit")
	status := flag.Bool("status", false, "Print today's summary and exit")
	exportPath := flag.String("export", "", "Write today's summary as an HTML page to the given file and exit")
	roomID := flag.String("room", "", "Team chat room to join in the interactive view")
	flag.Parse()

	// .env is a convenience for local use; absence is not an error.
	_ = godotenv.Load()

	cliMode := *loginCode != "" || *logout || *addExercise != "" || *status || *exportPath != ""
	cfg, err := config.Load(cliMode)
	if err != nil {
		return err
	}

	switch {
	case *loginCode != "":
		return commands.Login(ctx, *loginCode, cfg)
	case *logout:
		return commands.Logout(cfg)
	case *addExercise != "":
		return commands.AddExercise(ctx, *addExercise, cfg)
	case *status:
		return commands.Status(ctx, cfg)
	case *exportPath != "":
		return commands.ExportDay(ctx, *exportPath, cfg)
	}

	store, err := storage.NewStore(cfg.CacheFile, cfg.CacheSecret)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	token, err := store.Token()
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("not logged in, run with -login <code> first")
	}

	client := api.New(cfg.APIBaseURL, store)

	profile, err := client.Profile(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			_ = store.ClearToken()
			return fmt.Errorf("session expired, run with -login <code> again")
		}
		// Offline start still works off the cached profile.
		cached, cerr := store.GetProfile()
		if cerr != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}
		slog.Warn("profile fetch failed, using cached copy", "error", err)
		profile = cached
	} else {
		_ = store.SaveProfile(profile)
	}

	days := query.NewCache(ctx, client, cfg.CacheTTL)

	updates := make(chan struct{}, 1)
	notify := func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	}

	sess := session.New(client, days, cfg.ResetHour,
		session.WithOnChange(func(session.Snapshot) { notify() }),
	)
	if err := sess.SwitchDay(ctx, time.Now()); err != nil {
		return fmt.Errorf("failed to load today: %w", err)
	}

	var room *chat.Room
	if *roomID != "" {
		transport, err := ws.Dial(ctx, ws.Config{
			URL:            cfg.WSURL,
			ReconnectDelay: cfg.ReconnectDelay,
		}, token)
		if err != nil {
			return fmt.Errorf("failed to open live connection: %w", err)
		}
		defer func() { _ = transport.Close() }()

		room, err = chat.Join(ctx, transport, chat.RoomConfig{
			RoomID:   *roomID,
			MemberID: profile.MemberID,
			Nickname: profile.Nickname,
			Fetch:    client,
			Store:    store,
			OnUpdate: notify,
		})
		if err != nil {
			return fmt.Errorf("failed to join room %s: %w", *roomID, err)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	tickCtx, stopTicking := context.WithCancel(gCtx)
	defer stopTicking()

	// Tick the session so elapsed clocks refresh every second.
	g.Go(func() error {
		err := sess.Run(tickCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		defer stopTicking()
		opts := tui.Options{Session: sess, Updates: updates}
		if room != nil {
			opts.Room = room
		}
		return tui.Run(gCtx, opts)
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
