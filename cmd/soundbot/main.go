package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/markussekhon/twitch-soundbot/internal/auth"
	"github.com/markussekhon/twitch-soundbot/internal/config"
	"github.com/markussekhon/twitch-soundbot/internal/dispatch"
	"github.com/markussekhon/twitch-soundbot/internal/logging"
	"github.com/markussekhon/twitch-soundbot/internal/server"
	"github.com/markussekhon/twitch-soundbot/internal/sound"
	"github.com/markussekhon/twitch-soundbot/internal/twitch"
)

const setupTimeout = 30 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupToken(ctx context.Context, cfg *config.Config) string {
	tokenPath, err := auth.DefaultTokenPath()
	if err != nil {
		logging.WithError(err).Error("Failed to locate token path")
		os.Exit(1)
	}

	manager := auth.NewManager(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchRedirectURI, tokenPath)
	token, err := manager.EnsureToken(ctx)
	if err != nil {
		logging.WithError(err).Error("Failed to obtain Twitch token")
		os.Exit(1)
	}
	return token
}

func setupHandler(cfg *config.Config) *sound.RedemptionHandler {
	catalog, err := sound.LoadCatalog(cfg.SoundsDir)
	if err != nil {
		logging.WithError(err).Warn("Could not load sound catalog, continuing without sounds")
	}
	slog.Info("Sound catalog loaded", "dir", cfg.SoundsDir, "sounds", catalog.Len())

	player, err := sound.NewPlayer()
	if err != nil {
		logging.WithError(err).Error("Failed to initialize audio output")
		os.Exit(1)
	}

	return sound.NewRedemptionHandler(catalog, player)
}

// pipeline performs the sequential startup: resolve the broadcaster,
// complete the websocket handshake, then register the subscription. The
// subscription is never registered before a session id exists, and the
// dispatch loop never starts before registration succeeded.
type pipeline struct {
	cfg     *config.Config
	token   string
	timeout time.Duration

	// URLs overridable for testing
	apiBaseURL  string
	eventSubURL string
}

func newPipeline(cfg *config.Config, token string) *pipeline {
	return &pipeline{
		cfg:         cfg,
		token:       token,
		timeout:     setupTimeout,
		eventSubURL: twitch.DefaultEventSubURL,
	}
}

func (p *pipeline) run() (*websocket.Conn, error) {
	// The deadline starts here, once the token is already in hand:
	// interactive authorization can take minutes and must not eat into it.
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	client, err := twitch.NewClient(twitch.ClientOptions{
		ClientID:        p.cfg.TwitchClientID,
		UserAccessToken: p.token,
		APIBaseURL:      p.apiBaseURL,
	})
	if err != nil {
		return nil, err
	}

	broadcasterID, err := client.ResolveBroadcasterID(p.cfg.BroadcasterLogin)
	if err != nil {
		return nil, err
	}
	logging.WithBroadcaster(broadcasterID).Info("Resolved broadcaster", "login", p.cfg.BroadcasterLogin)

	awaiter := twitch.NewAwaiter(p.eventSubURL, clockwork.NewRealClock())
	conn, sessionID, err := awaiter.Connect(ctx)
	if err != nil {
		return nil, err
	}
	logging.WithSession(sessionID).Info("EventSub session established")

	if err := client.RegisterRedemptionSubscription(broadcasterID, sessionID); err != nil {
		conn.Close()
		return nil, err
	}
	logging.WithSession(sessionID).Info("Redemption subscription registered")

	return conn, nil
}

func main() {
	cfg := setupConfig()
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	token := setupToken(context.Background(), cfg)

	conn, err := newPipeline(cfg, token).run()
	if err != nil {
		logging.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	handler := setupHandler(cfg)
	pool := dispatch.NewPool(dispatch.DefaultWorkers, dispatch.DefaultQueueSize, handler.Handle)
	loop := dispatch.NewLoop(twitch.RedemptionEventType, pool)

	srv := server.New()
	go func() {
		if err := srv.Start(cfg.BindAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.WithError(err).Error("Metrics server failed")
		}
	}()
	slog.Info("Serving health and metrics", "addr", cfg.BindAddress)

	// On SIGINT/SIGTERM, closing the connection ends the dispatch loop.
	var shuttingDown atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutdown signal received, closing connection...")
		shuttingDown.Store(true)
		conn.Close()
	}()

	slog.Info("Listening for redemptions")
	runErr := loop.Run(conn)
	pool.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.WithError(err).Error("Server shutdown error")
	}

	if runErr != nil && !shuttingDown.Load() {
		logging.WithError(runErr).Error("Event loop terminated")
		os.Exit(1)
	}
	slog.Info("Soundbot stopped")
}
