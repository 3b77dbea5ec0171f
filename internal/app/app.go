// Package app wires configuration, storage, the Mew client and the bot into
// the studybot command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"studybot/internal/alert"
	"studybot/internal/bot"
	"studybot/internal/httpapi"
	"studybot/internal/store"
	"studybot/internal/view"
	"studybot/pkg/api/client"
	"studybot/pkg/api/gateway/socketio"
	"studybot/pkg/runtime"
	"studybot/pkg/state"
	"studybot/pkg/x/llm"
)

const (
	logPrefix       = "[studybot]"
	shutdownTimeout = 10 * time.Second
)

// Run executes the root command until SIGINT or SIGTERM.
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "studybot",
		Short: "Study tracker bot for Mew: flashcards, tasks, music and time table alerts",
		PersistentPreRun: func(*cobra.Command, []string) {
			runtime.LoadDotEnv(logPrefix)
		},
	}
	root.SilenceUsage = true
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := runtime.LoadConfig(false)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cfg, reset)
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s database\n", st.Driver())
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "drop every table before creating it")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Mew and serve commands until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := runtime.LoadConfig(true)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func openStore(ctx context.Context, cfg runtime.Config, reset bool) (*store.Store, error) {
	if cfg.DBDriver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx, reset); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func serve(ctx context.Context, cfg runtime.Config) error {
	started := time.Now()

	st, err := openStore(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer st.Close()

	mc, err := client.New(client.Options{APIBase: cfg.APIBase, AccessToken: cfg.AccessToken, Proxy: cfg.Proxy})
	if err != nil {
		return err
	}
	me, err := mc.Me(ctx)
	if err != nil {
		return fmt.Errorf("resolve bot user: %w", err)
	}
	log.Printf("%s logged in as %s (%s)", logPrefix, me.Username, me.ID)

	delivery := bot.NewDelivery(mc, cfg.AlertChannelID)
	engine := view.NewEngine(delivery, view.EngineOptions{Timeout: cfg.ViewTimeout, LogPrefix: "[view]"})

	opts := bot.Options{
		Store:    st,
		Delivery: delivery,
		Engine:   engine,
		Files:    mc,
		Prefix:   cfg.CommandPrefix,
		Location: cfg.AlertLocation,
	}
	if cfg.AIEnabled() {
		ai, err := llm.New(llm.Config{APIKey: cfg.OpenAIKey, BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel})
		if err != nil {
			return err
		}
		opts.AI = ai
		opts.AIState = state.NewDoc[bot.AIChannels](filepath.Join(cfg.StateDir, "ai_channels.json"))
		log.Printf("%s AI replies enabled model=%s", logPrefix, ai.Model())
	}
	b, err := bot.New(opts)
	if err != nil {
		return err
	}
	b.SetSelfID(me.ID)

	scheduler := alert.NewScheduler(st, delivery, alert.Options{
		Interval:  cfg.AlertInterval,
		Location:  cfg.AlertLocation,
		LogPrefix: "[alert]",
	})

	wsURL, err := socketio.WebsocketURL(cfg.MewURL)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return socketio.RunGatewayWithReconnectSession(gctx, wsURL, mc.Session(), b.HandleEvent,
			socketio.GatewayOptions{},
			socketio.ReconnectOptions{
				InitialBackoff: time.Second,
				MaxBackoff:     30 * time.Second,
				OnDisconnect: func(err error, next time.Duration) {
					log.Printf("%s gateway disconnected: %v (retry in %s)", logPrefix, err, next)
				},
				OnConnect: func(attempt int) {
					log.Printf("%s connecting to gateway attempt=%d", logPrefix, attempt)
				},
			},
		)
	})
	g.Go(func() error { return scheduler.Run(gctx) })

	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpapi.New(httpapi.Sources{
				Store:     st,
				LiveViews: engine.Live,
				InFlight:  b.InFlight,
				Scheduler: scheduler.Status,
				Started:   started,
			}).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Printf("%s http listening on %s", logPrefix, srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()

	log.Printf("%s shutting down", logPrefix)
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	engine.Close(closeCtx)
	b.Close()

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
