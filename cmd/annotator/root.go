package main

import (
	"context"
	stderrors "errors"
	"net"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/adverant/nexus/region-annotator/internal/config"
	"github.com/adverant/nexus/region-annotator/internal/logging"
	"github.com/adverant/nexus/region-annotator/internal/queue"
	"github.com/adverant/nexus/region-annotator/internal/store"
	"github.com/adverant/nexus/region-annotator/internal/syncer"
)

// rootOptions are the persistent flags shared by every command
type rootOptions struct {
	dbHost     string
	dbPort     int
	imageKey   string
	imageField string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "annotator",
		Short: "Region annotation over a shared Redis session",
		Long: `Annotator edits named regions and rules on images kept in Redis.

The annotation state is one XML session document shared by every client pointed at
the same store endpoint. Changes made by other clients are merged in as they arrive,
and the regions are turned into crop and OCR scripts for the keli engine.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dbHost, "db-host", "", "Store host (requires --db-port)")
	cmd.PersistentFlags().IntVar(&opts.dbPort, "db-port", 0, "Store port (requires --db-host)")
	cmd.PersistentFlags().StringVar(&opts.imageKey, "key", "", "Key of the image or image record being annotated")
	cmd.PersistentFlags().StringVar(&opts.imageField, "field", "", "Record field holding the key of the image bytes")
	cmd.MarkFlagsRequiredTogether("db-host", "db-port")

	cmd.AddCommand(
		newSyncCmd(opts),
		newSessionCmd(opts),
		newPageCmd(opts),
		newRegionCmd(opts),
		newRuleCmd(opts),
		newRecordCmd(opts),
		newWorkerCmd(opts),
	)

	return cmd
}

// app is the per-invocation wiring: configuration plus the one store connection
type app struct {
	cfg    *config.Config
	conn   *store.Conn
	opts   *rootOptions
	logger *logging.Logger
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	if (opts.dbHost == "") != (opts.dbPort == 0) {
		return nil, stderrors.New("--db-host and --db-port must be given together")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.dbHost != "" {
		cfg.DBHost = opts.dbHost
		cfg.DBPort = opts.dbPort
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logging.SetLevel(cfg.LogLevel)

	conn, err := store.NewConn(ctx, store.Options{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Password: cfg.DBPassword,
		DB:       cfg.DBIndex,
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		conn:   conn,
		opts:   opts,
		logger: logging.NewLogger("annotator"),
	}

	if cfg.KeyspaceEvents {
		if err := conn.EnableKeyspaceEvents(ctx); err != nil {
			a.logger.Warn("Keyspace events not enabled, relying on explicit notifications", "error", err)
		}
	}
	return a, nil
}

func (a *app) Close() error {
	return a.conn.Close()
}

func (a *app) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     net.JoinHostPort(a.cfg.DBHost, strconv.Itoa(a.cfg.DBPort)),
		Password: a.cfg.DBPassword,
		DB:       a.cfg.DBIndex,
	}
}

// dispatcher returns a dispatcher and the function that releases its client
func (a *app) dispatcher() (*queue.Dispatcher, func()) {
	client := asynq.NewClient(a.redisOpt())
	return queue.NewDispatcher(client, a.cfg.QueueName), func() { client.Close() }
}

func (a *app) syncerOptions() syncer.Options {
	return syncer.Options{
		SessionKey:       a.conn.SessionKey(a.cfg.SessionNamespace),
		ImageKey:         a.opts.imageKey,
		ImageField:       a.opts.imageField,
		SourcesNamespace: a.cfg.SourcesNamespace,
		SyncWithOthers:   a.cfg.SyncWithOthers,
		Debounce:         a.cfg.Debounce,
		ExplicitNotify:   a.cfg.ExplicitNotify,
		AutoRun:          a.cfg.AutoRunScripts,
		SinglePageOnly:   a.cfg.RunSinglePageOnly,
	}
}

// withSyncer runs fn while a syncer serves the session, then stops the syncer and
// waits for its subscription to close
func (a *app) withSyncer(ctx context.Context, listener syncer.Listener, runner syncer.Runner, fn func(context.Context, *syncer.Syncer) error) error {
	if !a.cfg.SyncWithOthers {
		a.logger.Warn("Sync is disabled, changes stay in this process")
	}

	s := syncer.New(a.conn, a.syncerOptions(), listener, runner)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Run(runCtx) }()

	err := fn(runCtx, s)
	cancel()
	runErr := <-done

	if runErr != nil && (err == nil || stderrors.Is(err, syncer.ErrStopped)) {
		return runErr
	}
	return err
}

// run opens the app, runs fn with a syncer and closes everything
func run(cmd *cobra.Command, opts *rootOptions, fn func(context.Context, *app, *syncer.Syncer) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	var runner syncer.Runner
	if a.cfg.AutoRunScripts {
		d, release := a.dispatcher()
		defer release()
		runner = d
	}

	return a.withSyncer(ctx, nil, runner, func(ctx context.Context, s *syncer.Syncer) error {
		return fn(ctx, a, s)
	})
}
