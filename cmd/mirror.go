package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/maven-tree-mirror/internal/api"
	"github.com/JakeFAU/maven-tree-mirror/internal/clock/system"
	"github.com/JakeFAU/maven-tree-mirror/internal/config"
	"github.com/JakeFAU/maven-tree-mirror/internal/crawler"
	"github.com/JakeFAU/maven-tree-mirror/internal/dispatcher"
	"github.com/JakeFAU/maven-tree-mirror/internal/failures"
	"github.com/JakeFAU/maven-tree-mirror/internal/fetcher"
	collyfetcher "github.com/JakeFAU/maven-tree-mirror/internal/fetcher/colly"
	"github.com/JakeFAU/maven-tree-mirror/internal/fetcher/httpstream"
	"github.com/JakeFAU/maven-tree-mirror/internal/id/uuid"
	"github.com/JakeFAU/maven-tree-mirror/internal/listing"
	"github.com/JakeFAU/maven-tree-mirror/internal/logging"
	"github.com/JakeFAU/maven-tree-mirror/internal/policy/ratelimit"
	queueMemory "github.com/JakeFAU/maven-tree-mirror/internal/queue/memory"
	"github.com/JakeFAU/maven-tree-mirror/internal/storage/local"
	"github.com/JakeFAU/maven-tree-mirror/internal/worker"
)

// mirrorFlagKeys maps mirror flags to the config keys they override.
var mirrorFlagKeys = map[string]string{
	"url":          "url",
	"parallel":     "parallelCount",
	"retries":      "retryCount",
	"base-folder":  "baseFolder",
	"cache-folder": "cacheFolder",
	"log-folder":   "logFolder",
	"listen":       "server.listen",
}

// newMirrorCmd creates the 'mirror' subcommand.
func newMirrorCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Mirrors the configured repository into the base folder",
		Long: `Validates the repository root, then walks every directory listing below
it with a bounded pool of workers. Files already present locally are skipped and
listings younger than cacheExpireDate days are served from the cache folder.
URLs that still fail when the run ends are listed in the run's failure log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, root.configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runMirror(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("url", "", "repository root URL")
	flags.Int("parallel", 0, "maximum concurrent fetches")
	flags.Int("retries", 0, "retries per URL before it is abandoned")
	flags.String("base-folder", "", "folder receiving mirrored files")
	flags.String("cache-folder", "", "folder receiving cached directory listings")
	flags.String("log-folder", "", "folder receiving run and failure logs")
	flags.String("listen", "", "address of the status server, empty disables it")

	return cmd
}

// loadConfig binds only the flags the user set, so unset flags never shadow
// config file, environment or default values.
func loadConfig(cmd *cobra.Command, path string) (config.Config, error) {
	v := viper.New()
	for name, key := range mirrorFlagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return config.Config{}, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	cfg, err := config.LoadWith(v, path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runMirror(ctx context.Context, cfg config.Config) error {
	clk := system.New()
	env := mirrorEnv{
		fs:        afero.NewOsFs(),
		clock:     clk,
		startedAt: clk.Now(),
	}
	env.stamp = system.Stamp(env.startedAt)

	runID, err := uuid.New().NewID()
	if err != nil {
		return err
	}
	env.runID = runID

	logOpts := logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	}
	if cfg.Logging.ToFile {
		logOpts.File = filepath.Join(cfg.LogFolder, env.stamp+".log")
	}
	logger, err := logging.NewWithOptions(logOpts)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	m, err := newMirror(cfg, env, logger)
	if err != nil {
		return err
	}
	if err := m.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("run mirror: %w", err)
	}
	return nil
}

// mirrorEnv carries the run-scoped values shared by every component.
type mirrorEnv struct {
	fs        afero.Fs
	clock     crawler.Clock
	runID     string
	stamp     string
	startedAt time.Time
}

// mirror is one fully wired run.
type mirror struct {
	cfg        config.Config
	seq        *crawler.Sequence
	dispatcher *dispatcher.Dispatcher
	failures   *failures.Tracker
	server     *api.Server
	logger     *zap.Logger
}

func newMirror(cfg config.Config, env mirrorEnv, logger *zap.Logger) (*mirror, error) {
	logger = logger.With(zap.String("run_id", env.runID))

	blobs, err := local.NewWithFS(env.fs, local.Config{BaseDir: cfg.BaseFolder})
	if err != nil {
		return nil, fmt.Errorf("init blob store: %w", err)
	}
	cache, err := local.NewDirectoryCache(env.fs, cfg.CacheFolder, env.clock)
	if err != nil {
		return nil, fmt.Errorf("init directory cache: %w", err)
	}
	tracker, err := failures.NewTracker(env.fs, cfg.LogFolder, env.stamp)
	if err != nil {
		return nil, fmt.Errorf("init failure tracker: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.HTTP.RateLimitPerSecond,
		DefaultBurst: cfg.HTTP.RateLimitBurst,
	})
	pages := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.RequestTimeout(),
	}, limiter)
	streams := httpstream.New(httpstream.Options{
		UserAgent:     cfg.HTTP.UserAgent,
		HeaderTimeout: cfg.RequestTimeout(),
	}, limiter)

	queue := queueMemory.NewQueue()
	seq := crawler.NewSequence()

	w, err := worker.New(worker.Deps{
		Queue:     queue,
		Client:    fetcher.NewComposite(pages, streams),
		Extractor: listing.NewExtractor(),
		Cache:     cache,
		Blobs:     blobs,
		Failures:  tracker,
		Retry:     crawler.NewLimitRetryPolicy(cfg.RetryCount),
		Clock:     env.clock,
		Sequence:  seq,
	}, worker.Config{CacheTTL: cfg.CacheTTL()}, logger.Named("worker"))
	if err != nil {
		return nil, fmt.Errorf("init worker: %w", err)
	}

	d, err := dispatcher.New(queue, w, w, dispatcher.Config{Parallelism: cfg.ParallelCount}, logger.Named("dispatcher"))
	if err != nil {
		return nil, fmt.Errorf("init dispatcher: %w", err)
	}

	m := &mirror{
		cfg:        cfg,
		seq:        seq,
		dispatcher: d,
		failures:   tracker,
		logger:     logger,
	}
	if cfg.Server.Listen != "" {
		m.server = api.NewServer(d, tracker, api.RunInfo{
			RunID:     env.runID,
			BaseURL:   crawler.NormalizeBaseURI(cfg.URL),
			StartedAt: env.startedAt,
		}, env.clock, logger)
	}
	return m, nil
}

// Run mirrors the tree rooted at the configured URL and reports outstanding
// failures once the dispatcher returns.
func (m *mirror) Run(ctx context.Context) error {
	if m.server != nil {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := m.server.ListenAndServe(srvCtx, m.cfg.Server.Listen); err != nil {
				m.logger.Error("status server stopped", zap.Error(err))
			}
		}()
	}

	m.logger.Info("mirror starting",
		zap.String("url", m.cfg.URL),
		zap.String("base_folder", m.cfg.BaseFolder),
		zap.Int("parallel", m.cfg.ParallelCount),
		zap.Int("retry_count", m.cfg.RetryCount),
	)
	err := m.dispatcher.Start(ctx, crawler.NewRootRequest(m.seq, m.cfg.URL))
	m.report()
	return err
}

func (m *mirror) report() {
	n := m.failures.Len()
	if n == 0 {
		m.logger.Info("no outstanding failures")
		return
	}
	m.logger.Warn("outstanding failures",
		zap.Int("count", n),
		zap.String("failure_log", m.failures.Path()),
	)
}
