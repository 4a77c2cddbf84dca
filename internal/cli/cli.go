package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mapreader/internal/config"
	"mapreader/internal/game"
	"mapreader/internal/metrics"
	"mapreader/internal/parser"
	"mapreader/internal/scene"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "mapreader",
		Short:        "Doom 3 map file reader",
		Long:         "Parses Doom 3 style .map files into entities and primitives, and stores them in PostgreSQL, Neo4j or a local snapshot file.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(nearestCmd())
	rootCmd.AddCommand(targetsCmd())
	rootCmd.AddCommand(watchCmd())

	return rootCmd
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// loadConfig reads the environment and applies the log level.
func loadConfig() *config.Config {
	cfg := config.Load()
	zerolog.SetGlobalLevel(cfg.Level())
	return cfg
}

// loader reads map files with the configured game description.
type loader struct {
	cfg     *config.Config
	game    *game.Game
	reader  *parser.Reader
	metrics *metrics.Collector
}

func newLoader(cfg *config.Config) (*loader, error) {
	g := game.Default()
	if cfg.GameFile != "" {
		loaded, err := game.Load(cfg.GameFile)
		if err != nil {
			return nil, err
		}
		g = loaded
	}
	if cfg.MapVersion != 0 {
		g.MapFormat.Version = cfg.MapVersion
	}

	collector := metrics.NewCollector(nil)
	reader := parser.NewReader(g, g.Classes(), g.Primitives(),
		parser.WithLogger(log.Logger),
		parser.WithObserver(collector),
	)

	log.Info().
		Str("game", g.Name).
		Float32("version", g.RequiredVersion()).
		Bool("debug", cfg.Debug).
		Msg("Game description loaded")

	return &loader{cfg: cfg, game: g, reader: reader, metrics: collector}, nil
}

// load parses data into sink, applying the debug filters when enabled.
func (l *loader) load(ctx context.Context, path string, data []byte, sink parser.Sink) (*parser.Result, error) {
	if l.cfg.Debug {
		f := scene.NewFilterSink(sink, l.game.Debug)
		if f.Active() {
			defer func() {
				log.Info().Str("file", path).Int("dropped", f.Dropped()).Msg("Debug filters applied")
			}()
			sink = f
		}
	}

	start := time.Now()
	res, err := l.reader.Read(ctx, bytes.NewReader(data), sink)
	elapsed := time.Since(start)
	l.metrics.RecordLoad(res, err, elapsed)

	if err != nil {
		return res, fmt.Errorf("load %s: %w", path, err)
	}

	log.Info().
		Str("file", path).
		Str("outcome", string(res.Outcome)).
		Int("entities", res.Entities).
		Int("primitives", res.Primitives).
		Int("discarded", len(res.Discarded)).
		Dur("elapsed", elapsed).
		Msg("Map loaded")
	return res, nil
}

// serveMetrics exposes the collector on cfg.MetricsAddr until ctx is done.
func (l *loader) serveMetrics(ctx context.Context) {
	if l.cfg.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", l.metrics.Handler())
	srv := &http.Server{Addr: l.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", l.cfg.MetricsAddr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// connectPostgres opens and pings a pool.
func connectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")
	return pgPool, nil
}

// connectNeo4j opens a driver and verifies connectivity.
func connectNeo4j(ctx context.Context, cfg *config.Config) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")
	return driver, nil
}
