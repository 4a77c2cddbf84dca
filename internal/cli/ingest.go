package cli

import (
	"context"
	"fmt"
	"os"

	"mapreader/internal/cache"
	"mapreader/internal/filewalker"
	"mapreader/internal/graph"
	"mapreader/internal/parser"
	"mapreader/internal/scene"
	"mapreader/internal/store/postgres"
	"mapreader/internal/textutil"
	"mapreader/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <directory|file.map>",
		Short: "Parse map files and store them in PostgreSQL and the Neo4j target graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			skipGraph, _ := cmd.Flags().GetBool("no-graph")
			return runIngest(args[0], force, skipGraph)
		},
	}

	cmd.Flags().Bool("force", false, "Re-ingest files whose content was already ingested")
	cmd.Flags().Bool("no-graph", false, "Skip the Neo4j target graph")

	return cmd
}

// ingestOutcome is the per-file result of an ingest.
type ingestOutcome struct {
	Load    *postgres.Load
	Skipped bool
}

// ingester stores one map file per call.
type ingester struct {
	loader *loader
	store  *postgres.Store
	cache  *cache.LoadCache
	graph  *graph.GraphBuilder // nil when the graph is skipped
	force  bool
}

func (in *ingester) ingest(ctx context.Context, entry filewalker.FileEntry) (*ingestOutcome, error) {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	hash := textutil.HashBytes(data)

	if !in.force {
		if prev, ok := in.cache.Get(ctx, hash); ok {
			log.Info().Str("file", entry.Path).Str("load", prev.ID.String()).Msg("Map unchanged, skipping")
			return &ingestOutcome{Load: prev, Skipped: true}, nil
		}
	}

	l := &postgres.Load{Path: entry.Path, Hash: hash, Outcome: postgres.OutcomePending}
	if err := in.store.RecordLoad(ctx, l); err != nil {
		return nil, err
	}

	sc := scene.New()
	res, loadErr := in.loader.load(ctx, entry.Path, data, scene.Tee(sc, in.store.NewEntitySink(l.ID)))

	l.Version = res.Version
	l.Entities = res.Entities
	l.Primitives = res.Primitives
	l.Discarded = len(res.Discarded)
	l.Outcome = string(res.Outcome)
	if loadErr != nil {
		l.Outcome = postgres.OutcomeFailed
		l.Error = loadErr.Error()
	}
	// The final status must be written even when ctx was cancelled mid-read.
	if err := in.store.RecordLoad(context.WithoutCancel(ctx), l); err != nil {
		return nil, err
	}
	if loadErr != nil {
		return &ingestOutcome{Load: l}, loadErr
	}
	if res.Outcome != parser.OutcomeCompleted {
		return &ingestOutcome{Load: l}, nil
	}

	in.cache.Set(l)

	if in.graph != nil {
		if err := in.graph.UpsertMap(ctx, entry.Path, sc.Entities()); err != nil {
			log.Warn().Err(err).Str("file", entry.Path).Msg("Failed to update target graph")
		}
	}
	return &ingestOutcome{Load: l}, nil
}

// runIngest handles the `ingest` command.
func runIngest(root string, force, skipGraph bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := loadConfig()
	l, err := newLoader(cfg)
	if err != nil {
		return err
	}
	l.serveMetrics(ctx)

	pgPool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()

	store := postgres.NewStore(pgPool)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	loadCache := cache.NewLoadCache(store)
	if err := loadCache.Preload(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to preload cache")
	}

	in := &ingester{loader: l, store: store, cache: loadCache, force: force}

	if !skipGraph {
		driver, err := connectNeo4j(ctx, cfg)
		if err != nil {
			return err
		}
		defer driver.Close(ctx)

		gb := graph.NewGraphBuilder(driver)
		if err := gb.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
		in.graph = gb
	}

	entries, err := filewalker.NewWalker().Walk(root)
	if err != nil {
		return fmt.Errorf("walk input: %w", err)
	}

	log.Info().Int("files", len(entries)).Int("workers", cfg.WorkerCount).Msg("Starting map ingestion")

	pool := worker.NewPool[filewalker.FileEntry, *ingestOutcome](cfg.WorkerCount, in.ingest)
	tasks := pool.Execute(ctx, entries)

	var stored, skipped, failed, pending int
	for _, task := range tasks {
		switch {
		case task.Skipped:
			pending++
		case task.Err != nil:
			failed++
		case task.Result.Skipped:
			skipped++
		default:
			stored++
		}
	}

	log.Info().
		Int("files", len(entries)).
		Int("stored", stored).
		Int("unchanged", skipped).
		Int("failed", failed).
		Int("not_started", pending).
		Msg("Ingestion complete")

	if failed > 0 {
		return fmt.Errorf("%d of %d map files failed", failed, len(entries))
	}
	return nil
}
