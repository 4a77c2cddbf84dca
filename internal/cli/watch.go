package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mapreader/internal/filewalker"
	"mapreader/internal/scene"
	"mapreader/internal/watch"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <file.map>",
		Short: "Reparse a map file every time it is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			debounce, _ := cmd.Flags().GetDuration("debounce")
			return runWatch(cmd.OutOrStdout(), args[0], debounce)
		},
	}

	cmd.Flags().Duration("debounce", watch.DefaultDebounce, "Quiet period before a change is reparsed")

	return cmd
}

func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	return abs, nil
}

// runWatch handles the `watch` command.
func runWatch(out io.Writer, path string, debounce time.Duration) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := loadConfig()
	l, err := newLoader(cfg)
	if err != nil {
		return err
	}
	l.serveMetrics(ctx)

	w, err := watch.NewWatcher(filewalker.MapExtension, debounce)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.AddFile(path); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	reparse := func(p string) {
		data, err := os.ReadFile(p)
		if err != nil {
			log.Warn().Err(err).Str("file", p).Msg("Cannot read map")
			return
		}
		sc := scene.New()
		res, err := l.load(ctx, p, data, sc)
		if err != nil {
			log.Error().Err(err).Msg("Map failed to load")
			return
		}
		if err := printSummary(out, p, sc.Stats(), len(res.Discarded), false); err != nil {
			log.Warn().Err(err).Msg("Cannot print summary")
		}
	}

	abs, err := absPath(path)
	if err != nil {
		return err
	}
	reparse(abs)

	log.Info().Str("file", abs).Dur("debounce", debounce).Msg("Watching map for changes")
	return w.Watch(ctx, reparse)
}
