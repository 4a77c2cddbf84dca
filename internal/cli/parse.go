package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"mapreader/internal/parser"
	"mapreader/internal/scene"
	"mapreader/internal/store/bolt"
	"mapreader/internal/textutil"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file.map>",
		Short: "Parse a map file and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			snapshot, _ := cmd.Flags().GetBool("snapshot")
			return runParse(cmd.OutOrStdout(), args[0], asJSON, snapshot)
		},
	}

	cmd.Flags().Bool("json", false, "Print the summary as JSON")
	cmd.Flags().Bool("snapshot", false, "Store the parsed map in the local snapshot file (SNAPSHOT_PATH)")

	return cmd
}

// runParse handles the `parse` command.
func runParse(out io.Writer, path string, asJSON, snapshot bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := loadConfig()
	l, err := newLoader(cfg)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read map: %w", err)
	}

	var snapStore *bolt.Store
	if snapshot {
		snapStore, err = bolt.Open(cfg.SnapshotPath)
		if err != nil {
			return err
		}
		defer snapStore.Close()
	}

	res, sc, err := parseMap(ctx, l, path, data, snapStore)
	if err != nil {
		return err
	}

	return printSummary(out, path, sc.Stats(), len(res.Discarded), asJSON)
}

// parseMap reads data into a new scene. With a non-nil snapshot store the
// entities are also written there, but only when the read completed.
func parseMap(ctx context.Context, l *loader, path string, data []byte, snap *bolt.Store) (*parser.Result, *scene.Scene, error) {
	sc := scene.New()
	if snap == nil {
		res, err := l.load(ctx, path, data, sc)
		return res, sc, err
	}

	writer := snap.NewWriter(path)
	res, err := l.load(ctx, path, data, scene.Tee(sc, writer))
	if err != nil {
		return res, sc, err
	}

	if res.Outcome != parser.OutcomeCompleted {
		log.Warn().
			Str("file", path).
			Str("outcome", string(res.Outcome)).
			Msg("Read did not complete, keeping previous snapshot")
		return res, sc, nil
	}

	meta := bolt.Meta{
		Hash:       textutil.HashBytes(data),
		Version:    res.Version,
		Primitives: res.Primitives,
		Discarded:  len(res.Discarded),
		Outcome:    string(res.Outcome),
	}
	if err := writer.Commit(meta); err != nil {
		return res, sc, fmt.Errorf("commit snapshot: %w", err)
	}
	return res, sc, nil
}

type summary struct {
	File      string `json:"file"`
	Discarded int    `json:"discarded"`
	scene.Stats
}

func printSummary(out io.Writer, path string, st scene.Stats, discarded int, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary{File: path, Discarded: discarded, Stats: st})
	}

	fmt.Fprintf(out, "%s: %d entities, %d discarded primitives\n", path, st.Entities, discarded)
	for _, name := range sortedKeys(st.Classes) {
		fmt.Fprintf(out, "  %-32s %d\n", name, st.Classes[name])
	}
	for _, kw := range sortedKeys(st.Primitives) {
		fmt.Fprintf(out, "  %-32s %d\n", "["+kw+"]", st.Primitives[kw])
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
