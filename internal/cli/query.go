package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"mapreader/internal/graph"
	"mapreader/internal/store/postgres"
	"mapreader/internal/textutil"

	"github.com/spf13/cobra"
)

func nearestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nearest <file.map> <x> <y> <z>",
		Short: "List the entities of an ingested map closest to a point",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			point, err := parsePoint(args[1:])
			if err != nil {
				return err
			}
			k, _ := cmd.Flags().GetInt("k")
			return runNearest(cmd.OutOrStdout(), args[0], point, k)
		},
	}

	cmd.Flags().IntP("k", "k", 5, "Number of entities to return")

	return cmd
}

func parsePoint(args []string) ([3]float32, error) {
	var p [3]float32
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return p, fmt.Errorf("invalid coordinate %q: %w", a, err)
		}
		p[i] = float32(f)
	}
	return p, nil
}

// runNearest handles the `nearest` command.
func runNearest(out io.Writer, path string, point [3]float32, k int) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := loadConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read map: %w", err)
	}

	pgPool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()

	store := postgres.NewStore(pgPool)
	l, ok, err := store.FindLoadByHash(ctx, textutil.HashBytes(data))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s has not been ingested in its current form", path)
	}

	neighbors, err := store.Nearest(ctx, l.ID, point, k)
	if err != nil {
		return err
	}

	for _, n := range neighbors {
		fmt.Fprintf(out, "%5d  %-24s %-24s %10.2f\n", n.Index, n.Classname, n.Name, n.Distance)
	}
	return nil
}

func targetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets <file.map> <entity-name>",
		Short: "Show target links from and to an entity of an ingested map",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTargets(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

// runTargets handles the `targets` command.
func runTargets(out io.Writer, path, name string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := loadConfig()

	driver, err := connectNeo4j(ctx, cfg)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	abs, err := absPath(path)
	if err != nil {
		return err
	}

	result, err := graph.NewGraphQuerier(driver).Targets(ctx, abs, name)
	if err != nil {
		return err
	}

	printLinks(out, result)
	return nil
}

func printLinks(out io.Writer, result *graph.QueryResult) {
	for _, l := range result.Outgoing {
		fmt.Fprintf(out, "%s -[%s]-> %s (%s)\n", l.From, l.Key, l.To, l.Classname)
	}
	for _, l := range result.Incoming {
		fmt.Fprintf(out, "%s (%s) -[%s]-> %s\n", l.From, l.Classname, l.Key, l.To)
	}
	if len(result.Outgoing) == 0 && len(result.Incoming) == 0 {
		fmt.Fprintln(out, "no target links")
	}
}
