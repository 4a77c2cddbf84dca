package graph

import (
	"context"
	"fmt"

	"mapreader/internal/parser"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// GraphBuilder writes the entity target graph of maps to Neo4j.
type GraphBuilder struct {
	driver neo4j.DriverWithContext
}

// NewGraphBuilder creates a new graph builder.
func NewGraphBuilder(driver neo4j.DriverWithContext) *GraphBuilder {
	return &GraphBuilder{driver: driver}
}

// EnsureSchema creates constraints and indexes on the Neo4j database.
func (gb *GraphBuilder) EnsureSchema(ctx context.Context) error {
	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (m:Map) REQUIRE m.path IS UNIQUE",
		"CREATE CONSTRAINT IF NOT EXISTS FOR (e:Entity) REQUIRE e.uid IS UNIQUE",
	}

	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Graph schema ensured")
	return nil
}

func entityUID(mapPath, name string) string {
	return mapPath + "#" + name
}

// UpsertMap replaces the stored graph of one map with the links found in entities.
func (gb *GraphBuilder) UpsertMap(ctx context.Context, mapPath string, entities []*parser.Entity) error {
	nodes, links, dangling := TargetLinks(entities)

	session := gb.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (m:Map {path: $path})
			WITH m
			OPTIONAL MATCH (m)-[:CONTAINS]->(old:Entity)
			DETACH DELETE old
		`, map[string]any{"path": mapPath}); err != nil {
			return nil, fmt.Errorf("reset map %s: %w", mapPath, err)
		}

		rows := make([]map[string]any, 0, len(nodes))
		for _, n := range nodes {
			rows = append(rows, map[string]any{
				"uid":       entityUID(mapPath, n.Name),
				"name":      n.Name,
				"classname": n.Classname,
			})
		}
		if _, err := tx.Run(ctx, `
			MATCH (m:Map {path: $path})
			UNWIND $nodes AS n
			MERGE (e:Entity {uid: n.uid})
			SET e.name = n.name, e.classname = n.classname
			MERGE (m)-[:CONTAINS]->(e)
		`, map[string]any{"path": mapPath, "nodes": rows}); err != nil {
			return nil, fmt.Errorf("upsert entities: %w", err)
		}

		edges := make([]map[string]any, 0, len(links))
		for _, l := range links {
			edges = append(edges, map[string]any{
				"from": entityUID(mapPath, l.From),
				"to":   entityUID(mapPath, l.To),
				"key":  l.Key,
			})
		}
		if _, err := tx.Run(ctx, `
			UNWIND $links AS l
			MATCH (a:Entity {uid: l.from})
			MATCH (b:Entity {uid: l.to})
			MERGE (a)-[:TARGETS {key: l.key}]->(b)
		`, map[string]any{"links": edges}); err != nil {
			return nil, fmt.Errorf("upsert links: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	for _, l := range dangling {
		log.Warn().
			Str("map", mapPath).
			Str("from", l.From).
			Str("key", l.Key).
			Str("to", l.To).
			Msg("Target refers to unknown entity")
	}

	log.Info().
		Str("map", mapPath).
		Int("entities", len(nodes)).
		Int("links", len(links)).
		Msg("Upserted map graph")
	return nil
}
