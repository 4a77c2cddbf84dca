package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// LinkResult is a target link touching the queried entity.
type LinkResult struct {
	From      string
	Key       string
	To        string
	Classname string // class of the entity at the other end
}

// QueryResult holds the links of one entity.
type QueryResult struct {
	Outgoing []LinkResult
	Incoming []LinkResult
}

// GraphQuerier queries the entity target graph.
type GraphQuerier struct {
	driver neo4j.DriverWithContext
}

// NewGraphQuerier creates a new graph querier.
func NewGraphQuerier(driver neo4j.DriverWithContext) *GraphQuerier {
	return &GraphQuerier{driver: driver}
}

// Targets returns what the named entity targets and what targets it.
func (gq *GraphQuerier) Targets(ctx context.Context, mapPath, name string) (*QueryResult, error) {
	session := gq.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	params := map[string]any{"uid": entityUID(mapPath, name)}
	result := &QueryResult{}

	out, err := session.Run(ctx, `
		MATCH (e:Entity {uid: $uid})-[r:TARGETS]->(t:Entity)
		RETURN e.name AS from_node, r.key AS key, t.name AS to_node, t.classname AS classname
		ORDER BY key
	`, params)
	if err != nil {
		return nil, fmt.Errorf("query outgoing targets: %w", err)
	}
	for out.Next(ctx) {
		result.Outgoing = append(result.Outgoing, linkFromRecord(out.Record()))
	}
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("read outgoing targets: %w", err)
	}

	in, err := session.Run(ctx, `
		MATCH (s:Entity)-[r:TARGETS]->(e:Entity {uid: $uid})
		RETURN s.name AS from_node, r.key AS key, e.name AS to_node, s.classname AS classname
		ORDER BY from_node
	`, params)
	if err != nil {
		return nil, fmt.Errorf("query incoming targets: %w", err)
	}
	for in.Next(ctx) {
		result.Incoming = append(result.Incoming, linkFromRecord(in.Record()))
	}
	if err := in.Err(); err != nil {
		return nil, fmt.Errorf("read incoming targets: %w", err)
	}

	log.Debug().
		Str("entity", name).
		Int("outgoing", len(result.Outgoing)).
		Int("incoming", len(result.Incoming)).
		Msg("Graph query complete")

	return result, nil
}

func linkFromRecord(record *neo4j.Record) LinkResult {
	from, _ := record.Get("from_node")
	key, _ := record.Get("key")
	to, _ := record.Get("to_node")
	classname, _ := record.Get("classname")

	return LinkResult{
		From:      fmt.Sprintf("%v", from),
		Key:       fmt.Sprintf("%v", key),
		To:        fmt.Sprintf("%v", to),
		Classname: fmt.Sprintf("%v", classname),
	}
}
