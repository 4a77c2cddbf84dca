package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"mapreader/internal/parser"
	"mapreader/internal/textutil"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

// storedPrimitive is the JSON form of one primitive.
type storedPrimitive struct {
	Type string           `json:"type"`
	Data parser.Primitive `json:"data"`
}

// entityRow is an entity flattened into map_entities columns.
type entityRow struct {
	Index      int
	Classname  string
	Name       string
	Container  bool
	KeyValues  []byte
	Primitives []byte
	Origin     *pgvector.Vector
}

func toRow(index int, e *parser.Entity) (*entityRow, error) {
	kv := make(map[string]string)
	for _, p := range e.KeyValues() {
		kv[p.Key] = p.Value
	}
	kvJSON, err := json.Marshal(kv)
	if err != nil {
		return nil, fmt.Errorf("encode key/values: %w", err)
	}

	prims := make([]storedPrimitive, 0, len(e.Primitives()))
	for _, p := range e.Primitives() {
		prims = append(prims, storedPrimitive{Type: p.Keyword(), Data: p})
	}
	primJSON, err := json.Marshal(prims)
	if err != nil {
		return nil, fmt.Errorf("encode primitives: %w", err)
	}

	row := &entityRow{
		Index:      index,
		Classname:  e.Classname(),
		Name:       e.KeyValue("name"),
		Container:  e.IsContainer(),
		KeyValues:  kvJSON,
		Primitives: primJSON,
	}

	if raw, ok := e.Lookup("origin"); ok {
		origin, err := textutil.ParseVector(raw)
		if err != nil {
			log.Debug().Err(err).Int("entity", index).Msg("Skipping unparsable origin")
		} else {
			v := pgvector.NewVector(origin[:])
			row.Origin = &v
		}
	}
	return row, nil
}

// EntitySink writes each accepted entity of one load to map_entities.
type EntitySink struct {
	db     DB
	loadID uuid.UUID
	next   int
}

// NewEntitySink creates a sink for the load with the given id. The load row must exist.
func (s *Store) NewEntitySink(loadID uuid.UUID) *EntitySink {
	return &EntitySink{db: s.db, loadID: loadID}
}

// AcceptEntity implements parser.Sink.
func (s *EntitySink) AcceptEntity(ctx context.Context, e *parser.Entity) error {
	row, err := toRow(s.next, e)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO map_entities (load_id, entity_index, classname, name, container, key_values, primitives, origin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.loadID, row.Index, row.Classname, row.Name, row.Container, row.KeyValues, row.Primitives, row.Origin)
	if err != nil {
		return fmt.Errorf("insert entity %d: %w", row.Index, err)
	}

	s.next++
	return nil
}

// Written returns the number of stored entities.
func (s *EntitySink) Written() int {
	return s.next
}

// Neighbor is an entity returned by a spatial query.
type Neighbor struct {
	Index     int
	Classname string
	Name      string
	Distance  float64
}

// Nearest returns the k entities of a load closest to point, by Euclidean distance of their origin.
func (s *Store) Nearest(ctx context.Context, loadID uuid.UUID, point [3]float32, k int) ([]Neighbor, error) {
	rows, err := s.db.Query(ctx, `
		SELECT entity_index, classname, name, origin <-> $2 AS distance
		FROM map_entities
		WHERE load_id = $1 AND origin IS NOT NULL
		ORDER BY origin <-> $2
		LIMIT $3
	`, loadID, pgvector.NewVector(point[:]), int32(k))
	if err != nil {
		return nil, fmt.Errorf("nearest query: %w", err)
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var (
			n     Neighbor
			index int32
		)
		if err := rows.Scan(&index, &n.Classname, &n.Name, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		n.Index = int(index)
		out = append(out, n)
	}
	return out, rows.Err()
}
