// Package bolt keeps local snapshots of parsed maps in a bbolt file. Each map
// path gets a top-level bucket holding a "meta" record and an "entities"
// sub-bucket of JSON entities keyed by big-endian entity index.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mapreader/internal/parser"

	bbolt "go.etcd.io/bbolt"
)

var (
	bucketEntities = []byte("entities")
	keyMeta        = []byte("meta")
)

// ErrNoSnapshot is returned when a map has no stored snapshot.
var ErrNoSnapshot = errors.New("no snapshot for map")

// Store is a bbolt-backed snapshot store.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) a bbolt database at the given path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bbolt open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Meta describes a stored snapshot.
type Meta struct {
	Path       string    `json:"path"`
	Hash       string    `json:"hash"`
	Version    float32   `json:"version"`
	Entities   int       `json:"entities"`
	Primitives int       `json:"primitives"`
	Discarded  int       `json:"discarded"`
	Outcome    string    `json:"outcome,omitempty"`
	SavedAt    time.Time `json:"saved_at"`
}

// StoredPrimitive is a primitive in its JSON form.
type StoredPrimitive struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StoredEntity is an entity in its JSON form.
type StoredEntity struct {
	Index      int                 `json:"index"`
	Classname  string              `json:"classname"`
	Container  bool                `json:"container"`
	KeyValues  parser.KeyValueList `json:"key_values"`
	Primitives []StoredPrimitive   `json:"primitives"`
}

// Snapshot is a stored map.
type Snapshot struct {
	Meta     Meta
	Entities []StoredEntity
}

func indexKey(i int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(i))
	return k
}

// Writer is a parser.Sink collecting the entities of one read. Nothing is
// written until Commit; callers commit only completed reads, so a failed or
// cancelled read leaves the previous snapshot intact.
type Writer struct {
	store    *Store
	path     string
	entities [][]byte
}

// NewWriter starts a snapshot of the map at path.
func (s *Store) NewWriter(path string) *Writer {
	return &Writer{store: s, path: path}
}

// AcceptEntity implements parser.Sink.
func (w *Writer) AcceptEntity(_ context.Context, e *parser.Entity) error {
	se := StoredEntity{
		Index:      len(w.entities),
		Classname:  e.Classname(),
		Container:  e.IsContainer(),
		KeyValues:  e.KeyValues(),
		Primitives: make([]StoredPrimitive, 0, len(e.Primitives())),
	}
	for _, p := range e.Primitives() {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal %s primitive: %w", p.Keyword(), err)
		}
		se.Primitives = append(se.Primitives, StoredPrimitive{Type: p.Keyword(), Data: data})
	}

	data, err := json.Marshal(se)
	if err != nil {
		return fmt.Errorf("marshal entity %d: %w", se.Index, err)
	}
	w.entities = append(w.entities, data)
	return nil
}

// Commit replaces the stored snapshot of the map in one transaction.
func (w *Writer) Commit(meta Meta) error {
	meta.Path = w.path
	meta.Entities = len(w.entities)
	if meta.SavedAt.IsZero() {
		meta.SavedAt = time.Now().UTC()
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	return w.store.db.Update(func(tx *bbolt.Tx) error {
		name := []byte(w.path)
		if tx.Bucket(name) != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		mb, err := tx.CreateBucket(name)
		if err != nil {
			return err
		}
		if err := mb.Put(keyMeta, metaJSON); err != nil {
			return err
		}
		eb, err := mb.CreateBucket(bucketEntities)
		if err != nil {
			return err
		}
		for i, data := range w.entities {
			if err := eb.Put(indexKey(i), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSnapshot reads the stored snapshot of a map.
func (s *Store) LoadSnapshot(path string) (*Snapshot, error) {
	snap := &Snapshot{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		mb := tx.Bucket([]byte(path))
		if mb == nil {
			return ErrNoSnapshot
		}
		if err := json.Unmarshal(mb.Get(keyMeta), &snap.Meta); err != nil {
			return fmt.Errorf("unmarshal meta: %w", err)
		}
		eb := mb.Bucket(bucketEntities)
		if eb == nil {
			return nil
		}
		return eb.ForEach(func(_, v []byte) error {
			var se StoredEntity
			if err := json.Unmarshal(v, &se); err != nil {
				return fmt.Errorf("unmarshal entity: %w", err)
			}
			snap.Entities = append(snap.Entities, se)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", path, err)
	}
	return snap, nil
}

// Maps lists the paths of every stored snapshot.
func (s *Store) Maps() ([]string, error) {
	var paths []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			paths = append(paths, string(name))
			return nil
		})
	})
	return paths, err
}
