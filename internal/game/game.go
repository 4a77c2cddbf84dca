// Package game loads the game description: the map version a game requires,
// its entity classes, the primitive formats it uses and the debug import
// filters. Descriptions are YAML files.
package game

import (
	"fmt"
	"os"
	"strings"

	"mapreader/internal/eclass"
	"mapreader/internal/primitive"

	"gopkg.in/yaml.v3"
)

// Default values for game descriptions.
const (
	DefaultType       = "doom3"
	DefaultName       = "Doom 3"
	DefaultMapVersion = float32(2)
)

// Game is a game description.
type Game struct {
	Type          string         `yaml:"type"`
	Name          string         `yaml:"name"`
	MapFormat     MapFormat      `yaml:"mapFormat"`
	EntityClasses []eclass.Class `yaml:"entityClasses"`
	Debug         Debug          `yaml:"debug"`
}

// MapFormat describes the map files of a game.
type MapFormat struct {
	// Version is the exact version a map header must carry.
	Version float32 `yaml:"version"`
	// Primitives lists the accepted primitive keywords. Empty means all known.
	Primitives []string `yaml:"primitives"`
}

// Debug holds import filters used when debugging map loads.
type Debug struct {
	// DiscardEntityClasses are dropped instead of inserted into the scene.
	DiscardEntityClasses []string `yaml:"discardEntityClasses"`
	// EntityRange, when set, keeps only entities whose index lies in [Start, End].
	EntityRange *EntityRange `yaml:"entityRange"`
}

// EntityRange is an inclusive range of entity indices.
type EntityRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// RequiredVersion implements parser.VersionSource.
func (g *Game) RequiredVersion() float32 {
	return g.MapFormat.Version
}

// Classes returns an entity class manager seeded with the game's classes.
func (g *Game) Classes() *eclass.Manager {
	return eclass.NewManager(g.EntityClasses)
}

// Primitives returns the primitive registry restricted to the game's formats.
func (g *Game) Primitives() *primitive.Registry {
	all := primitive.DefaultRegistry()
	if len(g.MapFormat.Primitives) == 0 {
		return all
	}
	return all.Restrict(g.MapFormat.Primitives)
}

// Load reads a game description from a YAML file, applies defaults and validates it.
func Load(path string) (*Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read game file %q: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a game description. source names the data in errors.
func Parse(data []byte, source string) (*Game, error) {
	var g Game
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse game file %q: %w", source, err)
	}

	ApplyDefaults(&g)

	if err := Validate(&g); err != nil {
		return nil, fmt.Errorf("game file %q: %w", source, err)
	}
	return &g, nil
}

// Default returns the built-in Doom 3 description.
func Default() *Game {
	g := &Game{
		EntityClasses: []eclass.Class{
			{ClassName: "worldspawn", Container: true, Description: "The world"},
			{ClassName: "func_static", Container: true, Description: "Static brush or model"},
			{ClassName: "func_group", Container: true},
			{ClassName: "func_door", Container: true},
			{ClassName: "func_mover", Container: true},
			{ClassName: "trigger_once", Container: true},
			{ClassName: "trigger_multiple", Container: true},
			{ClassName: "light", Description: "Point or projected light"},
			{ClassName: "info_player_start", Description: "Player spawn point"},
			{ClassName: "info_player_deathmatch"},
			{ClassName: "path_corner"},
			{ClassName: "speaker"},
			{ClassName: "target_null"},
		},
	}
	ApplyDefaults(g)
	return g
}

// ApplyDefaults fills unset fields.
func ApplyDefaults(g *Game) {
	if g.Type == "" {
		g.Type = DefaultType
	}
	if g.Name == "" {
		g.Name = DefaultName
	}
	if g.MapFormat.Version == 0 {
		g.MapFormat.Version = DefaultMapVersion
	}
}

// FieldError is a validation error for one field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every failed rule.
type ValidationError struct {
	Errors []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d errors:\n", len(e.Errors)))
	for _, fe := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", fe.Error()))
	}
	return sb.String()
}

// Validate checks a description after defaults are applied.
func Validate(g *Game) error {
	var errs []FieldError

	if g.MapFormat.Version < 0 {
		errs = append(errs, FieldError{Field: "mapFormat.version", Message: "must not be negative"})
	}

	known := primitive.DefaultRegistry()
	for i, kw := range g.MapFormat.Primitives {
		if _, ok := known.Lookup(kw); !ok {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("mapFormat.primitives[%d]", i),
				Message: fmt.Sprintf("unknown primitive type %q", kw),
			})
		}
	}

	for i, c := range g.EntityClasses {
		if c.ClassName == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("entityClasses[%d].name", i), Message: "is required"})
		}
	}

	if r := g.Debug.EntityRange; r != nil && (r.Start < 0 || r.End < r.Start) {
		errs = append(errs, FieldError{Field: "debug.entityRange", Message: fmt.Sprintf("invalid range [%d, %d]", r.Start, r.End)})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
