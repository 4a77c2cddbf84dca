package scene

import (
	"context"

	"mapreader/internal/parser"
)

type teeSink []parser.Sink

// Tee returns a sink delivering each entity to every sink in order. The
// first error stops delivery of that entity.
func Tee(sinks ...parser.Sink) parser.Sink {
	return teeSink(sinks)
}

func (t teeSink) AcceptEntity(ctx context.Context, e *parser.Entity) error {
	for _, s := range t {
		if err := s.AcceptEntity(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
