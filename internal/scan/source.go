package scan

import (
	"context"

	"github.com/nao1215/recongraph/internal/model"
)

// Source is one external reconnaissance data provider.
//
// Query receives the resolved address for model.KeyAddress sources and the
// original domain for model.KeyDomain sources. The returned payload is stored
// as-is in the report; payloads that implement the model signal interfaces
// feed the risk score.
type Source interface {
	Name() string
	Key() model.SourceKey
	Query(ctx context.Context, key string) (any, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc struct {
	SourceName string
	SourceKey  model.SourceKey
	Fn         func(ctx context.Context, key string) (any, error)
}

// Name implements Source.
func (f SourceFunc) Name() string { return f.SourceName }

// Key implements Source.
func (f SourceFunc) Key() model.SourceKey { return f.SourceKey }

// Query implements Source.
func (f SourceFunc) Query(ctx context.Context, key string) (any, error) {
	return f.Fn(ctx, key)
}
