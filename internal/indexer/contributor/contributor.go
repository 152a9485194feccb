// Package contributor defines how option sources feed an index build and
// ships the built-in sources: a YAML catalog file and a PostgreSQL table.
package contributor

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/index"
)

// Contributor is invoked once per build and reports its options through p.
// Implementations should return the error of any failed Processor call
// unchanged so the engine can tell cancellation and invalidation apart from
// source failures.
type Contributor interface {
	Name() string
	Contribute(ctx context.Context, p index.Processor) error
}

type funcContributor struct {
	name string
	fn   func(ctx context.Context, p index.Processor) error
}

// Func adapts a plain function into a Contributor.
func Func(name string, fn func(ctx context.Context, p index.Processor) error) Contributor {
	return &funcContributor{name: name, fn: fn}
}

func (f *funcContributor) Name() string { return f.name }

func (f *funcContributor) Contribute(ctx context.Context, p index.Processor) error {
	return f.fn(ctx, p)
}
