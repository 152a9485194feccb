package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/configurable"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/contributor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/config"
)

var benchWords = []string{
	"font", "size", "line", "numbers", "spacing", "ligatures", "scheme",
	"commit", "message", "wrap", "tabs", "indent", "gutter", "breadcrumbs",
}

// newBenchExecutor indexes panels configurables with perPanel options each
// and builds the index before returning.
func newBenchExecutor(b *testing.B, panels, perPanel int) (*Executor, []*configurable.Configurable) {
	b.Helper()
	roots := make([]*configurable.Configurable, panels)
	for i := range roots {
		roots[i] = &configurable.Configurable{ID: fmt.Sprintf("panel-%d", i), DisplayName: fmt.Sprintf("Panel %d", i)}
	}
	fill := contributor.Func("bench", func(ctx context.Context, p index.Processor) error {
		for i, c := range roots {
			for j := 0; j < perPanel; j++ {
				text := fmt.Sprintf("%s %s", benchWords[(i+j)%len(benchWords)], benchWords[(i*j+3)%len(benchWords)])
				if err := p.AddOptions(text, fmt.Sprintf("Section %d", j%5), "", c.ID, c.DisplayName, true); err != nil {
					return err
				}
			}
		}
		return nil
	})
	tok := tokenizer.New(tokenizer.DefaultStopWords(), tokenizer.SnowballStem)
	engine := indexer.NewEngine(config.IndexConfig{MaxBuildAttempts: 1}, tok, nil, fill)
	if _, err := engine.EnsureBuilt(context.Background()); err != nil {
		b.Fatal(err)
	}
	exec := New(engine, parser.New(config.SearchConfig{PathSeparator: parser.DefaultSeparator}), nil)
	return exec, roots
}

func BenchmarkGetConfigurables(b *testing.B) {
	exec, roots := newBenchExecutor(b, 200, 20)
	queries := []string{"font", "line numbers", "brea", "Panel 7 | Section"}
	ctx := context.Background()
	for _, q := range queries {
		b.Run(q, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := exec.GetConfigurables(ctx, Request{Groups: roots, Query: q}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkFindByPrefixParallel(b *testing.B) {
	exec, _ := newBenchExecutor(b, 200, 20)
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, _, err := exec.FindByPrefix(ctx, "spac"); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkGetInnerPaths(b *testing.B) {
	exec, _ := newBenchExecutor(b, 200, 20)
	ctx := context.Background()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := exec.GetInnerPaths(ctx, "panel-3", "font size"); err != nil {
			b.Fatal(err)
		}
	}
}
