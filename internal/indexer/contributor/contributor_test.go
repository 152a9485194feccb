package contributor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/errors"
)

type optionCall struct {
	Text, Path, Hit, ConfigurableID, Group string
	Stem                                   bool
}

type synonymCall struct {
	Highlight, ConfigurableID, Group, Path string
	Synonyms                               []string
}

type recorder struct {
	options  []optionCall
	synonyms []synonymCall
	err      error
}

func (r *recorder) AddOptions(text, path, hit, configurableID, groupName string, applyStemming bool) error {
	if r.err != nil {
		return r.err
	}
	r.options = append(r.options, optionCall{text, path, hit, configurableID, groupName, applyStemming})
	return nil
}

func (r *recorder) AddSynonyms(highlight, configurableID, groupName, path string, synonyms []string) error {
	if r.err != nil {
		return r.err
	}
	r.synonyms = append(r.synonyms, synonymCall{highlight, configurableID, groupName, path, synonyms})
	return nil
}

const sampleCatalog = `
configurables:
  - id: editor
    name: Editor
    children:
      - id: editor.general
        name: General
        options:
          - text: Font Size
            path: Font
            synonyms: [text size]
          - text: Show line numbers
            hit: Line numbers
            stem: false
  - id: vcs
    name: Version Control
`

func TestFuncAdapter(t *testing.T) {
	called := false
	c := Func("static", func(ctx context.Context, p index.Processor) error {
		called = true
		return p.AddOptions("Tabs", "", "Tabs", "tabs", "Tabs", true)
	})
	rec := &recorder{}
	require.NoError(t, c.Contribute(context.Background(), rec))
	assert.True(t, called)
	assert.Equal(t, "static", c.Name())
	assert.Len(t, rec.options, 1)
}

func TestParseCatalogTree(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	roots := c.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, "editor", roots[0].ID)
	assert.Equal(t, "Editor", roots[0].DisplayName)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "General", roots[0].Children[0].DisplayName)
	assert.True(t, roots[0].IsComposite())
	assert.False(t, roots[1].IsComposite())
}

func TestCatalogContribute(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, c.Contribute(context.Background(), rec))

	assert.Equal(t, []optionCall{
		{"Editor", "", "Editor", "editor", "Editor", true},
		{"General", "", "General", "editor.general", "General", true},
		{"Font Size", "Font", "Font Size", "editor.general", "General", true},
		{"Show line numbers", "", "Line numbers", "editor.general", "General", false},
		{"Version Control", "", "Version Control", "vcs", "Version Control", true},
	}, rec.options)
	assert.Equal(t, []synonymCall{
		{"Font Size", "editor.general", "General", "Font", []string{"text size"}},
	}, rec.synonyms)
}

func TestCatalogContributeStopsOnProcessorError(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	rec := &recorder{err: apperrors.ErrIndexInvalidated}
	err = c.Contribute(context.Background(), rec)
	assert.ErrorIs(t, err, apperrors.ErrIndexInvalidated)
}

func TestCatalogContributeHonorsCancellation(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}
	err = c.Contribute(ctx, rec)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, rec.options)
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing id", "configurables:\n  - name: Editor\n"},
		{"duplicate id", "configurables:\n  - id: a\n    name: A\n  - id: a\n    name: B\n"},
		{"duplicate nested id", "configurables:\n  - id: a\n    children:\n      - id: a\n"},
		{"malformed", "configurables: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, path, c.Path())
	require.Len(t, c.Roots(), 2)

	require.NoError(t, os.WriteFile(path, []byte("configurables:\n  - id: only\n    name: Only\n"), 0o644))
	require.NoError(t, c.Reload())
	require.Len(t, c.Roots(), 1)
	assert.Equal(t, "only", c.Roots()[0].ID)

	require.NoError(t, os.WriteFile(path, []byte("configurables: [\n"), 0o644))
	assert.Error(t, c.Reload())
	require.Len(t, c.Roots(), 1, "failed reload keeps previous content")
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParsedCatalogCannotReload(t *testing.T) {
	c, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	assert.ErrorIs(t, c.Reload(), apperrors.ErrInvalidInput)
}
