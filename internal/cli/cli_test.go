package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/config"
)

const testCatalog = `
configurables:
  - id: editor
    name: Editor
    children:
      - id: editor.general
        name: General
        options:
          - text: Font Size
            path: Font
          - text: Show line numbers
            path: Gutter
  - id: appearance
    name: Appearance
    options:
      - text: Color
        path: Scheme
        synonyms: [colour]
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))
	return path
}

func resetState() {
	services = nil
	configPath, catalogPath, jsonOutput = "", "", false
	searchPrevious, searchIncremental = nil, false
	highlightOpen, highlightClose = "[", "]"
	notifyReason, notifyKafka, notifyRedis = "", false, false
	for _, name := range []string{"kafka", "redis"} {
		notifyCmd.Flags().Lookup(name).Changed = false
	}
}

func setupTestServices(t *testing.T) {
	t.Helper()
	resetState()
	cfg := config.Default()
	cfg.Index.CatalogPath = writeCatalog(t)
	svc, err := NewServices(cfg)
	require.NoError(t, err)
	services = svc
	t.Cleanup(resetState)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_HasPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "catalog", "json"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
	assert.NotNil(t, searchCmd.Flags().Lookup("previous"))
	assert.NotNil(t, searchCmd.Flags().Lookup("incremental"))
}

func TestSearchCmd_LoadsCatalogFromFlag(t *testing.T) {
	resetState()
	t.Cleanup(resetState)
	path := writeCatalog(t)

	out, err := execute(t, "search", "--catalog", path, "font")

	require.NoError(t, err)
	assert.Contains(t, out, "Results:")
	assert.Contains(t, out, "[1] General (editor.general)")
	assert.Contains(t, out, "Spotlight: font")
}

func TestSearchCmd_MissingCatalog(t *testing.T) {
	resetState()
	t.Cleanup(resetState)

	_, err := execute(t, "search", "--catalog", filepath.Join(t.TempDir(), "none.yaml"), "font")

	assert.Error(t, err)
}

func TestSearchCmd_NoResults(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "search", "zzzz")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "search", "--json", "colour")
	require.NoError(t, err)

	var got searchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.ContentHits, 1)
	assert.Equal(t, "appearance", got.ContentHits[0].ID)
	assert.Equal(t, "colour", got.SpotlightFilter)
}

func TestSearchCmd_Incremental(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "search", "--incremental", "--previous", "appearance,unknown", "font")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_RejectsExtraArgs(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "search", "a", "b")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1 arg(s)")
}

func TestPathsCmd(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "paths", "editor.general", "line numbers")

	require.NoError(t, err)
	assert.Equal(t, "Gutter\n", out)
}

func TestPathsCmd_UnknownConfigurable(t *testing.T) {
	setupTestServices(t)

	_, err := execute(t, "paths", "nope", "font")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown configurable "nope"`)
}

func TestPathsCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "paths", "--json", "editor.general", "zzzz")
	require.NoError(t, err)

	var got pathsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "editor.general", got.ConfigurableID)
	assert.Empty(t, got.Paths)
}

func TestHighlightCmd(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "highlight", "Show line numbers", "number")

	require.NoError(t, err)
	assert.Equal(t, "Show line [number]s\n", out)
}

func TestHighlightCmd_CustomMarkers(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "highlight", "--open", "<b>", "--close", "</b>", "Show line numbers", "line")

	require.NoError(t, err)
	assert.Equal(t, "Show <b>line</b> numbers\n", out)
}

type fakeNotifier struct {
	name   string
	err    error
	events []consumer.ChangeEvent
	closed bool
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(ctx context.Context, event consumer.ChangeEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) Close() error {
	f.closed = true
	return nil
}

func stubNotifiers(t *testing.T, cfg *config.Config) (kafka, redis *fakeNotifier) {
	t.Helper()
	resetState()
	services = &Services{Config: cfg}
	kafka = &fakeNotifier{name: "kafka"}
	redis = &fakeNotifier{name: "redis"}
	old := newNotifiers
	newNotifiers = func(cfg *config.Config, useKafka, useRedis bool) ([]Notifier, error) {
		var out []Notifier
		if useKafka {
			out = append(out, kafka)
		}
		if useRedis {
			out = append(out, redis)
		}
		return out, nil
	}
	t.Cleanup(func() {
		newNotifiers = old
		resetState()
	})
	return kafka, redis
}

func TestNotifyCmd_NoTransport(t *testing.T) {
	stubNotifiers(t, config.Default())

	_, err := execute(t, "notify")

	assert.ErrorIs(t, err, errNoTransport)
}

func TestNotifyCmd_UsesConfiguredTransport(t *testing.T) {
	cfg := config.Default()
	cfg.Invalidation.RedisEnabled = true
	kafka, redis := stubNotifiers(t, cfg)

	out, err := execute(t, "notify", "--reason", "catalog edited")

	require.NoError(t, err)
	assert.Empty(t, kafka.events)
	require.Len(t, redis.events, 1)
	assert.Equal(t, "catalog edited", redis.events[0].Reason)
	assert.False(t, redis.events[0].At.IsZero())
	assert.True(t, redis.closed)
	assert.Contains(t, out, "Notified via redis.")
}

func TestNotifyCmd_FlagOverridesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Invalidation.RedisEnabled = true
	kafka, redis := stubNotifiers(t, cfg)

	_, err := execute(t, "notify", "--kafka", "--redis=false")

	require.NoError(t, err)
	assert.Len(t, kafka.events, 1)
	assert.Empty(t, redis.events)
}

func TestNotifyCmd_ReportsFailures(t *testing.T) {
	cfg := config.Default()
	kafka, redis := stubNotifiers(t, cfg)
	kafka.err = errors.New("broker down")

	out, err := execute(t, "notify", "--kafka", "--redis")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka: broker down")
	assert.Len(t, redis.events, 1)
	assert.Contains(t, out, "Notified via redis.")
}
