package contributor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/configurable"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/errors"
)

type catalogFile struct {
	Configurables []catalogNode `yaml:"configurables"`
}

type catalogNode struct {
	ID       string          `yaml:"id"`
	Name     string          `yaml:"name"`
	Options  []catalogOption `yaml:"options"`
	Children []catalogNode   `yaml:"children"`
}

type catalogOption struct {
	Text     string   `yaml:"text"`
	Hit      string   `yaml:"hit"`
	Path     string   `yaml:"path"`
	Synonyms []string `yaml:"synonyms"`
	// Stem defaults to true.
	Stem *bool `yaml:"stem"`
}

type catalogContent struct {
	roots []*configurable.Configurable
	nodes []flatNode
}

type flatNode struct {
	node *configurable.Configurable
	opts []catalogOption
}

// Catalog is a YAML option file describing the configurable tree and the
// options of every configurable. It is both a Contributor and the source of
// the tree that queries resolve against. Reload swaps the content atomically.
type Catalog struct {
	path    string
	content atomic.Pointer[catalogContent]
	logger  *slog.Logger
}

// LoadCatalog reads and parses the catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	c := &Catalog{
		path:   path,
		logger: slog.Default().With("component", "catalog", "path", path),
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseCatalog builds a catalog from YAML held in memory. Reload on such a
// catalog fails.
func ParseCatalog(data []byte) (*Catalog, error) {
	content, err := parseCatalog(data)
	if err != nil {
		return nil, err
	}
	c := &Catalog{logger: slog.Default().With("component", "catalog")}
	c.content.Store(content)
	return c, nil
}

// Reload re-reads the file. On error the previous content stays in place.
func (c *Catalog) Reload() error {
	if c.path == "" {
		return fmt.Errorf("catalog has no backing file: %w", apperrors.ErrInvalidInput)
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("reading catalog %s: %w", c.path, err)
	}
	content, err := parseCatalog(data)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", c.path, err)
	}
	c.content.Store(content)
	c.logger.Info("catalog loaded", "configurables", len(content.nodes))
	return nil
}

func (c *Catalog) Path() string { return c.path }

func (c *Catalog) Name() string { return "catalog" }

// Roots returns the top-level configurables of the current content.
func (c *Catalog) Roots() []*configurable.Configurable {
	return c.content.Load().roots
}

// Contribute indexes every configurable's display name and options.
func (c *Catalog) Contribute(ctx context.Context, p index.Processor) error {
	content := c.content.Load()
	for _, n := range content.nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, name := n.node.ID, n.node.DisplayName
		if err := p.AddOptions(name, "", name, id, name, true); err != nil {
			return err
		}
		for _, opt := range n.opts {
			hit := opt.Hit
			if hit == "" {
				hit = opt.Text
			}
			stem := opt.Stem == nil || *opt.Stem
			if err := p.AddOptions(opt.Text, opt.Path, hit, id, name, stem); err != nil {
				return err
			}
			if len(opt.Synonyms) > 0 {
				if err := p.AddSynonyms(hit, id, name, opt.Path, opt.Synonyms); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func parseCatalog(data []byte) (*catalogContent, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	content := &catalogContent{}
	seen := make(map[string]struct{})
	var convert func(nodes []catalogNode, where string) ([]*configurable.Configurable, error)
	convert = func(nodes []catalogNode, where string) ([]*configurable.Configurable, error) {
		out := make([]*configurable.Configurable, 0, len(nodes))
		for i, n := range nodes {
			id := strings.TrimSpace(n.ID)
			if id == "" {
				return nil, fmt.Errorf("%s[%d] (%q) has no id: %w", where, i, n.Name, apperrors.ErrInvalidInput)
			}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("duplicate configurable id %q: %w", id, apperrors.ErrInvalidInput)
			}
			seen[id] = struct{}{}
			node := &configurable.Configurable{ID: id, DisplayName: strings.TrimSpace(n.Name)}
			content.nodes = append(content.nodes, flatNode{node: node, opts: n.Options})
			children, err := convert(n.Children, where+"."+id)
			if err != nil {
				return nil, err
			}
			if len(children) > 0 {
				node.Children = children
			}
			out = append(out, node)
		}
		return out, nil
	}
	roots, err := convert(file.Configurables, "configurables")
	if err != nil {
		return nil, err
	}
	content.roots = roots
	return content, nil
}
