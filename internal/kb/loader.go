package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frame-dx-server/internal/domain"
)

// Document is the on-disk form of a frame hierarchy. Either Frames (each
// naming its parent) or Nodes plus Edges (the GET /api/frames shape) may be
// given, not both.
type Document struct {
	Root   string                   `json:"root" yaml:"root"`
	Frames []domain.FrameDefinition `json:"frames,omitempty" yaml:"frames,omitempty"`
	Nodes  []domain.Node            `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Edges  []domain.Edge            `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// Loader produces a fresh store snapshot.
type Loader func(ctx context.Context) (*Store, error)

// Parse decodes a frame document. format is "json" or "yaml"; anything else
// is treated as YAML.
func Parse(data []byte, format string) (*Document, error) {
	var doc Document
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: decoding JSON: %v", domain.ErrInvalidFrameGraph, err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: decoding YAML: %v", domain.ErrInvalidFrameGraph, err)
		}
	}
	return &doc, nil
}

// Build validates the document and produces a store.
func (d *Document) Build() (*Store, error) {
	switch {
	case len(d.Frames) > 0 && len(d.Nodes) > 0:
		return nil, invalidGraph("document declares both frames and nodes")
	case len(d.Nodes) > 0:
		return FromGraph(d.Root, domain.Graph{Nodes: d.Nodes, Edges: d.Edges})
	default:
		return NewStore(d.Root, d.Frames)
	}
}

// LoadFile reads and validates a frame document from path. The format is
// chosen by extension: .json for JSON, anything else for YAML.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame file %s: %w", path, err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}

	doc, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing frame file %s: %w", path, err)
	}

	store, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("building frames from %s: %w", path, err)
	}
	return store, nil
}

// FileLoader returns a Loader that re-reads path on every call. An empty path
// loads the built-in seed knowledge base.
func FileLoader(path string) Loader {
	return func(ctx context.Context) (*Store, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if path == "" {
			return Seed()
		}
		return LoadFile(path)
	}
}
