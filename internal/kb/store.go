// Package kb holds the frame knowledge base: an immutable, validated snapshot
// of the disease frame hierarchy and the symptom vocabulary derived from it.
package kb

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/pkg/findings"
)

// Store is one immutable snapshot of the frame hierarchy. All frames are kept
// in canonical order: pre-order traversal from the root, children in the
// order they were declared.
type Store struct {
	root       string
	frames     []*domain.Frame
	byID       map[string]*domain.Frame
	graph      domain.Graph
	vocabulary []string
	diseases   []string
	version    string
}

// NewEmptyStore returns a store without frames.
func NewEmptyStore() *Store {
	s := &Store{
		byID:       map[string]*domain.Frame{},
		frames:     []*domain.Frame{},
		graph:      domain.Graph{Nodes: []domain.Node{}, Edges: []domain.Edge{}},
		vocabulary: []string{},
		diseases:   []string{},
	}
	s.version = s.computeVersion()
	return s
}

// NewStore validates definitions and builds a snapshot rooted at root.
// It fails with domain.ErrInvalidFrameGraph when ids collide, when a frame
// other than the root lacks a known parent, when the root has a parent, or
// when some frame cannot be reached from the root exactly once.
// An empty definition list yields an empty store.
func NewStore(root string, defs []domain.FrameDefinition) (*Store, error) {
	if len(defs) == 0 {
		return NewEmptyStore(), nil
	}

	root = strings.TrimSpace(root)
	if root == "" {
		return nil, invalidGraph("root frame id is required")
	}

	byID := make(map[string]*domain.Frame, len(defs))
	declared := make([]string, 0, len(defs))
	for i, def := range defs {
		frame, err := buildFrame(def)
		if err != nil {
			return nil, fmt.Errorf("frame #%d: %w", i, err)
		}
		if _, dup := byID[frame.ID]; dup {
			return nil, invalidGraph("duplicate frame id %q", frame.ID)
		}
		byID[frame.ID] = frame
		declared = append(declared, frame.ID)
	}

	rootFrame, ok := byID[root]
	if !ok {
		return nil, invalidGraph("root frame %q is not defined", root)
	}
	if rootFrame.Parent != "" {
		return nil, invalidGraph("root frame %q must not have a parent, found %q", root, rootFrame.Parent)
	}

	for _, id := range declared {
		frame := byID[id]
		if id == root {
			continue
		}
		if frame.Parent == "" {
			return nil, invalidGraph("frame %q has no parent", id)
		}
		parent, ok := byID[frame.Parent]
		if !ok {
			return nil, invalidGraph("frame %q references unknown parent %q", id, frame.Parent)
		}
		parent.Children = append(parent.Children, id)
	}

	ordered, err := preOrder(rootFrame, byID)
	if err != nil {
		return nil, err
	}

	s := &Store{
		root:   root,
		frames: ordered,
		byID:   byID,
	}
	s.graph = s.buildGraph()
	s.vocabulary = s.buildVocabulary()
	s.diseases = s.buildDiseases()
	s.version = s.computeVersion()
	return s, nil
}

// FromGraph builds a store from a rendered hierarchy, the shape served by
// GET /api/frames. A node with more than one incoming edge is rejected.
func FromGraph(root string, graph domain.Graph) (*Store, error) {
	parents := make(map[string]string, len(graph.Edges))
	for _, e := range graph.Edges {
		if prev, ok := parents[e.To]; ok && prev != e.From {
			return nil, invalidGraph("frame %q has more than one parent (%q, %q)", e.To, prev, e.From)
		}
		parents[e.To] = e.From
	}

	known := make(map[string]bool, len(graph.Nodes))
	for _, n := range graph.Nodes {
		known[n.ID] = true
	}
	for child := range parents {
		if !known[child] {
			return nil, invalidGraph("edge points to unknown frame %q", child)
		}
	}

	defs := make([]domain.FrameDefinition, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		defs = append(defs, domain.FrameDefinition{
			ID:       n.ID,
			Label:    n.Label,
			Parent:   parents[n.ID],
			Findings: n.Findings,
			Rules:    n.Rules,
		})
	}
	return NewStore(root, defs)
}

func buildFrame(def domain.FrameDefinition) (*domain.Frame, error) {
	id := strings.TrimSpace(def.ID)
	if id == "" {
		return nil, invalidGraph("frame id is required")
	}

	label := strings.TrimSpace(def.Label)
	if label == "" {
		label = id
	}

	weights := make(map[string]float64, len(def.Findings))
	for raw, w := range def.Findings {
		key := findings.Normalize(raw)
		if key == "" {
			return nil, invalidGraph("frame %q has a blank finding id", id)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return nil, invalidGraph("frame %q finding %q has invalid weight %v", id, raw, w)
		}
		if _, dup := weights[key]; dup {
			return nil, invalidGraph("frame %q declares finding %q twice", id, key)
		}
		weights[key] = w
	}

	rules := make(map[string][]string, len(def.Rules))
	for rawKind, members := range def.Rules {
		kind := domain.ParseRuleKind(rawKind)
		if kind == "" {
			return nil, invalidGraph("frame %q has a blank rule kind", id)
		}
		if _, dup := rules[string(kind)]; dup {
			return nil, invalidGraph("frame %q declares rule %q twice", id, kind)
		}
		seen := make(map[string]struct{}, len(members))
		normalized := make([]string, 0, len(members))
		for _, m := range members {
			key := findings.Normalize(m)
			if key == "" {
				return nil, invalidGraph("frame %q rule %q has a blank member", id, kind)
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			normalized = append(normalized, key)
		}
		rules[string(kind)] = normalized
	}

	return &domain.Frame{
		ID:       id,
		Label:    label,
		Parent:   strings.TrimSpace(def.Parent),
		Findings: weights,
		Rules:    rules,
	}, nil
}

// preOrder walks the tree from root and assigns canonical order and depth.
// Every frame must be visited exactly once.
func preOrder(root *domain.Frame, byID map[string]*domain.Frame) ([]*domain.Frame, error) {
	ordered := make([]*domain.Frame, 0, len(byID))
	visited := make(map[string]bool, len(byID))

	type item struct {
		id    string
		depth int
	}
	stack := []item{{id: root.ID}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if visited[top.id] {
			return nil, invalidGraph("frame %q is reachable more than once", top.id)
		}
		visited[top.id] = true

		frame := byID[top.id]
		frame.Order = len(ordered)
		frame.Depth = top.depth
		ordered = append(ordered, frame)

		for i := len(frame.Children) - 1; i >= 0; i-- {
			stack = append(stack, item{id: frame.Children[i], depth: top.depth + 1})
		}
	}

	if len(ordered) != len(byID) {
		var orphaned []string
		for id := range byID {
			if !visited[id] {
				orphaned = append(orphaned, id)
			}
		}
		sort.Strings(orphaned)
		return nil, invalidGraph("frames not reachable from root %q (cycle?): %s", root.ID, strings.Join(orphaned, ", "))
	}
	return ordered, nil
}

func (s *Store) buildGraph() domain.Graph {
	g := domain.Graph{
		Nodes: make([]domain.Node, 0, len(s.frames)),
		Edges: make([]domain.Edge, 0, len(s.frames)),
	}
	for _, f := range s.frames {
		g.Nodes = append(g.Nodes, domain.Node{
			ID:       f.ID,
			Label:    f.Label,
			Findings: f.Findings,
			Rules:    f.Rules,
		})
		if !f.IsRoot() {
			g.Edges = append(g.Edges, domain.Edge{From: f.Parent, To: f.ID})
		}
	}
	return g
}

func (s *Store) buildVocabulary() []string {
	vocab := findings.Set{}
	for _, f := range s.frames {
		for id := range f.Findings {
			vocab[id] = struct{}{}
		}
		for _, members := range f.Rules {
			for _, id := range members {
				vocab[id] = struct{}{}
			}
		}
	}
	return vocab.Sorted()
}

func (s *Store) buildDiseases() []string {
	out := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		if f.IsDiagnosable() {
			out = append(out, f.ID)
		}
	}
	return out
}

// computeVersion hashes the rendered hierarchy. encoding/json sorts map keys,
// so equal hierarchies always hash the same.
func (s *Store) computeVersion() string {
	payload, err := json.Marshal(struct {
		Root  string       `json:"root"`
		Graph domain.Graph `json:"graph"`
	}{s.root, s.graph})
	if err != nil {
		return "unversioned"
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:6])
}

// Root returns the root frame id, or "" for an empty store.
func (s *Store) Root() string {
	return s.root
}

// Len returns the number of frames, root included.
func (s *Store) Len() int {
	return len(s.frames)
}

// AllFrames returns every frame in canonical order.
func (s *Store) AllFrames() []*domain.Frame {
	return s.frames
}

// Frame looks up a frame by id.
func (s *Store) Frame(id string) (*domain.Frame, bool) {
	f, ok := s.byID[id]
	return f, ok
}

// Hierarchy returns the nodes and parent to child edges for rendering.
func (s *Store) Hierarchy() domain.Graph {
	return s.graph
}

// SymptomVocabulary returns every finding id mentioned by any frame's
// findings or rules, deduplicated and sorted.
func (s *Store) SymptomVocabulary() []string {
	return s.vocabulary
}

// Diseases returns the ids of frames that take part in ranking, in canonical
// order.
func (s *Store) Diseases() []string {
	return s.diseases
}

// Version identifies the snapshot's content.
func (s *Store) Version() string {
	return s.version
}

func invalidGraph(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidFrameGraph, fmt.Sprintf(format, args...))
}
