// Package domain contains the core entities of the frame-based diagnosis engine:
// disease frames, their findings and hard rules, the wire shapes exposed to the
// browser front-end, and the configuration and error types shared by every layer.
//
// Frames follow classic frame-based knowledge representation (PIP / Internist-1
// style): each disease is a record of weighted findings plus must_have and
// must_not_have constraints, organised in a single-rooted hierarchy.
package domain

import (
	"errors"
	"strings"
)

// RuleKind identifies a hard constraint attached to a frame.
type RuleKind string

const (
	MustHave    RuleKind = "must_have"
	MustNotHave RuleKind = "must_not_have"
)

// Sentinel errors. Callers wrap them with detail using %w.
var (
	ErrInvalidFrameGraph = errors.New("invalid frame graph")
	ErrInvalidRequest    = errors.New("invalid diagnosis request")
	ErrNotFound          = errors.New("not found")
	ErrUnavailable       = errors.New("service unavailable")
)

// IsKnown reports whether the evaluator enforces this rule kind.
// Unknown kinds are kept in the store and ignored during evaluation.
func (k RuleKind) IsKnown() bool {
	switch k {
	case MustHave, MustNotHave:
		return true
	default:
		return false
	}
}

// String returns the wire name of the rule kind.
func (k RuleKind) String() string {
	return string(k)
}

// ParseRuleKind normalizes a rule kind name as written by frame authors.
func ParseRuleKind(s string) RuleKind {
	return RuleKind(strings.ToLower(strings.TrimSpace(s)))
}

// FrameDefinition is the authoring shape of a frame, before the store
// validates the hierarchy and normalizes finding identifiers.
type FrameDefinition struct {
	ID       string              `json:"id" yaml:"id"`
	Label    string              `json:"label,omitempty" yaml:"label,omitempty"`
	Parent   string              `json:"parent,omitempty" yaml:"parent,omitempty"`
	Findings map[string]float64  `json:"findings,omitempty" yaml:"findings,omitempty"`
	Rules    map[string][]string `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Frame is a validated node of the frame hierarchy. Frames are owned by an
// immutable store snapshot and must not be mutated after construction.
type Frame struct {
	ID       string
	Label    string
	Parent   string
	Children []string
	Findings map[string]float64
	Rules    map[string][]string

	// Order is the frame's position in the canonical pre-order traversal.
	Order int
	Depth int
}

// IsRoot reports whether the frame is the hierarchy root.
func (f *Frame) IsRoot() bool {
	return f.Parent == ""
}

// IsGrouping reports whether the frame only groups other frames: it carries
// neither findings nor rules.
func (f *Frame) IsGrouping() bool {
	if len(f.Findings) > 0 {
		return false
	}
	for _, members := range f.Rules {
		if len(members) > 0 {
			return false
		}
	}
	return true
}

// IsDiagnosable reports whether the frame takes part in ranking.
func (f *Frame) IsDiagnosable() bool {
	return !f.IsRoot() && !f.IsGrouping()
}

// RuleMembers returns the finding ids constrained by the given rule kind.
// A missing kind yields nil, which callers treat as "no constraint".
func (f *Frame) RuleMembers(kind RuleKind) []string {
	if f.Rules == nil {
		return nil
	}
	return f.Rules[string(kind)]
}

// Node is one frame as rendered by the front-end tree view.
type Node struct {
	ID       string              `json:"id" yaml:"id"`
	Label    string              `json:"label" yaml:"label"`
	Findings map[string]float64  `json:"findings" yaml:"findings"`
	Rules    map[string][]string `json:"rules" yaml:"rules"`
}

// Edge is a parent to child link in the frame hierarchy.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Graph is the full hierarchy served by GET /api/frames.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// FrameCatalog is a read-only view over one frame store snapshot.
type FrameCatalog interface {
	AllFrames() []*Frame
	Frame(id string) (*Frame, bool)
	Hierarchy() Graph
	SymptomVocabulary() []string
	Diseases() []string
	Version() string
}

// CatalogProvider hands out the current catalog snapshot. Implementations
// swap snapshots atomically, so one call yields a consistent view.
type CatalogProvider interface {
	Catalog() FrameCatalog
}
