package graph

import "fmt"

// Kind partitions load work into the two element categories.
type Kind string

const (
	KindVertex Kind = "vertex"
	KindEdge   Kind = "edge"
)

// Kinds returns the categories in load order. Vertices load before edges
// because edges reference vertex ids.
func Kinds() []Kind {
	return []Kind{KindVertex, KindEdge}
}

func (k Kind) IsVertex() bool {
	return k == KindVertex
}

func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of the two known categories.
func (k Kind) Valid() bool {
	return k == KindVertex || k == KindEdge
}

// Element is a row converted into its wire form, ready for batch submission.
type Element interface {
	ElementKind() Kind
	// ElementID is a short human-readable identity used in logs and
	// failure records, not necessarily the server-side id.
	ElementID() string
}

type Vertex struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties,omitempty"`
}

func (v *Vertex) ElementKind() Kind { return KindVertex }

func (v *Vertex) ElementID() string {
	return fmt.Sprintf("%s:%s", v.Label, v.ID)
}

type Edge struct {
	Label      string         `json:"label"`
	Source     string         `json:"outV"`
	Target     string         `json:"inV"`
	Properties map[string]any `json:"properties,omitempty"`
}

func (e *Edge) ElementKind() Kind { return KindEdge }

func (e *Edge) ElementID() string {
	return fmt.Sprintf("%s:%s->%s", e.Label, e.Source, e.Target)
}
