package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// NodeID is a content-addressed identifier for graph nodes.
type NodeID string

// ZeroID is the empty identifier.
const ZeroID NodeID = ""

// NewNodeID hashes the given parts into an identifier. Equal inputs always
// yield equal IDs, so re-evaluating the same plate script is stable.
func NewNodeID(parts ...string) NodeID {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return NodeID(hex.EncodeToString(sum[:]))
}

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == ZeroID }

// Short returns the first eight characters for messages.
func (id NodeID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// NodeKind enumerates the types of nodes in the plate graph.
type NodeKind int

const (
	NodeShape     NodeKind = iota // a solid or flat shape
	NodeTransform                 // placement of one child
	NodeObject                    // named group of placed shapes
)

func (k NodeKind) String() string {
	switch k {
	case NodeShape:
		return "shape"
	case NodeTransform:
		return "transform"
	case NodeObject:
		return "object"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is the fundamental element of the plate graph.
type Node struct {
	ID       NodeID   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Name     string   `json:"name,omitempty"`
	Children []NodeID `json:"children,omitempty"`
	Data     NodeData `json:"data"`
}

// NodeData is the interface for kind-specific node payloads.
type NodeData interface {
	nodeData() // marker method restricting implementations to this package
}

// ShapeData carries the shape of a NodeShape.
type ShapeData struct {
	Shape *Shape `json:"shape"`
}

func (ShapeData) nodeData() {}

// TransformData places the single child of a NodeTransform. Scale is
// applied first, then rotation (X, Y, Z Euler angles in degrees), then
// translation. Nil fields are identity.
type TransformData struct {
	Translation *v3.Vec `json:"translation,omitempty"`
	Rotation    *v3.Vec `json:"rotation,omitempty"`
	Scale       *v3.Vec `json:"scale,omitempty"`
}

func (TransformData) nodeData() {}

// ObjectData describes a NodeObject.
type ObjectData struct {
	Description string `json:"description,omitempty"`
}

func (ObjectData) nodeData() {}
