package graph

import "fmt"

// PlateGraph is the top-level immutable data structure produced by plate
// script evaluation or by a job file. Each evaluation produces a new graph.
type PlateGraph struct {
	Nodes     map[NodeID]*Node  `json:"nodes"`
	Roots     []NodeID          `json:"roots"`
	NameIndex map[string]NodeID `json:"name_index"`
	Version   uint64            `json:"version"`
}

// New creates an empty PlateGraph.
func New() *PlateGraph {
	return &PlateGraph{
		Nodes:     make(map[NodeID]*Node),
		NameIndex: make(map[string]NodeID),
	}
}

// AddNode adds a node to the graph. It does not check for duplicates.
func (g *PlateGraph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
	if n.Name != "" {
		g.NameIndex[n.Name] = n.ID
	}
}

// AddRoot registers a node ID as a root of the graph.
func (g *PlateGraph) AddRoot(id NodeID) {
	g.Roots = append(g.Roots, id)
}

// Lookup returns the node with the given name, or nil.
func (g *PlateGraph) Lookup(name string) *Node {
	id, ok := g.NameIndex[name]
	if !ok {
		return nil
	}
	return g.Nodes[id]
}

// MustLookup returns the node with the given name, or panics.
func (g *PlateGraph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *PlateGraph) Get(id NodeID) *Node {
	return g.Nodes[id]
}

// Shapes returns all shape nodes in the graph.
func (g *PlateGraph) Shapes() []*Node {
	var shapes []*Node
	for _, n := range g.Nodes {
		if n.Kind == NodeShape {
			shapes = append(shapes, n)
		}
	}
	return shapes
}

// Children returns the child nodes of n, skipping dangling references.
func (g *PlateGraph) Children(n *Node) []*Node {
	children := make([]*Node, 0, len(n.Children))
	for _, cid := range n.Children {
		if c := g.Nodes[cid]; c != nil {
			children = append(children, c)
		}
	}
	return children
}

// NodeCount returns the total number of nodes.
func (g *PlateGraph) NodeCount() int {
	return len(g.Nodes)
}

// AddShape adds a named shape node and returns its ID.
func (g *PlateGraph) AddShape(s *Shape) NodeID {
	id := NewNodeID("shape", s.Name)
	g.AddNode(&Node{ID: id, Kind: NodeShape, Name: s.Name, Data: ShapeData{Shape: s}})
	return id
}

// Place adds a transform node over child. Placements of the same child with
// the same key share an ID, so key must differ between placements.
func (g *PlateGraph) Place(child NodeID, key string, td TransformData) NodeID {
	id := NewNodeID("place", string(child), key)
	g.AddNode(&Node{ID: id, Kind: NodeTransform, Children: []NodeID{child}, Data: td})
	return id
}

// AddObject adds a named object over children and registers it as a root.
func (g *PlateGraph) AddObject(name string, children ...NodeID) NodeID {
	id := NewNodeID("object", name)
	g.AddNode(&Node{ID: id, Kind: NodeObject, Name: name, Children: children, Data: ObjectData{}})
	g.AddRoot(id)
	return id
}
