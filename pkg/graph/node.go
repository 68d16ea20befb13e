package graph

import "github.com/chazu/blockphantom/pkg/phantom"

// NodeKind enumerates the types of nodes in an assembly.
type NodeKind int

const (
	NodeBlock     NodeKind = iota // placed phantom block
	NodeConnector                 // connector rod in a block hole
)

func (k NodeKind) String() string {
	switch k {
	case NodeBlock:
		return "block"
	case NodeConnector:
		return "connector"
	default:
		return "unknown"
	}
}

// NodeID identifies a node within one assembly.
type NodeID string

// IsZero reports whether id is unset.
func (id NodeID) IsZero() bool { return id == "" }

// Node is one placed part. Parent is the block the part was attached from;
// roots have no parent. Connector nodes sit in hole Hole of Parent.
type Node struct {
	ID     NodeID   `json:"id"`
	Kind   NodeKind `json:"kind"`
	Name   string   `json:"name,omitempty"`
	Parent NodeID   `json:"parent,omitempty"`
	Hole   int      `json:"hole"`

	Block     *phantom.Block     `json:"-"`
	Connector *phantom.Connector `json:"-"`
}

// Label returns the name if set, otherwise the id.
func (n *Node) Label() string {
	if n.Name != "" {
		return n.Name
	}
	return string(n.ID)
}

// Join records a mate between two block holes.
type Join struct {
	Receiver     NodeID `json:"receiver"`
	ReceiverHole int    `json:"receiverHole"`
	Placed       NodeID `json:"placed"`
	PlacedHole   int    `json:"placedHole"`
	Connector    NodeID `json:"connector,omitempty"`
}
