package graph

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/phantom"
	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrUnknownNode is returned for an id or name not in the assembly.
	ErrUnknownNode = errors.New("unknown node")
	// ErrDuplicateName is returned when a name is already taken.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrNotBlock is returned when a block operation targets a connector.
	ErrNotBlock = errors.New("node is not a block")
	// ErrNotRoot is returned when placing a block that hangs off another.
	ErrNotRoot = errors.New("node is not a root block")
	// ErrPivotNotParent is returned when pivoting about a joint that does
	// not link a block to its parent.
	ErrPivotNotParent = errors.New("joint does not link the block to its parent")
)

// Assembly is a tree of blocks and connectors built by successive connect
// operations. It is not safe for concurrent mutation.
type Assembly struct {
	kit    *phantom.Kit
	logger *slog.Logger

	nodes map[NodeID]*Node
	order []NodeID
	names map[string]NodeID
	joins []Join

	blockSeq     int
	connectorSeq int
}

// Option configures an Assembly.
type Option func(*Assembly)

// WithLogger sets the logger. A nil logger means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Assembly) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an empty assembly whose blocks come from kit.
func New(kit *phantom.Kit, opts ...Option) *Assembly {
	a := &Assembly{
		kit:    kit,
		logger: slog.Default(),
		nodes:  make(map[NodeID]*Node),
		names:  make(map[string]NodeID),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Kit returns the kit blocks are made with.
func (a *Assembly) Kit() *phantom.Kit { return a.kit }

// Get returns the node with the given id, or nil.
func (a *Assembly) Get(id NodeID) *Node { return a.nodes[id] }

// Lookup returns the node with the given name, or nil.
func (a *Assembly) Lookup(name string) *Node {
	id, ok := a.names[name]
	if !ok {
		return nil
	}
	return a.nodes[id]
}

// Block returns the current value of block node id.
func (a *Assembly) Block(id NodeID) (*phantom.Block, error) {
	n, err := a.blockNode(id)
	if err != nil {
		return nil, err
	}
	return n.Block, nil
}

// Nodes returns all nodes in creation order.
func (a *Assembly) Nodes() []*Node {
	out := make([]*Node, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.nodes[id])
	}
	return out
}

// Blocks returns the block nodes in creation order.
func (a *Assembly) Blocks() []*Node { return a.ofKind(NodeBlock) }

// Connectors returns the connector nodes in creation order.
func (a *Assembly) Connectors() []*Node { return a.ofKind(NodeConnector) }

func (a *Assembly) ofKind(k NodeKind) []*Node {
	var out []*Node
	for _, id := range a.order {
		if n := a.nodes[id]; n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Joins returns a copy of the join records in creation order.
func (a *Assembly) Joins() []Join {
	return append([]Join(nil), a.joins...)
}

// Children returns the nodes attached directly to id.
func (a *Assembly) Children(id NodeID) []*Node {
	var out []*Node
	for _, cid := range a.order {
		if n := a.nodes[cid]; n.Parent == id {
			out = append(out, n)
		}
	}
	return out
}

// NodeCount returns the total number of nodes.
func (a *Assembly) NodeCount() int { return len(a.nodes) }

func (a *Assembly) blockNode(id NodeID) (*Node, error) {
	n, ok := a.nodes[id]
	if !ok {
		return nil, fmt.Errorf("graph: %w: %s", ErrUnknownNode, id)
	}
	if n.Kind != NodeBlock {
		return nil, fmt.Errorf("graph: %s: %w", id, ErrNotBlock)
	}
	return n, nil
}

func (a *Assembly) checkName(name string) error {
	if name == "" {
		return nil
	}
	if _, taken := a.names[name]; taken {
		return fmt.Errorf("graph: %w: %q", ErrDuplicateName, name)
	}
	return nil
}

func (a *Assembly) add(n *Node) {
	a.nodes[n.ID] = n
	a.order = append(a.order, n.ID)
	if n.Name != "" {
		a.names[n.Name] = n.ID
	}
}

func (a *Assembly) nextBlockID() NodeID {
	a.blockSeq++
	return NodeID(fmt.Sprintf("block-%d", a.blockSeq))
}

func (a *Assembly) nextConnectorID() NodeID {
	a.connectorSeq++
	return NodeID(fmt.Sprintf("connector-%d", a.connectorSeq))
}

// AddBlock adds a root block of type t rotated by steps and moved by
// translation. name may be empty.
func (a *Assembly) AddBlock(name string, t phantom.BlockType, translation r3.Vec, steps geom.Steps) (NodeID, error) {
	if err := a.checkName(name); err != nil {
		return "", err
	}
	b, err := a.kit.NewBlock(t, translation, steps)
	if err != nil {
		return "", err
	}
	n := &Node{ID: a.nextBlockID(), Kind: NodeBlock, Name: name, Hole: -1, Block: b}
	a.add(n)
	a.logger.Debug("root block added", "node", n.Label(), "type", t)
	return n.ID, nil
}

// Connect attaches a new block of type t to hole local of receiver through
// the new block's hole foreign, and returns the new block's id. With
// withConnector a connector node named name+"-connector" is added too.
func (a *Assembly) Connect(name string, receiver NodeID, local int, t phantom.BlockType, foreign int, withConnector bool) (NodeID, error) {
	rn, err := a.blockNode(receiver)
	if err != nil {
		return "", err
	}
	if err := a.checkName(name); err != nil {
		return "", err
	}
	connName := ""
	if withConnector && name != "" {
		connName = name + "-connector"
		if err := a.checkName(connName); err != nil {
			return "", err
		}
	}

	m, err := rn.Block.Connect(local, t, foreign, withConnector)
	if err != nil {
		return "", err
	}
	rn.Block = m.Receiver

	placed := &Node{ID: a.nextBlockID(), Kind: NodeBlock, Name: name, Parent: receiver, Hole: -1, Block: m.Placed}
	a.add(placed)

	j := Join{Receiver: receiver, ReceiverHole: local, Placed: placed.ID, PlacedHole: foreign}
	if m.Connector != nil {
		c := &Node{ID: a.nextConnectorID(), Kind: NodeConnector, Name: connName, Parent: receiver, Hole: local, Connector: m.Connector}
		a.add(c)
		j.Connector = c.ID
	}
	a.joins = append(a.joins, j)

	a.logger.Debug("block connected",
		"node", placed.Label(), "receiver", rn.Label(),
		"hole", local, "foreign_hole", foreign, "connector", withConnector)
	return placed.ID, nil
}

// AddConnector places a connector in free hole of block id.
func (a *Assembly) AddConnector(name string, id NodeID, hole int) (NodeID, error) {
	bn, err := a.blockNode(id)
	if err != nil {
		return "", err
	}
	if err := a.checkName(name); err != nil {
		return "", err
	}
	b, c, err := bn.Block.AddConnector(hole)
	if err != nil {
		return "", err
	}
	bn.Block = b
	n := &Node{ID: a.nextConnectorID(), Kind: NodeConnector, Name: name, Parent: id, Hole: hole, Connector: c}
	a.add(n)
	return n.ID, nil
}

// RotateAboutConnection turns block id by grid steps about hole, which
// must be the joint to its parent. Every part attached downstream of the
// block turns with it so their joints stay mated.
func (a *Assembly) RotateAboutConnection(id NodeID, hole int, steps geom.Steps) error {
	bn, err := a.blockNode(id)
	if err != nil {
		return err
	}
	x, err := bn.Block.PivotAbout(hole, steps)
	if err != nil {
		return err
	}
	if !a.isParentJoint(id, hole) {
		return fmt.Errorf("graph: rotate %s about hole %d: %w", bn.Label(), hole, ErrPivotNotParent)
	}
	if err := a.moveSubtree(id, x); err != nil {
		return err
	}
	a.logger.Debug("block rotated", "node", bn.Label(), "hole", hole, "steps", steps)
	return nil
}

// Place moves root block id, and everything attached to it, by x.
func (a *Assembly) Place(id NodeID, x geom.Transform) error {
	bn, err := a.blockNode(id)
	if err != nil {
		return err
	}
	if !bn.Parent.IsZero() {
		return fmt.Errorf("graph: place %s: %w", bn.Label(), ErrNotRoot)
	}
	if !x.R.IsRotation(1e-9) {
		return fmt.Errorf("graph: place %s: %w: matrix is not a rotation", bn.Label(), phantom.ErrInvalidInput)
	}
	return a.moveSubtree(id, x)
}

func (a *Assembly) isParentJoint(id NodeID, hole int) bool {
	for _, j := range a.joins {
		if j.Placed == id && j.PlacedHole == hole {
			return true
		}
	}
	return false
}

// Subtree returns id and every node attached downstream of it, in creation
// order.
func (a *Assembly) Subtree(id NodeID) []NodeID {
	in := map[NodeID]bool{id: true}
	out := []NodeID{id}
	// Parents are always created before their children, so one pass in
	// creation order collects the whole subtree.
	for _, nid := range a.order {
		n := a.nodes[nid]
		if !in[nid] && in[n.Parent] {
			in[nid] = true
			out = append(out, nid)
		}
	}
	return out
}

func (a *Assembly) moveSubtree(id NodeID, x geom.Transform) error {
	ids := a.Subtree(id)
	moved := make(map[NodeID]*Node, len(ids))
	for _, nid := range ids {
		n := *a.nodes[nid]
		var err error
		switch n.Kind {
		case NodeBlock:
			n.Block, err = n.Block.Transform(x)
		case NodeConnector:
			n.Connector, err = n.Connector.Transform(x)
		}
		if err != nil {
			return fmt.Errorf("graph: move %s: %w", n.Label(), err)
		}
		moved[nid] = &n
	}
	for nid, n := range moved {
		*a.nodes[nid] = *n
	}
	return nil
}
