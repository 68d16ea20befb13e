package phantom

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Connector defaults, in cm.
const (
	DefaultConnectorLength = 1.5
	DefaultConnectorRadius = 0.3
)

// Kit creates blocks and connectors and owns what they share: the geometry
// kernel, the per-type local solids and the mesh cache. A Kit is safe for
// concurrent use; the Blocks it creates are immutable.
type Kit struct {
	kernel kernel.Kernel
	meshes *kernel.MeshCache
	logger *slog.Logger

	connectorLength float64
	connectorRadius float64
	tolerance       float64

	mu     sync.Mutex
	solids map[string]kernel.Solid
}

// KitOption configures a Kit.
type KitOption func(*Kit)

// WithMeshCache shares an existing mesh cache.
func WithMeshCache(c *kernel.MeshCache) KitOption {
	return func(k *Kit) {
		if c != nil {
			k.meshes = c
		}
	}
}

// WithLogger sets the logger. A nil logger means slog.Default().
func WithLogger(l *slog.Logger) KitOption {
	return func(k *Kit) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithConnectorSize sets the length and radius of connectors made by
// Connect and AddConnector. Non-positive values are ignored.
func WithConnectorSize(length, radius float64) KitOption {
	return func(k *Kit) {
		if length > 0 {
			k.connectorLength = length
		}
		if radius > 0 {
			k.connectorRadius = radius
		}
	}
}

// WithTolerance sets the distance used for coverage tests and for checking
// rotations against hole axes.
func WithTolerance(tol float64) KitOption {
	return func(k *Kit) {
		if tol > 0 {
			k.tolerance = tol
		}
	}
}

// NewKit returns a Kit backed by the geometry kernel k. A nil kernel is
// allowed; Solid and Mesh then fail with ErrNoKernel while all placement
// and bookkeeping operations keep working.
func NewKit(k kernel.Kernel, opts ...KitOption) *Kit {
	kit := &Kit{
		kernel:          k,
		meshes:          kernel.NewMeshCache(),
		logger:          slog.Default(),
		connectorLength: DefaultConnectorLength,
		connectorRadius: DefaultConnectorRadius,
		tolerance:       geom.Tolerance,
		solids:          make(map[string]kernel.Solid),
	}
	for _, opt := range opts {
		opt(kit)
	}
	return kit
}

// Kernel returns the geometry kernel, which may be nil.
func (k *Kit) Kernel() kernel.Kernel { return k.kernel }

// MeshCache returns the cache local meshes are kept in.
func (k *Kit) MeshCache() *kernel.MeshCache { return k.meshes }

// Tolerance returns the coverage and rotation tolerance.
func (k *Kit) Tolerance() float64 { return k.tolerance }

// ConnectorSize returns the length and radius of new connectors.
func (k *Kit) ConnectorSize() (length, radius float64) {
	return k.connectorLength, k.connectorRadius
}

// NewBlock creates a block of type t rotated by steps and then moved by
// translation. Every hole starts free.
func (k *Kit) NewBlock(t BlockType, translation r3.Vec, steps geom.Steps) (*Block, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("phantom: new block: %w: %v", ErrInvalidType, t)
	}
	if !finite(translation) {
		return nil, fmt.Errorf("phantom: new block: %w: translation %v", ErrInvalidInput, translation)
	}
	b := k.localBlock(t).moved(geom.FromSteps(translation, steps))
	k.logger.Debug("block created", "type", t, "steps", steps, "translation", translation)
	return b, nil
}

// localBlock returns a block of type t at the origin. t must be valid.
func (k *Kit) localBlock(t BlockType) *Block {
	holes, _ := HolesFor(t)
	dims, _ := DimensionsOf(t)
	return &Block{
		kit:       k,
		typ:       t,
		dims:      dims,
		placement: geom.IdentityTransform(),
		holes:     holes,
		status:    newStatusTable(len(holes)),
	}
}

// blockSolid returns the local box-minus-holes solid of t, building it on
// first use.
func (k *Kit) blockSolid(t BlockType) (kernel.Solid, error) {
	if k.kernel == nil {
		return nil, ErrNoKernel
	}
	key := "block/" + t.String()

	k.mu.Lock()
	defer k.mu.Unlock()
	if s, ok := k.solids[key]; ok {
		return s, nil
	}

	d, err := DimensionsOf(t)
	if err != nil {
		return nil, err
	}
	holes, err := HolesFor(t)
	if err != nil {
		return nil, err
	}
	cuts := make([]kernel.Solid, 0, len(holes))
	for _, h := range holes {
		c, err := h.Cylinder(k.kernel)
		if err != nil {
			return nil, fmt.Errorf("phantom: hole %d cylinder: %w", h.ID, err)
		}
		cuts = append(cuts, c)
	}
	s := k.kernel.Difference(k.kernel.Box(d.Width, d.Height, d.Depth), k.kernel.Union(cuts...))
	k.solids[key] = s
	return s, nil
}

// connectorSolid returns a local connector rod from the origin along +Z.
func (k *Kit) connectorSolid(length, radius float64) (kernel.Solid, error) {
	if k.kernel == nil {
		return nil, ErrNoKernel
	}
	key := connectorKey(length, radius)

	k.mu.Lock()
	defer k.mu.Unlock()
	if s, ok := k.solids[key]; ok {
		return s, nil
	}
	s, err := k.kernel.Cylinder(r3.Vec{}, r3.Vec{Z: length}, radius)
	if err != nil {
		return nil, fmt.Errorf("phantom: connector solid: %w", err)
	}
	k.solids[key] = s
	return s, nil
}

func connectorKey(length, radius float64) string {
	return fmt.Sprintf("connector/%g/%g", length, radius)
}

// placedMesh meshes the local solid once per key and returns a copy moved
// by x.
func (k *Kit) placedMesh(key string, local func() (kernel.Solid, error), x geom.Transform) (*kernel.Mesh, error) {
	if k.kernel == nil {
		return nil, ErrNoKernel
	}
	m, err := k.meshes.Get(key, func() (*kernel.Mesh, error) {
		s, err := local()
		if err != nil {
			return nil, err
		}
		k.logger.Debug("meshing local solid", "key", key)
		return k.kernel.ToMesh(s)
	})
	if err != nil {
		return nil, fmt.Errorf("phantom: mesh %s: %w", key, err)
	}
	m.Transform(x)
	return m, nil
}
