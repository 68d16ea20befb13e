// Package tessellate walks an assembly and produces triangle meshes using
// the geometry kernel of its kit. One mesh is produced per block and per
// connector.
package tessellate

import (
	"context"
	"fmt"
	"runtime"

	"github.com/chazu/blockphantom/pkg/graph"
	"github.com/chazu/blockphantom/pkg/kernel"
	"golang.org/x/sync/errgroup"
)

// Options controls tessellation.
type Options struct {
	// Workers bounds the number of parts meshed at once. Zero means
	// GOMAXPROCS.
	Workers int
	// SkipConnectors leaves connector rods out of the output.
	SkipConnectors bool
}

// Tessellate meshes every part of the assembly in creation order. Each
// mesh is named after its node. The tessellator is read-only and never
// mutates the assembly. Parts are meshed concurrently; the kit's mesh
// cache makes repeated block types cheap.
func Tessellate(ctx context.Context, a *graph.Assembly, opts Options) ([]*kernel.Mesh, error) {
	if a == nil {
		return nil, nil
	}

	var nodes []*graph.Node
	for _, n := range a.Nodes() {
		if n.Kind == graph.NodeConnector && opts.SkipConnectors {
			continue
		}
		nodes = append(nodes, n)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	meshes := make([]*kernel.Mesh, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, n := range nodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := meshNode(n)
			if err != nil {
				return fmt.Errorf("tessellate: node %s: %w", n.Label(), err)
			}
			meshes[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meshes, nil
}

func meshNode(n *graph.Node) (*kernel.Mesh, error) {
	var (
		m   *kernel.Mesh
		err error
	)
	switch n.Kind {
	case graph.NodeBlock:
		m, err = n.Block.Mesh()
	case graph.NodeConnector:
		m, err = n.Connector.Mesh()
	default:
		return nil, fmt.Errorf("unknown node kind: %v", n.Kind)
	}
	if err != nil {
		return nil, err
	}
	m.PartName = n.Label()
	return m, nil
}
