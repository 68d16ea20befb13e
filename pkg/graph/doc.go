// Package graph holds a phantom assembly: the tree of placed blocks and
// connectors, the joins between block holes, and validation of the whole.
// An Assembly is the mutable context that owns the latest immutable
// phantom.Block value of every node.
package graph
