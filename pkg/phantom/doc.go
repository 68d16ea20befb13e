// Package phantom models a modular phantom built from rectangular blocks
// joined through cylindrical holes.
//
// Every block type has a fixed catalog of holes in its local frame. Connecting
// a new block derives the rigid transform that mates one of its holes,
// antiparallel, with a hole of an existing block, and records which holes are
// now connected, covered by the new block's body, or fitted with a connector.
//
// Block and Connector values are immutable. Operations that change an
// assembly return new values; Connect returns updated handles for both
// participating blocks.
package phantom
