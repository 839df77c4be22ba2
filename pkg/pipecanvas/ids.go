package pipecanvas

import "github.com/google/uuid"

// idGenerator mints unique node and edge identifiers. UUIDs are used
// instead of timestamps so rapid successive inserts can never collide.
type idGenerator struct{}

func (idGenerator) NodeID() string { return "node-" + uuid.NewString() }
func (idGenerator) EdgeID() string { return "edge-" + uuid.NewString() }
