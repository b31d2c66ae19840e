package contracts

import (
	"fmt"

	"github.com/rtpatchbay/enginecore/sdk/ids"
)

// Connection is a directed edge from an output port (A) to an input
// port (B) of a compatible type (§3). Direction is implied by position,
// never stored as a separate field.
type Connection struct {
	ID     ids.ConnectionId
	GroupA ids.GroupId
	PortA  ids.PortId
	GroupB ids.GroupId
	PortB  ids.PortId
}

// Payload renders the "gA:pA:gB:pB" text form used in
// PatchbayConnectionAdded host-callback events and in
// getPatchbayConnections().
func (c Connection) Payload() string {
	return fmt.Sprintf("%d:%d:%d:%d", c.GroupA, c.PortA, c.GroupB, c.PortB)
}

// Touches reports whether the connection has an endpoint in the given
// group, for disconnectGroup-style bulk removal.
func (c Connection) Touches(group ids.GroupId) bool {
	return c.GroupA == group || c.GroupB == group
}
