package registry

import (
	"testing"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"github.com/rtpatchbay/enginecore/sdk/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRegistryAddAssignsMonotonicIDs(t *testing.T) {
	r := New()
	c1 := r.Add(ids.AudioIn, 1, ids.Carla, 1)
	c2 := r.Add(ids.AudioIn, 2, ids.Carla, 2)

	assert.Equal(t, ids.ConnectionId(1), c1.ID)
	assert.Equal(t, ids.ConnectionId(2), c2.ID)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, ids.ConnectionId(2), r.LastID())
}

func TestRegistryClearPreservesLastID(t *testing.T) {
	r := New()
	r.Add(ids.AudioIn, 1, ids.Carla, 1)
	r.Add(ids.AudioIn, 2, ids.Carla, 2)
	require.Equal(t, ids.ConnectionId(2), r.LastID())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, ids.ConnectionId(2), r.LastID())

	c3 := r.Add(ids.AudioIn, 3, ids.Carla, 3)
	assert.Equal(t, ids.ConnectionId(3), c3.ID)
}

func TestRegistryRemoveIf(t *testing.T) {
	r := New()
	c1 := r.Add(ids.AudioIn, 1, ids.Carla, 1)
	r.Add(ids.AudioIn, 2, ids.Carla, 2)

	removed := r.RemoveIf(func(c contracts.Connection) bool { return c.ID == c1.ID })
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, r.Len())

	_, found := r.FindByID(c1.ID)
	assert.False(t, found)
}

func TestRegistryForEachAndSnapshotOrder(t *testing.T) {
	r := New()
	for i := ids.PortId(1); i <= 5; i++ {
		r.Add(ids.AudioIn, i, ids.Carla, i)
	}

	var seen []ids.ConnectionId
	r.ForEach(func(c contracts.Connection) { seen = append(seen, c.ID) })
	assert.Equal(t, []ids.ConnectionId{1, 2, 3, 4, 5}, seen)

	snap := r.Snapshot()
	require.Len(t, snap, 5)
	assert.Equal(t, ids.ConnectionId(1), snap[0].ID)
}

// TestRegistryMonotonicityProperty exercises the §8 invariant that
// LastID never decreases across any sequence of Add/Clear/RemoveIf.
func TestRegistryMonotonicityProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := New()
		var lastSeen ids.ConnectionId

		ops := rapid.SliceOfN(rapid.SampledFrom([]string{"add", "clear", "removeAll"}), 1, 50).Draw(rt, "ops")
		for _, op := range ops {
			switch op {
			case "add":
				c := r.Add(ids.AudioIn, 1, ids.Carla, 1)
				if c.ID <= lastSeen {
					rt.Fatalf("non-monotonic id: got %d after %d", c.ID, lastSeen)
				}
				lastSeen = c.ID
			case "clear":
				before := r.LastID()
				r.Clear()
				if r.LastID() != before {
					rt.Fatalf("Clear changed LastID: %d -> %d", before, r.LastID())
				}
			case "removeAll":
				r.RemoveIf(func(contracts.Connection) bool { return true })
			}
		}
	})
}
