package phantom

// HoleStatus records how a hole is used in the assembly. The flags are
// independent: a connected hole may also carry a connector, and a covered
// hole was never the mate of a joint.
type HoleStatus struct {
	Connected    bool `json:"connected"`
	Covered      bool `json:"covered"`
	HasConnector bool `json:"hasConnector"`
}

// Available reports whether a joint can be made through the hole.
func (s HoleStatus) Available() bool {
	return !s.Connected && !s.Covered
}

func (s HoleStatus) String() string {
	switch {
	case s.Connected && s.HasConnector:
		return "connected+connector"
	case s.Connected:
		return "connected"
	case s.Covered:
		return "covered"
	case s.HasConnector:
		return "connector"
	default:
		return "free"
	}
}

// statusTable is indexed by hole id. Tables are shared between Block values
// and must never be written in place; update returns a modified copy.
type statusTable []HoleStatus

func newStatusTable(n int) statusTable {
	return make(statusTable, n)
}

func (t statusTable) update(id int, f func(*HoleStatus)) statusTable {
	out := make(statusTable, len(t))
	copy(out, t)
	f(&out[id])
	return out
}

// updateMany applies f to every listed id in a single copy.
func (t statusTable) updateMany(ids []int, f func(*HoleStatus)) statusTable {
	if len(ids) == 0 {
		return t
	}
	out := make(statusTable, len(t))
	copy(out, t)
	for _, id := range ids {
		f(&out[id])
	}
	return out
}
