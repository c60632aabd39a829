package order

import (
	"hash/fnv"
	"sync/atomic"
)

// generations counts cache invalidations per order id, striped so memory
// stays bounded. Unrelated ids sharing a stripe only cost a skipped cache
// fill.
type generations struct {
	stripes [256]atomic.Uint64
}

func (g *generations) slot(id string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return &g.stripes[h.Sum32()%uint32(len(g.stripes))]
}

func (g *generations) current(id string) uint64 {
	return g.slot(id).Load()
}

func (g *generations) bump(id string) {
	g.slot(id).Add(1)
}
