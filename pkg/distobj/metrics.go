package distobj

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	constructTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "distobj_construct_total",
		Help: "Distributed-object constructions, by construction mode.",
	}, []string{"mode"})

	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "distobj_fetch_total",
		Help: "Partition fetches, split by local snapshot vs remote invocation.",
	}, []string{"kind"})

	lookupTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "distobj_peer_lookup_total",
		Help: "Symbolic name lookups issued to resolve peer partitions.",
	})
)

// LookupTotal exposes the peer-lookup counter, so callers (and tests)
// can assert on resolution traffic.
func LookupTotal() prometheus.Counter {
	return lookupTotal
}
