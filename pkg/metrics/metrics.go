// Package metrics exposes Prometheus counters for the VFS read path. The
// counters register on the default registry; callers that serve /metrics
// get them for free.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpensTotal counts file and directory opens by scheme.
	OpensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfs",
		Name:      "opens_total",
		Help:      "File and directory opens by scheme.",
	}, []string{"scheme"})

	// DecryptProbes counts encryption-envelope probe outcomes.
	DecryptProbes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfs",
		Name:      "decrypt_probes_total",
		Help:      "Encryption probe outcomes (aes, wga, plain).",
	}, []string{"result"})

	// CacheHits counts cache-tee block reads served locally.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vfs",
		Name:      "cache_hits_total",
		Help:      "Cache-tee blocks served from the local cache file.",
	})

	// CacheMisses counts cache-tee blocks fetched from upstream.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vfs",
		Name:      "cache_misses_total",
		Help:      "Cache-tee blocks fetched from the upstream source.",
	})
)
