package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocket metrics
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connections_active",
		Help: "The current number of active WebSocket connections (presenter included).",
	})
	TotalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_connections_total",
		Help: "The total number of WebSocket connections accepted.",
	})
	ConnectionsRefused = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_connections_refused_total",
		Help: "The total number of connections refused at the connection ceiling.",
	})
	CaptionsBroadcast = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_captions_broadcast_total",
		Help: "The total number of caption messages fanned out to the audience.",
	})
	WordsRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_caption_words_total",
		Help: "The total number of caption words relayed.",
	})

	// Definition queue metrics
	DefineRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_define_requests_total",
		Help: "The total number of definition requests by result.",
	}, []string{"result"})
	DefineInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_define_in_flight",
		Help: "The current number of in-flight definition provider calls.",
	})
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_define_cache_hits_total",
		Help: "The total number of definition cache hits.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_define_cache_misses_total",
		Help: "The total number of definition cache misses.",
	})
)
