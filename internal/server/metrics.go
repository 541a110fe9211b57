package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	changesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evenly_changes_published_total",
		Help: "Change notifications published to the hub, by kind.",
	}, []string{"kind"})

	streamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "evenly_stream_subscribers",
		Help: "Currently connected change-stream subscribers.",
	})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evenly_http_requests_total",
		Help: "HTTP requests served, by method and status class.",
	}, []string{"method", "class"})
)
