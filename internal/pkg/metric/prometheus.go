package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "mst"
)

var (
	BatchActionType = struct {
		Proposed  string
		Received  string
		Updated   string
		Completed string
		Expired   string
		Dropped   string
	}{
		Proposed:  "proposed",
		Received:  "received",
		Updated:   "updated",
		Completed: "completed",
		Expired:   "expired",
		Dropped:   "dropped",
	}

	BatchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "The total number of batches per action",
		},
		[]string{"action"},
	)

	PendingBatches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_batches",
			Help:      "Current count of batches waiting for signatures",
		},
	)

	CommittedTrxCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "committed_trx_total",
			Help:      "The total number of transactions committed by the ordering pipeline",
		},
	)

	RejectedTrxCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_trx_total",
			Help:      "The total number of transactions rejected by the ordering pipeline",
		},
	)
)
