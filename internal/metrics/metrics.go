package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RedemptionsTotal counts redemption attempts by terminal outcome. The
// outcome label is "success" or the engine error code.
var RedemptionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "voucher_service",
		Name:      "redemptions_total",
		Help:      "Redemption attempts by outcome.",
	},
	[]string{"outcome"},
)

// CompensationsTotal counts counter reverts after failed ledger writes.
var CompensationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "voucher_service",
		Name:      "compensations_total",
		Help:      "Catalog counter reverts triggered by failed ledger writes.",
	},
)
