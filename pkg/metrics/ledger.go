package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks balance movements and reconciliation results.
type LedgerMetrics struct {
	entries   *prometheus.CounterVec
	conflicts prometheus.Counter
	drift     *prometheus.GaugeVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Ledger entries appended by type and direction.",
	}, []string{"type", "direction"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_balance_conflicts_total",
		Help: "Appends rejected because another writer moved the balance.",
	})
	drift := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_reconcile_drift",
		Help: "Number of ledger chain or projection mismatches per store in the last reconciliation.",
	}, []string{"store_id"})
	reg.MustRegister(entries, conflicts, drift)
	return &LedgerMetrics{entries: entries, conflicts: conflicts, drift: drift}
}

func (m *LedgerMetrics) IncEntry(entryType, direction string) {
	if m == nil || m.entries == nil {
		return
	}
	m.entries.WithLabelValues(normalizeLabel(entryType), normalizeLabel(direction)).Inc()
}

func (m *LedgerMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

// SetDrift records the mismatch count found for a store.
func (m *LedgerMetrics) SetDrift(storeID string, mismatches int) {
	if m == nil || m.drift == nil {
		return
	}
	m.drift.WithLabelValues(normalizeLabel(storeID)).Set(float64(mismatches))
}
