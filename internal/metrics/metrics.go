// Package metrics exposes Prometheus counters for the sync pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters, registered on one registry.
type Metrics struct {
	Registry *prometheus.Registry

	SyncsTotal          *prometheus.CounterVec
	InteractionsCreated *prometheus.CounterVec
	ContactsUpserted    *prometheus.CounterVec
}

// New creates the counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		SyncsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rapport_syncs_total",
			Help: "Sync runs by outcome.",
		}, []string{"status"}),
		InteractionsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rapport_interactions_created_total",
			Help: "Interactions newly created during ingestion, by source.",
		}, []string{"source"}),
		ContactsUpserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rapport_contacts_upserted_total",
			Help: "Contact upserts during ingestion, by source.",
		}, []string{"source"}),
	}
}

// RecordSync folds one sync outcome into the counters.
func (m *Metrics) RecordSync(status string, emailContacts, emailInteractions, calContacts, calInteractions int) {
	m.SyncsTotal.WithLabelValues(status).Inc()
	m.ContactsUpserted.WithLabelValues("email").Add(float64(emailContacts))
	m.InteractionsCreated.WithLabelValues("email").Add(float64(emailInteractions))
	m.ContactsUpserted.WithLabelValues("calendar").Add(float64(calContacts))
	m.InteractionsCreated.WithLabelValues("calendar").Add(float64(calInteractions))
}
