package codec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tallykeep_exports_total",
		Help: "Export attempts by status",
	}, []string{"status"})

	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tallykeep_imports_total",
		Help: "Import attempts by detected format and outcome",
	}, []string{"format", "outcome"})

	checksumMismatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tallykeep_import_checksum_mismatch_total",
		Help: "Imported envelopes whose checksum did not match their data",
	})
)
