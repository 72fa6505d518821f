package document

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// uploadsTotal counts accepted uploads.
	uploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqad",
			Subsystem: "documents",
			Name:      "uploads_total",
			Help:      "Total number of accepted document uploads",
		},
	)

	// processedTotal counts documents that completed processing.
	processedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqad",
			Subsystem: "documents",
			Name:      "processed_total",
			Help:      "Total number of documents processed successfully",
		},
	)

	// failuresTotal counts documents whose processing ended in error.
	failuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqad",
			Subsystem: "documents",
			Name:      "processing_failures_total",
			Help:      "Total number of documents whose processing failed",
		},
	)
)
