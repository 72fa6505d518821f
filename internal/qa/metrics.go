package qa

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// questionsTotal counts successfully answered questions.
	questionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqad",
			Subsystem: "qa",
			Name:      "questions_total",
			Help:      "Total number of questions answered",
		},
	)

	// feedbackTotal counts accepted feedback submissions.
	feedbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docqad",
			Subsystem: "qa",
			Name:      "feedback_total",
			Help:      "Total number of feedback submissions",
		},
	)
)
