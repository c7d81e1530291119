package attachment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "showcase_attachment_operations_total",
		Help: "Attachment file operations by upload directory, operation and result.",
	},
	[]string{"dir", "operation", "result"},
)

func observe(operation, dir string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(dir, operation, result).Inc()
}
