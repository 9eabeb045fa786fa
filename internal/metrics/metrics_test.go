package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrack(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	done := m.Track("upload")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsInFlight.WithLabelValues("upload")))

	done("ok")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.OperationsInFlight.WithLabelValues("upload")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationCounter.WithLabelValues("upload", "ok")))

	m.Track("upload")("InvalidArgument")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationCounter.WithLabelValues("upload", "InvalidArgument")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}
