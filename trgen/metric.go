package trgen

import (
	"sync/atomic"
)

// ConnectionMetrics contains atomic metrics for a Connection.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ConnectionMetrics struct {
	// RequestCount indicates the number of requests written to the device.
	RequestCount atomic.Uint64
	// AckCount indicates the number of requests answered with a valid acknowledgement.
	AckCount atomic.Uint64
	// TimeoutCount indicates the number of round-trips that exceeded the timeout.
	TimeoutCount atomic.Uint64
	// ErrorCount indicates the number of requests that failed for any reason.
	ErrorCount atomic.Uint64
	// StaleReplyCount indicates the number of late acknowledgements discarded
	// after a timed out request.
	StaleReplyCount atomic.Uint64
	// QueueGauge indicates the number of requests submitted but not completed.
	QueueGauge atomic.Int64
	// ConnectCount indicates the number of successful connects.
	ConnectCount atomic.Uint32
}

func (m *ConnectionMetrics) incRequestCount() {
	m.RequestCount.Add(1)
}

func (m *ConnectionMetrics) incAckCount() {
	m.AckCount.Add(1)
}

func (m *ConnectionMetrics) incTimeoutCount() {
	m.TimeoutCount.Add(1)
}

func (m *ConnectionMetrics) incErrorCount() {
	m.ErrorCount.Add(1)
}

func (m *ConnectionMetrics) addStaleReplyCount(n int) {
	m.StaleReplyCount.Add(uint64(n))
}

func (m *ConnectionMetrics) incQueueGauge() {
	m.QueueGauge.Add(1)
}

func (m *ConnectionMetrics) decQueueGauge() {
	m.QueueGauge.Add(-1)
}

func (m *ConnectionMetrics) incConnectCount() {
	m.ConnectCount.Add(1)
}
