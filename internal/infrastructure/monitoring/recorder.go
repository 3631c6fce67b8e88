package monitoring

import "github.com/GriffinCanCode/gatedev/internal/domain/chardev"

var _ chardev.Recorder = (*Metrics)(nil)

// SessionOpened counts a newly opened session
func (m *Metrics) SessionOpened(endpoint string) {
	m.SessionsOpened.WithLabelValues(endpoint).Inc()
	m.SessionsActive.Inc()
}

// SessionClosed counts a closed session
func (m *Metrics) SessionClosed(string) {
	m.SessionsActive.Dec()
}

// BytesRead counts bytes handed to a released reader
func (m *Metrics) BytesRead(endpoint string, n int) {
	m.ReadBytes.WithLabelValues(endpoint).Add(float64(n))
}

// BytesWritten counts bytes stored by a writer
func (m *Metrics) BytesWritten(endpoint string, n int) {
	m.WrittenBytes.WithLabelValues(endpoint).Add(float64(n))
}

// Signaled counts a gate signal and the readers it released
func (m *Metrics) Signaled(endpoint string, released int) {
	m.Signals.WithLabelValues(endpoint).Inc()
	m.ReadersReleased.WithLabelValues(endpoint).Add(float64(released))
}

// WaitInterrupted counts a read that gave up waiting
func (m *Metrics) WaitInterrupted(endpoint string) {
	m.WaitsInterrupt.WithLabelValues(endpoint).Inc()
}
