package transport

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Metrics holds session counters. The counters are safe for concurrent reads
// and can back prometheus CounterFuncs.
type Metrics struct {
	// Exchanges counts requests written.
	Exchanges *xsync.Counter
	// Failures counts exchanges that ended in an error, timeouts included.
	Failures *xsync.Counter
	// Timeouts counts exchanges whose reply did not complete in time.
	Timeouts *xsync.Counter
	// Opens counts successful link opens.
	Opens *xsync.Counter
	// OpenFailures counts failed link opens.
	OpenFailures *xsync.Counter
	// BytesSent and BytesRecv count raw link traffic.
	BytesSent *xsync.Counter
	BytesRecv *xsync.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		Exchanges:    xsync.NewCounter(),
		Failures:     xsync.NewCounter(),
		Timeouts:     xsync.NewCounter(),
		Opens:        xsync.NewCounter(),
		OpenFailures: xsync.NewCounter(),
		BytesSent:    xsync.NewCounter(),
		BytesRecv:    xsync.NewCounter(),
	}
}

// Snapshot returns the current counter values keyed by name.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"exchanges":    m.Exchanges.Value(),
		"failures":     m.Failures.Value(),
		"timeouts":     m.Timeouts.Value(),
		"opens":        m.Opens.Value(),
		"openFailures": m.OpenFailures.Value(),
		"bytesSent":    m.BytesSent.Value(),
		"bytesRecv":    m.BytesRecv.Value(),
	}
}
