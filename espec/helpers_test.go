package espec_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-chamber/ascii"
	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/espec"
	"github.com/arloliu/go-chamber/internal/fakedev"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/transport"
)

// device answers queries from a reply table and acknowledges every write.
// Unknown queries are rejected as the controller does.
type device struct {
	mu      sync.Mutex
	replies map[string]string
	rejects map[string]string
	writes  []string
	queries []string
}

func newDevice() *device {
	return &device{
		replies: map[string]string{
			"ROM?":                "P300 Ver1.12",
			"TIME?":               "14:05:30",
			"DATE?":               "24.03/09",
			"TEMP?":               "23.5,25.0,100.0,-40.0",
			"HUMI?":               "45.0,50.0,95.0,10.0",
			"CONSTANT SET?,TEMP":  "25.0,ON",
			"CONSTANT SET?,HUMI":  "50.0,ON",
			"%?":                  "2,35.0,12.5",
			"MON?":                "23.5,45.0,CONSTANT,0",
			"MODE?,DETAIL":        "CONSTANT",
			"MODE?":               "CONSTANT",
			"ALARM?":              "0",
			"RELAY?":              "2,1,3",
			"CONSTANT SET?,RELAY": "2,1,3",
			"CONSTANT SET?,REF":   "AUTO",
		},
		rejects: map[string]string{},
	}
}

// set replaces the reply of a query.
func (d *device) set(cmd, reply string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replies[cmd] = reply
}

// reject rejects every command starting with prefix with code.
func (d *device) reject(prefix, code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejects[prefix] = code
}

func (d *device) handle(cmd string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	for prefix, code := range d.rejects {
		if strings.HasPrefix(cmd, prefix) {
			if !strings.Contains(cmd, "?") {
				d.writes = append(d.writes, cmd)
			}
			return "NA:" + code
		}
	}
	if strings.Contains(cmd, "?") {
		d.queries = append(d.queries, cmd)
		if r, ok := d.replies[cmd]; ok {
			return r
		}
		return "NA:CMD ERR"
	}
	d.writes = append(d.writes, cmd)

	return "OK"
}

// Writes returns the write commands received so far.
func (d *device) Writes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.writes...)
}

// count returns how often a query was received.
func (d *device) count(cmd string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, q := range d.queries {
		if q == cmd {
			n++
		}
	}

	return n
}

// ptcReplies adds the product temperature control queries.
func (d *device) ptcReplies() {
	d.set("TEMP PTC?", "ON,24.0,23.0,22.5,25.0,5.0,-5.0")
	d.set("CONSTANT SET?,PTC", "ON,5.0,-5.0")
}

// humidityProfile is a temperature and humidity chamber.
func humidityProfile() chamber.Profile {
	p := espec.DefaultProfile()
	p.LoopNames = []string{"Temperature", "Humidity"}

	return p
}

// ptcProfile is a chamber with product temperature control and humidity.
func ptcProfile() chamber.Profile {
	p := espec.DefaultProfile()
	p.Loops, p.Cascades = 1, 1

	return p
}

func newTestChamber(t *testing.T, family chamber.Family, p chamber.Profile, opts ...espec.Option) (*chamber.Chamber, *espec.Driver, *device) {
	t.Helper()

	dev := newDevice()
	link := fakedev.NewASCIIDevice(dev.handle)
	sess, err := transport.NewSession(link,
		transport.WithTimeout(30*time.Millisecond),
		transport.WithPollInterval(2*time.Millisecond),
		transport.WithLogger(logger.NewNopMockLogger()),
	)
	require.NoError(t, err)

	client, err := ascii.NewClient(sess,
		ascii.WithAddress(1),
		ascii.WithRetryLimit(0),
		ascii.WithLogger(logger.NewNopMockLogger()),
	)
	require.NoError(t, err)

	drv, err := espec.New(family, client, p, append([]espec.Option{espec.WithLogger(logger.NewNopMockLogger())}, opts...)...)
	require.NoError(t, err)

	ch, err := chamber.New(drv, sess, chamber.WithLogger(logger.NewNopMockLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	return ch, drv, dev
}

func ptr[T any](v T) *T { return &v }

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
