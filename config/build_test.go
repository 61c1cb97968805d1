package config_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/config"
	"github.com/arloliu/go-chamber/espec"
	"github.com/arloliu/go-chamber/internal/fakedev"
	"github.com/arloliu/go-chamber/logger"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/transport"
	"github.com/arloliu/go-chamber/watlowf4"
	"github.com/arloliu/go-chamber/watlowf4t"
)

func testOptions(link transport.Link) []config.Option {
	return []config.Option{
		config.WithLink(link),
		config.WithLogger(logger.NewNopMockLogger()),
		config.WithSessionOptions(
			transport.WithTimeout(30*time.Millisecond),
			transport.WithPollInterval(2*time.Millisecond),
		),
	}
}

func build(t *testing.T, doc string, link transport.Link) *config.Instance {
	t.Helper()

	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)
	inst, err := config.Build(cfg, testOptions(link)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close() })

	return inst
}

func especReplies(cmd string) string {
	switch {
	case cmd == "ROM?":
		return "P300 Ver1.12"
	case cmd == "TEMP?":
		return "23.5,25.0,100.0,-40.0"
	case cmd == "HUMI?":
		return "45.0,50.0,95.0,10.0"
	case strings.Contains(cmd, "?"):
		return "NA:CMD ERR"
	}

	return "OK"
}

func TestBuild_Espec(t *testing.T) {
	dev := fakedev.NewASCIIDevice(especReplies)
	inst := build(t, "controller: p300\nserialport: /dev/ttyUSB0\nadr: 2\nfreshness: 1s\n", dev)
	ctx := context.Background()

	assert.Equal(t, chamber.FamilyEspecP300, inst.Family())
	assert.IsType(t, &espec.Driver{}, inst.Driver)
	assert.NotEmpty(t, inst.Session.ID())

	loop, err := inst.GetLoop(ctx, 1, chamber.LoopStandard, chamber.FieldProcessValue)
	require.NoError(t, err)
	assert.InDelta(t, 23.5, loop.ProcessValue.Air, 0.001)
	assert.Equal(t, []string{"2"}, dev.Addresses())

	model, prof, err := inst.Identify(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P300 W/Humidity", model)
	assert.Equal(t, 2, prof.Loops)
}

func TestBuild_EspecTCPDropsAddress(t *testing.T) {
	dev := fakedev.NewASCIIDevice(especReplies)
	inst := build(t, "controller: scp220\ninterface: tcp\nhost: 10.1.1.9\nadr: 2\n", dev)

	_, err := inst.GetLoop(context.Background(), 1, chamber.LoopStandard, chamber.FieldProcessValue)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, dev.Addresses())
	assert.Equal(t, chamber.FamilyEspecSCP220, inst.Family())
}

func TestBuild_WatlowF4T(t *testing.T) {
	bank := fakedev.NewRegisterBank(modbus.RTU, 5)
	inst := build(t, "controller: watlowf4t\nserialport: /dev/ttyUSB0\nadr: 5\nloop_names: [Temperature]\n", bank)

	assert.IsType(t, &watlowf4t.Driver{}, inst.Driver)
	err := inst.SetLoopByName(context.Background(), "temperature", &chamber.LoopSettings{Setpoint: ptr(40.0)})
	require.NoError(t, err)
	assert.InDelta(t, 40.0, bank.Float(2782), 0.001)
}

func TestBuild_WatlowF4(t *testing.T) {
	bank := fakedev.NewRegisterBank(modbus.RTU, 1)
	inst := build(t, "controller: f4\nserialport: /dev/ttyUSB0\nregister_map: ../configs/watlowf4-map.yaml\n", bank)

	assert.IsType(t, &watlowf4.Driver{}, inst.Driver)
	assert.Equal(t, watlowf4.DefaultProfile(), inst.Profile())

	cfg, err := config.Parse([]byte("controller: f4\nserialport: /dev/ttyUSB0\nregister_map: missing.yaml\n"))
	require.NoError(t, err)
	_, err = config.Build(cfg, testOptions(bank)...)
	require.Error(t, err)
}

func TestBuild_Errors(t *testing.T) {
	_, err := config.Build(nil)
	require.Error(t, err)

	cfg, err := config.Parse([]byte("controller: p300\n"))
	require.NoError(t, err)
	_, err = config.Build(cfg)
	require.ErrorIs(t, err, chamber.ErrValidation)

	cfg, err = config.Parse([]byte("controller: p300\nserialport: /dev/ttyUSB0\nadr: 40\n"))
	require.NoError(t, err)
	_, err = config.Build(cfg, testOptions(fakedev.NewASCIIDevice(especReplies))...)
	require.Error(t, err)

	cfg, err = config.Parse([]byte("controller: p300\nserialport: /dev/ttyUSB0\n"))
	require.NoError(t, err)
	_, err = config.Build(cfg, config.WithLink(nil))
	require.Error(t, err)
}

func ptr[T any](v T) *T { return &v }
