package watlowf4t_test

import (
	"context"
	"testing"

	"github.com/arloliu/go-chamber/chamber"
	"github.com/arloliu/go-chamber/modbus"
	"github.com/arloliu/go-chamber/watlowf4t"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileFromPartNumber(t *testing.T) {
	tests := []struct {
		pn       string
		profiles bool
		alarms   int
		loops    int
		cascades int
	}{
		{"F4T1L3AAAAA1AAA", false, 6, 1, 0},
		{"F4T1L3EAAAA8AAA", true, 8, 2, 1},
		{"F4T1L3FAAAAAAAA", true, 14, 0, 2},
		{"F4T1L3CAAAA5AAA", false, 14, 0, 0},
		{"F4T1L3ZAAAAZAAA", false, 6, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.pn, func(t *testing.T) {
			p, err := watlowf4t.ProfileFromPartNumber(tt.pn, watlowf4t.DefaultProfile())
			require.NoError(t, err)
			assert.Equal(t, tt.profiles, p.Profiles)
			assert.Equal(t, tt.alarms, p.Alarms)
			assert.Equal(t, tt.loops, p.Loops)
			assert.Equal(t, tt.cascades, p.Cascades)
		})
	}

	_, err := watlowf4t.ProfileFromPartNumber("F4T", watlowf4t.DefaultProfile())
	require.ErrorIs(t, err, chamber.ErrValidation)
}

func TestIdentify(t *testing.T) {
	_, drv, bank := newTestChamber(t, testProfile())
	bank.SetString(16, "F4T1L3EAAAA8AAA", 15)
	for _, m := range []int{1, 2, 3, 4, 6} {
		bank.Except(uint16(11250+(m-1)*60), modbus.ExceptionIllegalAddress) //nolint:gosec
	}

	pn, p, err := drv.Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "F4T1L3EAAAA8AAA", pn)
	assert.Equal(t, []int{5}, p.Limits)
	assert.Equal(t, 2, p.Loops)
	assert.Equal(t, 1, p.Cascades)
	assert.True(t, p.Profiles)
	assert.Equal(t, 1, drv.Profile().Loops)
}
