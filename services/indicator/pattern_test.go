package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"statusled-go/types"
)

var allStatuses = []types.Status{
	types.StatusPowerOn,
	types.StatusBLEPairing,
	types.StatusBLEPairSuccess,
	types.StatusBLEPairFail,
	types.StatusFactoryReset,
	types.StatusOTAUpdate,
	types.StatusOTASuccess,
	types.StatusOTAFail,
	types.StatusOff,
}

func TestCatalogueIsTotal(t *testing.T) {
	cat := Default()
	require.Len(t, cat, len(allStatuses))
	for _, st := range allStatuses {
		p, ok := cat.Lookup(st)
		require.True(t, ok, "missing pattern for %s", st)
		require.NotEmpty(t, p.Steps, "empty pattern for %s", st)
	}
	_, ok := cat.Lookup(types.Status("nope"))
	require.False(t, ok)
}

func TestStepInvariants(t *testing.T) {
	// Every non-solid step must complete via flash counting; only the off
	// sentinel is allowed a zero flash count.
	for st, p := range Default() {
		if p.renderOff() {
			continue
		}
		for i, s := range p.Steps {
			if !s.solid() {
				require.Greater(t, s.Flashes, uint8(0), "%s step %d", st, i)
			}
		}
	}
}

func TestOffSentinelDetection(t *testing.T) {
	cat := Default()
	for _, st := range allStatuses {
		p, _ := cat.Lookup(st)
		wantOff := st == types.StatusOff || st == types.StatusOTASuccess
		require.Equal(t, wantOff, p.renderOff(), "status %s", st)
	}
}

func TestRepeatSemantics(t *testing.T) {
	cases := map[types.Status]bool{
		types.StatusPowerOn:        false,
		types.StatusBLEPairing:     true,
		types.StatusBLEPairSuccess: false,
		types.StatusBLEPairFail:    true,
		types.StatusFactoryReset:   false,
		types.StatusOTAUpdate:      true,
		types.StatusOTAFail:        false,
	}
	cat := Default()
	for st, infinite := range cases {
		p, _ := cat.Lookup(st)
		require.Equal(t, infinite, p.infinite(), "status %s", st)
	}
}
