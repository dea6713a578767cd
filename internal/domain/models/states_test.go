package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnums_String(t *testing.T) {
	tests := []struct {
		v    fmt.Stringer
		want string
	}{
		{StateStressed, "stressed"},
		{MajorityMixed, "mixed"},
		{FatigueUnknown, "unknown"},
		{Yellow, "Yellow"},
		{CrashPreCrash, "Pre-Crash"},
		{FragilityGlobal, "Global"},
		{LoadPeak, "PEAK"},
		{LoadEasing, "Easing"},
		{HRVPayAttention, "Pay Attention"},
		{FlagPct, "pct"},
		{Whoop, "Whoop"},
		{MetricOuraRhr, "ouraRhr"},
		{ModeADT, string(ModeADT)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.String())
	}
}

func TestCrashStatus_SeverityOrdersLadder(t *testing.T) {
	ladder := []CrashStatus{CrashStable, CrashVulnerable, CrashPreCrash, CrashOnset, CrashState}
	for i, c := range ladder {
		assert.Equal(t, i, c.Severity(), c.String())
	}
	assert.Equal(t, -1, CrashStatus("bogus").Severity())
}
