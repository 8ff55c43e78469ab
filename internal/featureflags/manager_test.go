package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnabled(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0,all=100%,none=0%,over=250%,junk=abc%,weird=maybe")

	tests := []struct {
		flag string
		want bool
	}{
		{"a", true}, {"c", true}, {"e", true}, {"all", true}, {"over", true},
		{"b", false}, {"d", false}, {"f", false}, {"none", false},
		{"junk", false}, {"weird", false}, {"missing", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Enabled(tt.flag, 7), tt.flag)
	}
}

func TestEnabled_PartialRollout(t *testing.T) {
	m := NewManager("report_queueing=25%")

	enabled := 0
	for id := uint(1); id <= 1000; id++ {
		first := m.Enabled(ReportQueueing, id)
		assert.Equal(t, first, m.Enabled(ReportQueueing, id), "user %d flips between calls", id)
		if first {
			enabled++
		}
	}
	assert.InDelta(t, 250, enabled, 80, "rollout share should be near 25%%")
	assert.False(t, m.Enabled(ReportQueueing, 0), "anonymous callers are never in a partial rollout")
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,Keyword_Screening=ON, otp_email = 20% ,report_queueing=off,=on,empty= ")

	assert.Equal(t, map[string]string{
		KeywordScreening: "on",
		OTPEmail:         "20%",
		ReportQueueing:   "off",
	}, m.Raw())
	assert.Equal(t, []string{KeywordScreening, OTPEmail, ReportQueueing}, m.Names())

	snap := m.Snapshot(123)
	require.Len(t, snap, 3)
	assert.True(t, snap[KeywordScreening])
	assert.False(t, snap[ReportQueueing])
	assert.True(t, m.Enabled("  KEYWORD_SCREENING ", 0))
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(KeywordScreening, 1))
	assert.Empty(t, m.Raw())
	assert.Empty(t, m.Names())
	assert.Empty(t, m.Snapshot(1))
}
