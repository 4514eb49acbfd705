package runhistory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]interface{}
		check func(t *testing.T, m Metrics)
	}{
		{
			name: "untagged run is outreach with full scroll success",
			raw:  map[string]interface{}{"profiles_processed": 3.0},
			check: func(t *testing.T, m Metrics) {
				o, ok := m.(*OutreachMetrics)
				require.True(t, ok)
				assert.Equal(t, 1.0, o.ScrollSuccessRate)
				assert.Equal(t, 3, o.ProfilesProcessed)
				assert.Equal(t, AgentOutreach, o.AgentType)
			},
		},
		{
			name: "list of errors counts as its length",
			raw: map[string]interface{}{
				"errors":                      []interface{}{"timeout", "detached"},
				"message_verification_failed": true,
			},
			check: func(t *testing.T, m Metrics) {
				o := m.(*OutreachMetrics)
				assert.Equal(t, 2, o.Errors)
				assert.True(t, o.MessageVerificationFailed)
			},
		},
		{
			name: "withdrawal",
			raw:  map[string]interface{}{"agent_type": "invite_withdrawal", "dialog_timeout_count": 2.0, "withdrawn": 7},
			check: func(t *testing.T, m Metrics) {
				w, ok := m.(*WithdrawalMetrics)
				require.True(t, ok)
				assert.Equal(t, 2, w.DialogTimeoutCount)
				assert.Equal(t, 7, w.Withdrawn)
			},
		},
		{
			name: "notification",
			raw:  map[string]interface{}{"agent_type": "notification_agent", "errors": 4, "invites_sent": 2},
			check: func(t *testing.T, m Metrics) {
				n, ok := m.(*NotificationMetrics)
				require.True(t, ok)
				assert.Equal(t, 4, n.Errors)
				assert.Equal(t, 2, n.InvitesSent)
			},
		},
		{
			name: "other agents keep unknown keys",
			raw:  map[string]interface{}{"agent_type": "comment_agent", "actions": 5, "comments_posted": 2},
			check: func(t *testing.T, m Metrics) {
				g, ok := m.(*GenericMetrics)
				require.True(t, ok)
				assert.Equal(t, AgentComment, g.Kind())
				assert.Equal(t, 5, g.Actions)
				assert.Equal(t, 2, g.Extra["comments_posted"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(tt.raw)
			require.NoError(t, err)
			tt.check(t, m)
		})
	}
}

func TestEncode(t *testing.T) {
	out, err := Encode(&WithdrawalMetrics{DialogTimeoutCount: 3, Withdrawn: 1})
	require.NoError(t, err)
	assert.Equal(t, "invite_withdrawal", out["agent_type"])
	assert.Equal(t, 3, out["dialog_timeout_count"])

	out, err = Encode(&GenericMetrics{AgentType: AgentSearch, Actions: 4, Extra: map[string]interface{}{"queries": 2}})
	require.NoError(t, err)
	assert.Equal(t, "search_agent", out["agent_type"])
	assert.Equal(t, 4, out["actions"])
	assert.Equal(t, 2, out["queries"])
}
