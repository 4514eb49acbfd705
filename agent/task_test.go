package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskByName(t *testing.T) {
	tests := []struct {
		name string
		want runhistory.AgentType
		err  error
	}{
		{"notification", runhistory.AgentNotification, nil},
		{"notification_agent", runhistory.AgentNotification, nil},
		{"withdraw", runhistory.AgentInviteWithdrawal, nil},
		{"invite_withdrawal", runhistory.AgentInviteWithdrawal, nil},
		{"outreach", runhistory.AgentOutreach, nil},
		{"outreach_agent", runhistory.AgentOutreach, nil},
		{"engagement", "", ErrUnknownTask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := TaskByName(tt.name)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, task.Kind())
		})
	}
}

func TestEnv_AwaitLogin(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
		polls   int
	}{
		{name: "logged in", url: NotificationsURL},
		{name: "login page", url: "https://www.linkedin.com/login", wantErr: ErrLoginRequired, polls: 2},
		{name: "authwall", url: "https://www.linkedin.com/authwall?trk=x", wantErr: ErrLoginRequired, polls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.set(t, "timeouts.login_wait_s", 10)
			h.page.Current = tt.url
			env := h.env(t, &NotificationTask{}, nil)

			err := env.AwaitLogin(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, h.sleeper.Sleeps(), tt.polls)
			assert.Equal(t, time.Duration(tt.polls)*5*time.Second, h.sleeper.Total())
		})
	}
}

func TestEnv_RetryUsesConfiguredAttempts(t *testing.T) {
	h := newHarness(t)
	h.set(t, "limits.max_retries", 3)
	env := h.env(t, &WithdrawalTask{}, nil)

	calls := 0
	err := env.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("detached")
	})
	assert.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 3*time.Second, h.sleeper.Total())
}
