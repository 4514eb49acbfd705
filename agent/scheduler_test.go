package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hairizuan-noorazman/linkedin-agent/logger"
	"github.com/hairizuan-noorazman/linkedin-agent/runhistory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TriggerHoldsOneTask(t *testing.T) {
	s := NewScheduler(func(ctx context.Context, task Task) error { return nil }, 0, nil, logger.NewTestLogger())

	assert.True(t, s.Trigger(&NotificationTask{}))
	assert.False(t, s.Trigger(&WithdrawalTask{}))
}

func TestScheduler_RunsTriggeredTasks(t *testing.T) {
	log := logger.NewTestLogger()
	ran := make(chan runhistory.AgentType, 2)
	s := NewScheduler(func(ctx context.Context, task Task) error {
		ran <- task.Kind()
		return errors.New("page crashed")
	}, 0, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.True(t, s.Trigger(&WithdrawalTask{}))
	select {
	case kind := <-ran:
		assert.Equal(t, runhistory.AgentInviteWithdrawal, kind)
	case <-time.After(time.Second):
		t.Fatal("task was not run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.True(t, log.HasMessage("scheduled run failed"))
	assert.True(t, log.HasMessage("scheduler stopping"))
}

func TestScheduler_PeriodicTask(t *testing.T) {
	ran := make(chan struct{}, 10)
	s := NewScheduler(func(ctx context.Context, task Task) error {
		ran <- struct{}{}
		return nil
	}, 10*time.Millisecond, &NotificationTask{}, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatalf("periodic run %d did not happen", i+1)
		}
	}
}
