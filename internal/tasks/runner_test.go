package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskNotification(taskType string, data map[string]interface{}, completed ...string) *models.Notification {
	return &models.Notification{
		SendType:             models.SendTypeTaskNotification,
		Item:                 models.NotificationItem{ID: "item-1", Type: taskType, Data: data},
		CompletedCheckpoints: completed,
	}
}

func TestRegistryRejectsDuplicatesAndEmptyFlows(t *testing.T) {
	r := NewRegistry()
	h := Handler{Type: "t", Flow: []Checkpoint{{Name: "a", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
		return &CheckpointResult{}, nil
	}}}}

	require.NoError(t, r.Register(h))
	assert.Error(t, r.Register(h))
	assert.Error(t, r.Register(Handler{Type: "empty"}))

	_, err := r.Lookup("t")
	assert.NoError(t, err)
	_, err = r.Lookup("missing")
	assert.ErrorIs(t, err, models.ErrUnknownTaskType)
}

func TestRunNextRunsOnlyNextCheckpoint(t *testing.T) {
	var runs []string
	h := Handler{Type: "t", Flow: []Checkpoint{
		{Name: "one", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			runs = append(runs, "one")
			return &CheckpointResult{}, nil
		}},
		{Name: "two", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			runs = append(runs, "two")
			return &CheckpointResult{}, nil
		}},
	}}

	outcome, err := h.RunNext(context.Background(), taskNotification("t", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"one"}, runs)
	assert.Equal(t, []string{"one"}, outcome.Completed)
	assert.False(t, outcome.Done)
}

func TestRunNextResumesAfterCompletedCheckpoints(t *testing.T) {
	var runs []string
	h := Handler{Type: "t", Flow: []Checkpoint{
		{Name: "one", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			runs = append(runs, "one")
			return &CheckpointResult{}, nil
		}},
		{Name: "two", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			runs = append(runs, "two")
			return &CheckpointResult{}, nil
		}},
	}}

	outcome, err := h.RunNext(context.Background(), taskNotification("t", nil, "one"))
	require.NoError(t, err)

	assert.Equal(t, []string{"two"}, runs)
	assert.Equal(t, []string{"two"}, outcome.Completed)
	assert.True(t, outcome.Done)
}

func TestRunNextIdempotentWithoutStateChange(t *testing.T) {
	h := Handler{Type: "t", Flow: []Checkpoint{
		{Name: "compute", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			// Inspect stored metadata before redoing work, parse-result style.
			if prior, ok := task.Metadata["result"]; ok {
				return &CheckpointResult{UpdateMetadata: map[string]interface{}{"result": prior}}, nil
			}
			return &CheckpointResult{UpdateMetadata: map[string]interface{}{"result": 7}}, nil
		}},
		{Name: "finish", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			return &CheckpointResult{Complete: true}, nil
		}},
	}}

	notif := taskNotification("t", nil)
	first, err := h.RunNext(context.Background(), notif)
	require.NoError(t, err)

	// Re-run against unchanged persisted state: same result, no extra effects.
	second, err := h.RunNext(context.Background(), notif)
	require.NoError(t, err)

	assert.Equal(t, first.Completed, second.Completed)
	assert.Equal(t, first.Metadata["result"], second.Metadata["result"])
}

func TestRunNextCompleteShortCircuitsFlow(t *testing.T) {
	ran := false
	h := Handler{Type: "t", Flow: []Checkpoint{
		{Name: "one", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			return &CheckpointResult{Complete: true}, nil
		}},
		{Name: "never", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			ran = true
			return &CheckpointResult{}, nil
		}},
	}}

	outcome, err := h.RunNext(context.Background(), taskNotification("t", map[string]interface{}{"canRunNextCheckpoint": true}))
	require.NoError(t, err)

	assert.True(t, outcome.Done)
	assert.False(t, ran)
}

func TestRunNextChainStopsAtDelay(t *testing.T) {
	delay := time.Now().Add(time.Hour)
	var runs []string
	h := Handler{Type: "t", Flow: []Checkpoint{
		{Name: "one", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			runs = append(runs, "one")
			return &CheckpointResult{}, nil
		}},
		{Name: "two", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			runs = append(runs, "two")
			return &CheckpointResult{DelayUntil: &delay}, nil
		}},
		{Name: "three", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			runs = append(runs, "three")
			return &CheckpointResult{}, nil
		}},
	}}

	outcome, err := h.RunNext(context.Background(), taskNotification("t", map[string]interface{}{"canRunNextCheckpoint": true}))
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two"}, runs)
	// The delayed checkpoint is not marked complete; it re-runs later.
	assert.Equal(t, []string{"one"}, outcome.Completed)
	require.NotNil(t, outcome.DelayUntil)
	assert.Equal(t, delay, *outcome.DelayUntil)
	assert.False(t, outcome.Done)
}

func TestRunNextChainModeCanBeDisabledMidFlow(t *testing.T) {
	var runs []string
	h := Handler{Type: "t", Flow: []Checkpoint{
		{Name: "one", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			runs = append(runs, "one")
			return &CheckpointResult{UpdateMetadata: map[string]interface{}{"canRunNextCheckpoint": false}}, nil
		}},
		{Name: "two", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			runs = append(runs, "two")
			return &CheckpointResult{}, nil
		}},
	}}

	outcome, err := h.RunNext(context.Background(), taskNotification("t", map[string]interface{}{"canRunNextCheckpoint": true}))
	require.NoError(t, err)

	assert.Equal(t, []string{"one"}, runs)
	assert.Equal(t, []string{"one"}, outcome.Completed)
	assert.False(t, outcome.Done)
}

func TestRunNextDoneWhenNothingRemains(t *testing.T) {
	h := Handler{Type: "t", Flow: []Checkpoint{
		{Name: "one", Fn: func(ctx context.Context, task *Task) (*CheckpointResult, error) {
			return &CheckpointResult{}, nil
		}},
	}}

	outcome, err := h.RunNext(context.Background(), taskNotification("t", nil, "one"))
	require.NoError(t, err)

	assert.True(t, outcome.Done)
	assert.Empty(t, outcome.Completed)
}

func TestParseState(t *testing.T) {
	notif := taskNotification("t", map[string]interface{}{"canRunNextCheckpoint": true}, "a", "b")
	state := ParseState(notif)

	assert.True(t, state.ChainMode)
	assert.Equal(t, []string{"a", "b"}, state.Completed)
}
