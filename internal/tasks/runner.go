package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
)

// metadataChainKey is where the chain-mode flag lives inside a task's stored
// metadata. Parsed into TaskState so the runner never branches on raw payload.
const metadataChainKey = "canRunNextCheckpoint"

// Task is the typed view of a task notification handed to checkpoint functions.
type Task struct {
	Notification *models.Notification

	// Metadata is the task's persisted opaque data. Checkpoint functions must
	// consult it before redoing side effects: the same checkpoint can re-run
	// after a delay.
	Metadata map[string]interface{}

	// Completed lists checkpoints already finished, in order.
	Completed []string
}

// HasCompleted reports whether a checkpoint name is already in the completed list.
func (t *Task) HasCompleted(checkpoint string) bool {
	for _, c := range t.Completed {
		if c == checkpoint {
			return true
		}
	}
	return false
}

// CheckpointResult is what a checkpoint function returns.
type CheckpointResult struct {
	// Complete marks the whole flow finished, regardless of remaining checkpoints.
	Complete bool

	// UpdateMetadata is merged into the task's persisted metadata.
	UpdateMetadata map[string]interface{}

	// DelayUntil reschedules the notification and pauses the flow without
	// marking the current checkpoint complete.
	DelayUntil *time.Time
}

// CheckpointFunc advances a task by one checkpoint.
type CheckpointFunc func(ctx context.Context, task *Task) (*CheckpointResult, error)

// Checkpoint is one named step of a task flow.
type Checkpoint struct {
	Name string
	Fn   CheckpointFunc
}

// Handler is a registered task type: an ordered flow of checkpoints.
type Handler struct {
	Type string
	Flow []Checkpoint
}

// RunOutcome summarizes one runner invocation for a task notification.
type RunOutcome struct {
	// Completed are the checkpoints newly finished by this invocation.
	Completed []string

	// Done is true once every checkpoint of the flow has completed.
	Done bool

	// DelayUntil, when set, is the time the notification should next run.
	DelayUntil *time.Time

	// Metadata is the merged metadata to persist back onto the notification.
	Metadata map[string]interface{}
}

// TaskState is the explicit control state parsed out of a task's metadata.
type TaskState struct {
	Completed []string
	ChainMode bool
}

// ParseState extracts the typed control state from a notification.
func ParseState(n *models.Notification) TaskState {
	state := TaskState{Completed: n.CompletedCheckpoints}
	if n.Item.Data != nil {
		if chain, ok := n.Item.Data[metadataChainKey].(bool); ok {
			state.ChainMode = chain
		}
	}
	return state
}

// RunNext drives the task forward. It runs exactly the next incomplete
// checkpoint, or several in a row when chain mode is on, stopping at the first
// DelayUntil or at flow completion.
func (h Handler) RunNext(ctx context.Context, n *models.Notification) (*RunOutcome, error) {
	state := ParseState(n)
	task := &Task{
		Notification: n,
		Metadata:     cloneMetadata(n.Item.Data),
		Completed:    append([]string(nil), state.Completed...),
	}
	outcome := &RunOutcome{Metadata: task.Metadata}

	for {
		next, ok := h.nextCheckpoint(task)
		if !ok {
			outcome.Done = true
			return outcome, nil
		}

		result, err := next.Fn(ctx, task)
		if err != nil {
			return nil, fmt.Errorf("checkpoint %q of task %q failed: %v", next.Name, h.Type, err)
		}
		if result == nil {
			return nil, fmt.Errorf("checkpoint %q of task %q returned no result", next.Name, h.Type)
		}

		mergeMetadata(task.Metadata, result.UpdateMetadata)

		if result.DelayUntil != nil {
			// The checkpoint is not marked complete: it re-runs after the
			// delay and must resume from its stored partial metadata.
			outcome.DelayUntil = result.DelayUntil
			return outcome, nil
		}

		task.Completed = append(task.Completed, next.Name)
		outcome.Completed = append(outcome.Completed, next.Name)

		if result.Complete || !h.hasRemaining(task) {
			outcome.Done = true
			return outcome, nil
		}

		state = TaskState{Completed: task.Completed, ChainMode: chainModeOf(task.Metadata)}
		if !state.ChainMode {
			return outcome, nil
		}
	}
}

func (h Handler) nextCheckpoint(task *Task) (Checkpoint, bool) {
	for _, cp := range h.Flow {
		if !task.HasCompleted(cp.Name) {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

func (h Handler) hasRemaining(task *Task) bool {
	_, ok := h.nextCheckpoint(task)
	return ok
}

func chainModeOf(metadata map[string]interface{}) bool {
	if metadata == nil {
		return false
	}
	chain, _ := metadata[metadataChainKey].(bool)
	return chain
}

func cloneMetadata(metadata map[string]interface{}) map[string]interface{} {
	cloned := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		cloned[k] = v
	}
	return cloned
}

func mergeMetadata(dst, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}

// Registry maps task type tags to handlers. Populated at startup.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a task handler. Duplicate types are rejected.
func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[h.Type]; exists {
		return fmt.Errorf("task type %q already registered", h.Type)
	}
	if len(h.Flow) == 0 {
		return fmt.Errorf("task type %q has an empty flow", h.Type)
	}
	r.handlers[h.Type] = h
	return nil
}

// Lookup returns the handler for a task type. It returns
// models.ErrUnknownTaskType for unregistered types.
func (r *Registry) Lookup(taskType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[taskType]
	if !ok {
		return Handler{}, fmt.Errorf("%w: %s", models.ErrUnknownTaskType, taskType)
	}
	return h, nil
}
