// Package a2a models the slice of the agent-to-agent task transport this
// library depends on: tasks, messages, the event sink used to publish task
// updates, and the executor contract shared by delegates and middleware.
// The transport itself (routing, persistence, wire format) is owned by the
// hosting runtime.
package a2a

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskState is the transport-level lifecycle state of a task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateFailed        TaskState = "failed"
	TaskStateCanceled      TaskState = "canceled"
)

// Part is one content part of a message.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// TextPart builds a plain-text message part.
func TextPart(text string) Part {
	return Part{Kind: "text", Text: text}
}

// Message is one conversational turn exchanged between agents.
type Message struct {
	MessageID string                 `json:"messageId"`
	TaskID    string                 `json:"taskId,omitempty"`
	ContextID string                 `json:"contextId,omitempty"`
	Role      string                 `json:"role"`
	Parts     []Part                 `json:"parts"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewMessage builds a message with a generated id.
func NewMessage(role, text string) *Message {
	return &Message{
		MessageID: uuid.NewString(),
		Role:      role,
		Parts:     []Part{TextPart(text)},
	}
}

// TaskStatus is the current state of a task plus the message that carries
// its protocol metadata.
type TaskStatus struct {
	State     TaskState  `json:"state"`
	Message   *Message   `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Task is the unit of conversational work exchanged between two agents.
// Payment middleware persists its protocol state onto the status message
// metadata so it travels with the task between peers.
type Task struct {
	ID        string                 `json:"id"`
	ContextID string                 `json:"contextId,omitempty"`
	Status    TaskStatus             `json:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	History   []*Message             `json:"history,omitempty"`
}

// Event is anything that can be published to the transport's event sink,
// typically a *Task snapshot or a *Message.
type Event interface{}

// EventQueue is the transport's sink for task updates. Implementations are
// provided by the hosting runtime.
type EventQueue interface {
	Enqueue(ctx context.Context, event Event) error
}

// RequestContext carries one incoming turn: ids, the persisted task as the
// transport last saw it, the incoming message, and transport-level headers.
type RequestContext struct {
	TaskID      string
	ContextID   string
	CurrentTask *Task
	Message     *Message
	Headers     map[string]string
}

// Executor is the contract shared by business-logic delegates and the
// payment middleware that wraps them.
type Executor interface {
	// Execute runs one turn of the task identified by rc, publishing task
	// updates through q.
	Execute(ctx context.Context, rc *RequestContext, q EventQueue) error

	// Cancel requests cancellation of a running task.
	Cancel(ctx context.Context, rc *RequestContext, q EventQueue) error
}

// ErrCancelNotSupported is returned by executors that do not support task
// cancellation.
var ErrCancelNotSupported = fmt.Errorf("a2a: cancel is not supported")

// TaskUpdater publishes lifecycle transitions for one task. The transport
// requires a task to exist before events referencing it are valid, so
// middleware submits and starts the task before running any delegate.
type TaskUpdater struct {
	queue     EventQueue
	taskID    string
	contextID string
}

// NewTaskUpdater builds an updater bound to one task id.
func NewTaskUpdater(q EventQueue, taskID, contextID string) *TaskUpdater {
	return &TaskUpdater{queue: q, taskID: taskID, contextID: contextID}
}

// Submit announces the task to the transport.
func (u *TaskUpdater) Submit(ctx context.Context) error {
	return u.publish(ctx, TaskStateSubmitted)
}

// StartWork marks the task as actively being worked on.
func (u *TaskUpdater) StartWork(ctx context.Context) error {
	return u.publish(ctx, TaskStateWorking)
}

func (u *TaskUpdater) publish(ctx context.Context, state TaskState) error {
	now := time.Now().UTC()
	return u.queue.Enqueue(ctx, &Task{
		ID:        u.taskID,
		ContextID: u.contextID,
		Status:    TaskStatus{State: state, Timestamp: &now},
	})
}
