// Package queue defines the audit event payload exchanged over the message
// broker and the consumer that records it.
package queue

import (
    "fmt"
    "time"
)

// EventQueue is the durable queue audit events are published to.
const EventQueue = "resource.events"

// Actions recorded for a resource.
const (
    ActionCreated = "created"
    ActionUpdated = "updated"
    ActionDeleted = "deleted"
)

// Resource kinds.
const (
    ResourceUser = "user"
    ResourceNote = "note"
)

// ResourceEvent is published after a user or note has been created,
// updated or deleted.  Label is the username or note title at the time of
// the change; Actor is the authenticated username, or "anon" for public
// requests such as sign-up.
type ResourceEvent struct {
    Action   string    `json:"action"`
    Resource string    `json:"resource"`
    ID       string    `json:"id"`
    Label    string    `json:"label"`
    Actor    string    `json:"actor"`
    At       time.Time `json:"at"`
}

// String renders the event as a single log line.
func (e ResourceEvent) String() string {
    return fmt.Sprintf("%s %s | id=%s | label=%q | actor=%s | at=%s",
        e.Resource, e.Action, e.ID, e.Label, e.Actor, e.At.UTC().Format(time.RFC3339))
}
