// Package queue defines the audit events exchanged over the message broker,
// the publisher used by the HTTP service and the consumer that writes them
// to disk.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Rejection kinds carried in RejectionEvent.Kind.
const (
	KindSignatureRejected = "signature.rejected"
	KindTimestampRejected = "timestamp.rejected"
	KindRefReplayed       = "ref.replayed"
	KindHeadersMissing    = "headers.missing"
	KindBodyRejected      = "body.rejected"
)

// RejectionEvent is published when the signed-request guard turns a request
// away.  It carries enough context for an operator to spot forged or
// replayed traffic without access to the request logs.
type RejectionEvent struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Method     string `json:"method"`
	Route      string `json:"route"`
	RemoteIP   string `json:"remote_ip"`
	Ref        string `json:"ref,omitempty"`
	Reason     string `json:"reason"`
	OccurredAt string `json:"occurred_at"`
}

// NewRejectionEvent stamps a fresh event ID and the current UTC time.
func NewRejectionEvent(kind, method, route, remoteIP, ref, reason string) RejectionEvent {
	return RejectionEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		Method:     method,
		Route:      route,
		RemoteIP:   remoteIP,
		Ref:        ref,
		Reason:     reason,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
}
