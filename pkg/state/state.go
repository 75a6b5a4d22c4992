// Package state keeps the single pending follow-up slot per sender.
package state

import (
	"context"
	"errors"
	"maps"
	"strings"
)

// Pending names the structured input a sender is expected to type next.
type Pending string

const (
	PendingNone              Pending = ""
	PendingAwaitingCity      Pending = "awaiting_city"
	PendingAwaitingFoodQuery Pending = "awaiting_food_query"
)

func (p Pending) String() string {
	if p == PendingNone {
		return "none"
	}

	return string(p)
}

// ErrEmptySender is returned when a store call is made without a sender key.
var ErrEmptySender = errors.New("sender id is required")

// Context is the conversation context of one sender. The zero value means idle.
type Context struct {
	SenderID string            `json:"sender_id"`
	Pending  Pending           `json:"pending"`
	Aux      map[string]string `json:"aux,omitempty"`
}

// Idle reports whether no follow-up input is expected.
func (c Context) Idle() bool {
	return c.Pending == PendingNone
}

// Store holds at most one context per sender.
//
// Get returns an idle context when none is stored. SetPending replaces any
// existing context. Clear is idempotent.
type Store interface {
	Get(ctx context.Context, senderID string) (Context, error)
	SetPending(ctx context.Context, senderID string, pending Pending, aux map[string]string) error
	Clear(ctx context.Context, senderID string) error
}

func idle(senderID string) Context {
	return Context{SenderID: senderID, Pending: PendingNone}
}

func senderKey(senderID string) (string, error) {
	trimmed := strings.TrimSpace(senderID)
	if trimmed == "" {
		return "", ErrEmptySender
	}

	return trimmed, nil
}

func cloneAux(aux map[string]string) map[string]string {
	if len(aux) == 0 {
		return nil
	}

	return maps.Clone(aux)
}
