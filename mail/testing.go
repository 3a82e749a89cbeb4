// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mail

import (
	"context"
	"fmt"
	"sync"
)

// TestGateway is a Gateway which records messages instead of sending them.
type TestGateway struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

var _ Gateway = (*TestGateway)(nil)

// NewTestGateway creates an empty TestGateway.
func NewTestGateway() *TestGateway {
	return &TestGateway{}
}

// Send implements Gateway.
func (g *TestGateway) Send(_ context.Context, msg Message, _ TransportOptions) error {
	const op = "TestGateway.Send"
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrSendFailed, g.err)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	g.messages = append(g.messages, msg)
	return nil
}

// SetError makes every following Send fail with err. A nil err restores
// delivery.
func (g *TestGateway) SetError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Messages returns the messages sent so far.
func (g *TestGateway) Messages() []Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Message(nil), g.messages...)
}

// Last returns the last message sent, if any.
func (g *TestGateway) Last() (Message, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.messages) == 0 {
		return Message{}, false
	}
	return g.messages[len(g.messages)-1], true
}
