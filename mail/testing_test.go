// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestGateway(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	assert, require := assert.New(t), require.New(t)
	g := NewTestGateway()

	_, ok := g.Last()
	assert.False(ok)

	msg := Message{From: "noreply@acme.example", To: "jdoe@acme.example", Subject: "s", Body: "b"}
	require.NoError(g.Send(ctx, msg, TransportOptions{}))
	last, ok := g.Last()
	require.True(ok)
	assert.Equal(msg, last)

	assert.ErrorIs(g.Send(ctx, Message{}, TransportOptions{}), ErrInvalidParameter)

	boom := errors.New("boom")
	g.SetError(boom)
	err := g.Send(ctx, msg, TransportOptions{})
	assert.ErrorIs(err, ErrSendFailed)
	assert.ErrorIs(err, boom)
	assert.Len(g.Messages(), 1)

	g.SetError(nil)
	require.NoError(g.Send(ctx, msg, TransportOptions{}))
	assert.Len(g.Messages(), 2)
}
