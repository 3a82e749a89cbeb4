// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		prefix  string
		wantLen int
	}{
		{name: "valid", prefix: "id", wantLen: 36 + len("id_")},
		{name: "no-prefix", prefix: "", wantLen: 36},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := New(tt.prefix)
			require.NoError(err)
			if tt.prefix != "" {
				assert.True(strings.HasPrefix(got, tt.prefix+"_"))
			}
			assert.Lenf(got, tt.wantLen, "New() = %v", got)
		})
	}
}

func TestNewRandomString(t *testing.T) {
	t.Parallel()
	t.Run("too-short", func(t *testing.T) {
		_, err := NewRandomString(MinRandomBytes - 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidParameter))
	})
	t.Run("deterministic-reader", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		seed := bytes.Repeat([]byte{0x01}, 64)
		a, err := NewRandomString(32, WithReader(bytes.NewReader(seed)))
		require.NoError(err)
		b, err := NewRandomString(32, WithReader(bytes.NewReader(seed)))
		require.NoError(err)
		assert.Equal(a, b)
		raw, err := base64.RawURLEncoding.DecodeString(a)
		require.NoError(err)
		assert.Len(raw, 32)
	})
	t.Run("random", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		a, err := NewRandomString(32)
		require.NoError(err)
		b, err := NewRandomString(32)
		require.NoError(err)
		assert.NotEqual(a, b)
	})
}

func TestNewActivationCode(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	code, err := NewActivationCode(8)
	require.NoError(err)
	assert.Len(code, 8)

	_, err = NewActivationCode(0)
	require.Error(err)
	assert.True(errors.Is(err, ErrInvalidParameter))
}

func TestNewTokenID(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	now := time.Now().Truncate(time.Second)
	got, err := NewTokenID(now)
	require.NoError(err)
	k, err := ksuid.Parse(got)
	require.NoError(err)
	assert.True(k.Time().Equal(now))

	other, err := NewTokenID(now)
	require.NoError(err)
	assert.NotEqual(got, other)
}
