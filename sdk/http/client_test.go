// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package http

import (
	"bytes"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Parallel()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	require.NoError(t, pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw}))
	caPEM := buf.String()

	t.Run("with-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewClient(caPEM, WithTimeout(5*time.Second))
		require.NoError(err)
		assert.Equal(5*time.Second, c.Timeout)
		resp, err := c.Get(srv.URL)
		require.NoError(err)
		defer resp.Body.Close()
		assert.Equal(http.StatusNoContent, resp.StatusCode)
	})
	t.Run("default-timeout", func(t *testing.T) {
		c, err := NewClient("")
		require.NoError(t, err)
		assert.Equal(t, DefaultTimeout, c.Timeout)
	})
	t.Run("invalid-ca", func(t *testing.T) {
		_, err := NewClient("not a pem")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidCertificatePem))
	})
}
