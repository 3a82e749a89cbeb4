// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_redacted(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	tk := Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		IdToken:      "id",
	}
	assert.Equal(RedactedAccessToken, fmt.Sprintf("%s", tk.AccessToken))
	assert.Equal(RedactedRefreshToken, fmt.Sprintf("%s", tk.RefreshToken))

	b, err := json.Marshal(tk)
	require.NoError(err)
	assert.Contains(string(b), RedactedAccessToken)
	assert.Contains(string(b), RedactedRefreshToken)
	assert.Contains(string(b), RedactedIdToken)
	assert.NotContains(string(b), `"access"`)
}
