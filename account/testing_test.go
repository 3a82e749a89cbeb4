// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errTestFailure = errors.New("test failure")

// testMapper returns fixed attributes, or err.
type testMapper struct {
	attrs Attributes
	err   error
}

func (m testMapper) Attributes(context.Context, Source) (Attributes, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.attrs.Clone(), nil
}

// testProvider records the attributes it was asked to provision.
type testProvider struct {
	*DefaultAccountProvider
	provisioned Attributes
	nilResult   bool
	err         error
}

func (p *testProvider) ProvisionUser(ctx context.Context, repo Repository, realm string, attrs Attributes) (*Identity, error) {
	p.provisioned = attrs.Clone()
	switch {
	case p.err != nil:
		return nil, p.err
	case p.nilResult:
		return nil, nil
	}
	return p.DefaultAccountProvider.ProvisionUser(ctx, repo, realm, attrs)
}

func testRepository(t *testing.T, idents ...Identity) *MemoryRepository {
	t.Helper()
	repo := NewMemoryRepository()
	for _, i := range idents {
		_, err := repo.Create(context.Background(), i.Realm, i.Name, i.Attributes)
		require.NoError(t, err)
	}
	return repo
}
