// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// ResolutionKind says how a Resolution was reached.
type ResolutionKind int

const (
	// ResolutionNone means no identity could be found or derived.
	ResolutionNone ResolutionKind = iota

	// ResolutionExisting means an existing identity matched.
	ResolutionExisting

	// ResolutionAnonymous means the configured anonymous user was used.
	ResolutionAnonymous

	// ResolutionDynamic means the name was taken from the mapped attributes
	// without a matching identity.
	ResolutionDynamic
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionExisting:
		return "existing"
	case ResolutionAnonymous:
		return "anonymous"
	case ResolutionDynamic:
		return "dynamic"
	default:
		return "none"
	}
}

// Resolution is the outcome of Resolver.Resolve.
type Resolution struct {
	Kind ResolutionKind

	// Name is the normalized identity name. It's empty for ResolutionNone.
	Name string

	// Identity is set for ResolutionExisting.
	Identity *Identity

	// Attributes are the merged mapped attributes.
	Attributes Attributes
}

// Resolver maps provider attributes to a local identity.
type Resolver struct {
	provider AccountProvider
	repo     Repository
	mappers  []AttributeMapper
	opts     options
	logger   hclog.Logger
}

// NewResolver creates a Resolver. Mappers run in order.
//
// Supported options: WithLogger, WithAnonymousUser, WithProvisioning,
// WithNameAttribute
func NewResolver(provider AccountProvider, repo Repository, mappers []AttributeMapper, opt ...Option) (*Resolver, error) {
	const op = "account.NewResolver"
	switch {
	case provider == nil:
		return nil, fmt.Errorf("%s: missing account provider: %w", op, ErrNilParameter)
	case repo == nil:
		return nil, fmt.Errorf("%s: missing repository: %w", op, ErrNilParameter)
	case len(mappers) == 0:
		return nil, fmt.Errorf("%s: missing attribute mappers: %w", op, ErrInvalidParameter)
	}
	opts := getOpts(opt...)
	return &Resolver{
		provider: provider,
		repo:     repo,
		mappers:  append([]AttributeMapper(nil), mappers...),
		opts:     opts,
		logger:   opts.withLogger.Named("account"),
	}, nil
}

// Provisioning reports whether unmatched identities are left to a
// Provisioner.
func (r *Resolver) Provisioning() bool { return r.opts.withProvisioning }

// Resolve finds the identity for src. A matching identity always wins. With
// provisioning disabled, an unmatched identity resolves to the anonymous user
// when one is configured, else to the first name attribute value mapped, in
// mapper order.
func (r *Resolver) Resolve(ctx context.Context, realm string, src Source) (*Resolution, error) {
	const op = "Resolver.Resolve"
	merged := Attributes{}
	var dynamicName string
	for i, m := range r.mappers {
		attrs, err := m.Attributes(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("%s: mapper %d: %w", op, i, err)
		}
		if dynamicName == "" {
			dynamicName = NormalizeName(attrs.First(r.opts.withNameAttribute))
		}
		merged.Merge(attrs)
	}

	if len(merged.Names()) > 0 {
		ident, err := r.provider.SearchUser(ctx, r.repo, realm, merged)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ident != nil {
			return &Resolution{
				Kind:       ResolutionExisting,
				Name:       NormalizeName(ident.Name),
				Identity:   ident,
				Attributes: merged,
			}, nil
		}
	}

	res := &Resolution{Kind: ResolutionNone, Attributes: merged}
	if r.opts.withProvisioning {
		return res, nil
	}
	switch {
	case r.opts.withAnonymousUser != "":
		res.Kind = ResolutionAnonymous
		res.Name = NormalizeName(r.opts.withAnonymousUser)
	case dynamicName != "":
		res.Kind = ResolutionDynamic
		res.Name = dynamicName
	}
	r.logger.Debug("no matching identity", "realm", realm, "resolution", res.Kind.String())
	return res, nil
}
