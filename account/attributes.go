// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"strings"

	"github.com/hashicorp/rplogin/internal/strutils"
)

// Attributes maps an attribute name to one or more values.
type Attributes map[string][]string

// Add appends values to the attribute, skipping empty strings and values it
// already holds.
func (a Attributes) Add(name string, values ...string) {
	for _, v := range values {
		if v == "" || strutils.StrListContains(a[name], v) {
			continue
		}
		a[name] = append(a[name], v)
	}
}

// Set replaces the attribute's values.
func (a Attributes) Set(name string, values ...string) {
	a[name] = append([]string(nil), values...)
}

// First returns the first value of the attribute, or "".
func (a Attributes) First(name string) string {
	if vs := a[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Names returns the attribute names which have values, in lexical order.
func (a Attributes) Names() []string {
	names := make([]string, 0, len(a))
	for _, n := range strutils.SortedKeys(a) {
		if len(a[n]) > 0 {
			names = append(names, n)
		}
	}
	return names
}

// Merge copies every attribute of other into a. Conflicting names take
// other's values.
func (a Attributes) Merge(other Attributes) {
	for k, vs := range other {
		a.Set(k, vs...)
	}
}

// Clone returns a deep copy.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	cp := make(Attributes, len(a))
	cp.Merge(a)
	return cp
}

// Identity is a local account.
type Identity struct {
	Name       string
	Realm      string
	Attributes Attributes
}

// NormalizeName returns the canonical form of an identity name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Source holds the raw documents attributes are mapped from. Either may be
// empty.
type Source struct {
	// Profile is the user info response body.
	Profile []byte

	// Claims is the verified id_token claim set as JSON.
	Claims []byte
}

// IsEmpty reports whether there's nothing to map from.
func (s Source) IsEmpty() bool {
	return len(s.Profile) == 0 && len(s.Claims) == 0
}
