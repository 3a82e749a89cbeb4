// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// AttributeMapper derives local attributes from a Source.
type AttributeMapper interface {
	Attributes(ctx context.Context, src Source) (Attributes, error)
}

// Document selects which Source document a Rule reads.
type Document string

const (
	// DocumentAny reads the profile, then falls back to the claims.
	DocumentAny Document = ""

	// DocumentProfile reads the user info response only.
	DocumentProfile Document = "profile"

	// DocumentClaims reads the id_token claims only.
	DocumentClaims Document = "claims"
)

// Rule maps one gjson path to a local attribute. String values, numbers and
// booleans are used as is and arrays contribute every element.
type Rule struct {
	Path      string   `yaml:"path" validate:"required"`
	Attribute string   `yaml:"attribute" validate:"required"`
	Document  Document `yaml:"document" validate:"omitempty,oneof=profile claims"`
}

// JSONMapper is an AttributeMapper driven by gjson paths.
type JSONMapper struct {
	rules []Rule
}

var _ AttributeMapper = (*JSONMapper)(nil)

// NewJSONMapper creates a JSONMapper. Rules are applied in order, so a later
// rule adds to the values of an earlier one with the same attribute.
func NewJSONMapper(rules ...Rule) (*JSONMapper, error) {
	const op = "account.NewJSONMapper"
	if len(rules) == 0 {
		return nil, fmt.Errorf("%s: missing rules: %w", op, ErrInvalidParameter)
	}
	for i, r := range rules {
		switch {
		case strings.TrimSpace(r.Path) == "":
			return nil, fmt.Errorf("%s: rule %d: missing path: %w", op, i, ErrInvalidPath)
		case strings.TrimSpace(r.Attribute) == "":
			return nil, fmt.Errorf("%s: rule %d: missing attribute: %w", op, i, ErrInvalidParameter)
		}
		switch r.Document {
		case DocumentAny, DocumentProfile, DocumentClaims:
		default:
			return nil, fmt.Errorf("%s: rule %d: unknown document %q: %w", op, i, r.Document, ErrInvalidParameter)
		}
	}
	return &JSONMapper{rules: append([]Rule(nil), rules...)}, nil
}

// Attributes implements AttributeMapper. Documents which aren't valid JSON
// are reported as ErrInvalidParameter.
func (m *JSONMapper) Attributes(_ context.Context, src Source) (Attributes, error) {
	const op = "JSONMapper.Attributes"
	for name, doc := range map[string][]byte{"profile": src.Profile, "claims": src.Claims} {
		if len(doc) > 0 && !gjson.ValidBytes(doc) {
			return nil, fmt.Errorf("%s: %s is not valid JSON: %w", op, name, ErrInvalidParameter)
		}
	}
	attrs := Attributes{}
	for _, r := range m.rules {
		var res gjson.Result
		switch r.Document {
		case DocumentProfile:
			res = gjson.GetBytes(src.Profile, r.Path)
		case DocumentClaims:
			res = gjson.GetBytes(src.Claims, r.Path)
		default:
			if res = gjson.GetBytes(src.Profile, r.Path); !res.Exists() {
				res = gjson.GetBytes(src.Claims, r.Path)
			}
		}
		attrs.Add(r.Attribute, values(res)...)
	}
	return attrs, nil
}

func values(res gjson.Result) []string {
	if !res.Exists() {
		return nil
	}
	if res.IsArray() {
		var vs []string
		for _, e := range res.Array() {
			vs = append(vs, values(e)...)
		}
		return vs
	}
	if res.IsObject() || res.Type == gjson.Null {
		return nil
	}
	return []string{res.String()}
}
