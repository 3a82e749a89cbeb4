// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributes(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)

	a := Attributes{}
	a.Add("mail", "jdoe@acme.example", "", "jdoe@acme.example", "j@acme.example")
	assert.Equal([]string{"jdoe@acme.example", "j@acme.example"}, a["mail"])
	assert.Equal("jdoe@acme.example", a.First("mail"))
	assert.Empty(a.First("missing"))

	a.Set("cn", "John")
	a["empty"] = nil
	assert.Equal([]string{"cn", "mail"}, a.Names())

	cp := a.Clone()
	cp["mail"][0] = "changed"
	assert.Equal("jdoe@acme.example", a.First("mail"))

	a.Merge(Attributes{"cn": {"Johnny"}, "sn": {"Doe"}})
	assert.Equal([]string{"Johnny"}, a["cn"])
	assert.Equal([]string{"Doe"}, a["sn"])

	var nilAttrs Attributes
	assert.Nil(nilAttrs.Clone())
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "jdoe", NormalizeName("  JDoe "))
	assert.Equal(t, "", NormalizeName(" "))
}

func TestSource_IsEmpty(t *testing.T) {
	t.Parallel()
	assert.True(t, Source{}.IsEmpty())
	assert.False(t, Source{Claims: []byte(`{}`)}.IsEmpty())
}
