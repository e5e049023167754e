package aliasing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	releases int
}

func (p *payload) Release() { p.releases++ }

func TestAliased_NonOwningDropDoesNotRelease(t *testing.T) {
	p := &payload{}
	a := New(p)
	assert.False(t, a.Owning())

	a.Drop()
	assert.Equal(t, 0, p.releases)
	assert.Nil(t, a.Get())
}

func TestAliased_AliasSharesPayload(t *testing.T) {
	p := &payload{}
	a := New(p)
	b := a.Alias()

	assert.True(t, a.Same(&b))
	assert.Same(t, p, b.Get())
	assert.False(t, b.Owning())
}

func TestAliased_ExactlyOnceRelease(t *testing.T) {
	p := &payload{}
	a := New(p)
	b := a.Alias()

	// First copy gives up its alias silently.
	a.Drop()
	assert.Equal(t, 0, p.releases)
	assert.False(t, b.Released())

	// The last alias is promoted and releases for real.
	b.ChangeDrop()
	require.True(t, b.Owning())
	b.Drop()
	assert.Equal(t, 1, p.releases)
}

func TestAliased_DemoteSuppressesRelease(t *testing.T) {
	p := &payload{}
	a := New(p)
	a.SetOwning(true)
	a.ChangeDrop()
	assert.False(t, a.Owning())

	a.Drop()
	assert.Equal(t, 0, p.releases)
}

func TestAliased_DoubleReleasePanics(t *testing.T) {
	p := &payload{}
	a := New(p)
	b := a.Alias()

	a.SetOwning(true)
	a.Drop()
	require.Equal(t, 1, p.releases)
	assert.True(t, b.Released())

	assert.Panics(t, func() { b.SetOwning(true) })
}

func TestAliased_NonReleaserPayload(t *testing.T) {
	a := New(42)
	a.SetOwning(true)
	assert.NotPanics(t, a.Drop)
}

func TestAliased_ZeroValue(t *testing.T) {
	var a Aliased[*payload]
	assert.Nil(t, a.Get())
	assert.False(t, a.Released())
	assert.NotPanics(t, a.Drop)
}

func TestAliased_SharesPayload(t *testing.T) {
	p := &payload{}
	a := New(p)
	b := a.Alias()
	c := New(p)
	d := New(&payload{})

	assert.True(t, a.SharesPayload(&b))
	assert.True(t, a.SharesPayload(&c))
	assert.False(t, a.SharesPayload(&d))

	// Plain values are never treated as one payload.
	x, y := New(7), New(7)
	assert.False(t, x.SharesPayload(&y))

	var zero Aliased[*payload]
	assert.False(t, zero.SharesPayload(&a))
}
