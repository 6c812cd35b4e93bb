package identifiers

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-recurring-orders/internal/apperr"
)

func TestEncodeDecode(t *testing.T) {
	c := NewCodec("test-salt")

	ref, err := c.Encode(KindOrder, 42)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(ref), minLength)

	id, err := c.Decode(KindOrder, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestDecodeWrongKind(t *testing.T) {
	c := NewCodec("test-salt")

	ref, err := c.Encode(KindOrder, 42)
	require.NoError(t, err)

	id, err := c.Decode(KindPaymentMethod, ref)
	if err == nil {
		assert.NotEqual(t, int64(42), id)
		return
	}
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestDecodeGarbage(t *testing.T) {
	c := NewCodec("test-salt")

	for _, ref := range []string{"", "!!!", "ABCDEF"} {
		_, err := c.Decode(KindOrder, ref)
		assert.True(t, errors.Is(err, apperr.ErrNotFound), "ref %q", ref)
	}
}
