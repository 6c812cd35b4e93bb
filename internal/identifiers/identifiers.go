package identifiers

import (
	"fmt"
	"sync"

	"github.com/speps/go-hashids/v2"

	"github.com/ariefcatur/go-recurring-orders/internal/apperr"
)

type Kind string

const (
	KindOrder         Kind = "order"
	KindPaymentMethod Kind = "paymentMethod"
	KindAccount       Kind = "account"
	KindActivity      Kind = "activity"
)

const (
	alphabet  = "abcdefghijklmnopqrstuvwxyz1234567890"
	minLength = 32
)

// Codec turns internal numeric ids into opaque public references, with one
// hashids instance per entity kind.
type Codec struct {
	salt string

	mu     sync.Mutex
	byKind map[Kind]*hashids.HashID
}

func NewCodec(salt string) *Codec {
	return &Codec{salt: salt, byKind: map[Kind]*hashids.HashID{}}
}

func (c *Codec) hasher(kind Kind) (*hashids.HashID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.byKind[kind]; ok {
		return h, nil
	}
	hd := hashids.NewData()
	hd.Salt = c.salt + string(kind)
	hd.MinLength = minLength
	hd.Alphabet = alphabet
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, err
	}
	c.byKind[kind] = h
	return h, nil
}

func (c *Codec) Encode(kind Kind, id int64) (string, error) {
	h, err := c.hasher(kind)
	if err != nil {
		return "", err
	}
	return h.EncodeInt64([]int64{id})
}

// Decode resolves a public reference. Malformed references are NotFound:
// they cannot name an existing entity.
func (c *Codec) Decode(kind Kind, ref string) (int64, error) {
	h, err := c.hasher(kind)
	if err != nil {
		return 0, err
	}
	ids, err := h.DecodeInt64WithError(ref)
	if err != nil || len(ids) != 1 || ids[0] <= 0 {
		return 0, apperr.NotFound(fmt.Sprintf("%s not found", kind))
	}
	return ids[0], nil
}
