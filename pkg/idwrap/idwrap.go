package idwrap

import (
	"github.com/oklog/ulid/v2"
)

// IDWrap hides the underlying ULID so callers never depend on its encoding.
type IDWrap struct {
	ulid ulid.ULID
}

func New(id ulid.ULID) IDWrap {
	return IDWrap{ulid: id}
}

func NewNow() IDWrap {
	return IDWrap{ulid: ulid.Make()}
}

func NewText(ulidString string) (IDWrap, error) {
	id, err := ulid.Parse(ulidString)
	if err != nil {
		return IDWrap{}, err
	}
	return IDWrap{ulid: id}, nil
}

func NewTextMust(ulidString string) IDWrap {
	id, err := ulid.Parse(ulidString)
	if err != nil {
		panic(err)
	}
	return IDWrap{ulid: id}
}

func (u IDWrap) String() string {
	return u.ulid.String()
}

func (u IDWrap) Compare(other IDWrap) int {
	return u.ulid.Compare(other.ulid)
}

func (u IDWrap) Bytes() []byte {
	return u.ulid.Bytes()
}
