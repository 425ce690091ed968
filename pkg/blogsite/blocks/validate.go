package blocks

import (
	"fmt"

	"github.com/google/uuid"
)

// Validate checks that every block in s is one of the allowed kinds and
// carries a well-formed value. Blocks without an id are assigned one; the
// returned stream is a copy.
func Validate(s Stream, allowed []Kind) (Stream, error) {
	out := make(Stream, len(s))
	for i, b := range s {
		if !containsKind(allowed, b.Type) {
			return nil, &BlockError{Index: i, Type: b.Type, Err: fmt.Errorf("%w: block type not allowed here", ErrInvalidBlock)}
		}

		v, err := b.Decode()
		if err != nil {
			return nil, &BlockError{Index: i, Type: b.Type, Err: err}
		}
		if err := checkValue(v); err != nil {
			return nil, &BlockError{Index: i, Type: b.Type, Err: fmt.Errorf("%w: %v", ErrInvalidBlock, err)}
		}

		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		out[i] = b
	}
	return out, nil
}

// ImageIDs returns every image referenced by the stream, in block order.
func (s Stream) ImageIDs() []uuid.UUID {
	var ids []uuid.UUID
	for _, b := range s {
		v, err := b.Decode()
		if err != nil {
			continue
		}
		switch val := v.(type) {
		case Gallery:
			ids = append(ids, val.Images...)
		case Parallax:
			ids = append(ids, val.Image)
		case Card:
			if val.Image != nil {
				ids = append(ids, *val.Image)
			}
		}
	}
	return ids
}
