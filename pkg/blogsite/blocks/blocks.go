// Package blocks defines the streamable content blocks that make up page
// bodies: headings, rich text, collections, carousels, parallax images and
// the reusable components (cards, links, media players, markdown).
//
// A Stream is stored as its JSON list form, one {type, value, id} object per
// block, so bodies round-trip through any repository unchanged.
package blocks

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind names a block type within a stream.
type Kind string

// Block kinds
const (
	KindH1         Kind = "h1"
	KindH2         Kind = "h2"
	KindH3         Kind = "h3"
	KindH4         Kind = "h4"
	KindH5         Kind = "h5"
	KindH6         Kind = "h6"
	KindParagraph  Kind = "paragraph"
	KindCollection Kind = "collection"
	KindGallery    Kind = "gallery"
	KindParallax   Kind = "parallax"
	KindCard       Kind = "card"
	KindLink       Kind = "link"
	KindMedia      Kind = "media"
	KindMarkdown   Kind = "markdown"
)

// ErrInvalidBlock indicates a block that cannot be decoded or is not
// permitted where it appears.
var ErrInvalidBlock = errors.New("invalid block")

// BlockError reports the position and kind of an offending block.
type BlockError struct {
	Index int
	Type  Kind
	Err   error
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

// Block is one entry of a stream.
type Block struct {
	ID    string          `json:"id,omitempty"`
	Type  Kind            `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Stream is an ordered list of blocks.
type Stream []Block

// NewBlock encodes value as a block of the given kind.
func NewBlock(kind Kind, value interface{}) (Block, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Block{}, fmt.Errorf("failed to encode %s block: %w", kind, err)
	}
	return Block{ID: uuid.NewString(), Type: kind, Value: raw}, nil
}

// MustBlock is like NewBlock but panics on encoding errors. Intended for
// fixtures and tests.
func MustBlock(kind Kind, value interface{}) Block {
	b, err := NewBlock(kind, value)
	if err != nil {
		panic(err)
	}
	return b
}

// Headings returns the heading kinds h1..h6 minus any excluded ones.
func Headings(exclude ...Kind) []Kind {
	all := []Kind{KindH1, KindH2, KindH3, KindH4, KindH5, KindH6}
	var kinds []Kind
	for _, k := range all {
		if !containsKind(exclude, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Components returns the reusable component kinds available to every body.
func Components() []Kind {
	return []Kind{KindCard, KindLink, KindMedia, KindMarkdown}
}

// IsHeading reports whether k is one of h1..h6.
func (k Kind) IsHeading() bool {
	switch k {
	case KindH1, KindH2, KindH3, KindH4, KindH5, KindH6:
		return true
	}
	return false
}

// Level returns the heading level of k, or 0 for non-heading kinds.
func (k Kind) Level() int {
	if !k.IsHeading() {
		return 0
	}
	return int(k[1] - '0')
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}
