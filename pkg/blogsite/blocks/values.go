package blocks

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/materialize-demo/pkg/blogsite/media"
)

// Heading is the value of an h1..h6 block.
type Heading string

// Paragraph is a rich text (HTML) value.
type Paragraph string

// Markdown is a markdown source value.
type Markdown string

// Link is a labelled URL.
type Link struct {
	Text string `json:"text" yaml:"text"`
	URL  string `json:"url" yaml:"url"`
}

// CollectionItem is one row of a collection.
type CollectionItem struct {
	Title string `json:"title" yaml:"title"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
	Link  string `json:"link,omitempty" yaml:"link,omitempty"`
}

// Collection is a titled list.
type Collection struct {
	Header string           `json:"header,omitempty" yaml:"header,omitempty"`
	Items  []CollectionItem `json:"items" yaml:"items"`
}

// Gallery is a carousel of images.
type Gallery struct {
	Images []uuid.UUID `json:"images" yaml:"images"`
}

// Parallax is a full-width parallax image section.
type Parallax struct {
	Image  uuid.UUID `json:"image" yaml:"image"`
	Height int       `json:"height,omitempty" yaml:"height,omitempty"`
}

// DefaultParallaxHeight is used when a parallax block omits its height.
const DefaultParallaxHeight = 500

// Card is a Materialize card with optional image and action links.
type Card struct {
	Title string     `json:"title" yaml:"title"`
	Text  string     `json:"text,omitempty" yaml:"text,omitempty"`
	Image *uuid.UUID `json:"image,omitempty" yaml:"image,omitempty"`
	Links []Link     `json:"links,omitempty" yaml:"links,omitempty"`
}

// Decode returns the typed value of b: Heading, Paragraph, Markdown, Link,
// Collection, Gallery, Parallax, Card or media.Reference.
func (b Block) Decode() (interface{}, error) {
	var target interface{}
	switch {
	case b.Type.IsHeading():
		target = new(Heading)
	case b.Type == KindParagraph:
		target = new(Paragraph)
	case b.Type == KindMarkdown:
		target = new(Markdown)
	case b.Type == KindLink:
		target = new(Link)
	case b.Type == KindCollection:
		target = new(Collection)
	case b.Type == KindGallery:
		target = new(Gallery)
	case b.Type == KindParallax:
		target = new(Parallax)
	case b.Type == KindCard:
		target = new(Card)
	case b.Type == KindMedia:
		target = new(media.Reference)
	default:
		return nil, fmt.Errorf("%w: unknown block type %q", ErrInvalidBlock, b.Type)
	}

	if err := b.decodeInto(target); err != nil {
		return nil, err
	}

	switch v := target.(type) {
	case *Heading:
		return *v, nil
	case *Paragraph:
		return *v, nil
	case *Markdown:
		return *v, nil
	case *Link:
		return *v, nil
	case *Collection:
		return *v, nil
	case *Gallery:
		return *v, nil
	case *Parallax:
		if v.Height == 0 {
			v.Height = DefaultParallaxHeight
		}
		return *v, nil
	case *Card:
		return *v, nil
	case *media.Reference:
		return *v, nil
	}
	return nil, fmt.Errorf("%w: unknown block type %q", ErrInvalidBlock, b.Type)
}

func (b Block) decodeInto(v interface{}) error {
	if len(b.Value) == 0 {
		return fmt.Errorf("%w: missing value", ErrInvalidBlock)
	}
	if err := json.Unmarshal(b.Value, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBlock, err)
	}
	return nil
}

func checkValue(v interface{}) error {
	switch val := v.(type) {
	case Heading:
		if strings.TrimSpace(string(val)) == "" {
			return errors.New("heading text is required")
		}
	case Paragraph:
		if strings.TrimSpace(string(val)) == "" {
			return errors.New("paragraph text is required")
		}
	case Markdown:
		if strings.TrimSpace(string(val)) == "" {
			return errors.New("markdown source is required")
		}
	case Link:
		return checkLink(val)
	case Collection:
		if len(val.Items) == 0 {
			return errors.New("collection needs at least one item")
		}
		for i, item := range val.Items {
			if strings.TrimSpace(item.Title) == "" {
				return fmt.Errorf("collection item %d: title is required", i)
			}
		}
	case Gallery:
		if len(val.Images) == 0 {
			return errors.New("gallery needs at least one image")
		}
		for i, id := range val.Images {
			if id == uuid.Nil {
				return fmt.Errorf("gallery image %d: id is required", i)
			}
		}
	case Parallax:
		if val.Image == uuid.Nil {
			return errors.New("parallax image is required")
		}
		if val.Height < 0 {
			return errors.New("parallax height must be positive")
		}
	case Card:
		if strings.TrimSpace(val.Title) == "" {
			return errors.New("card title is required")
		}
		for i, l := range val.Links {
			if err := checkLink(l); err != nil {
				return fmt.Errorf("card link %d: %w", i, err)
			}
		}
	case media.Reference:
		if strings.TrimSpace(val.FileURL) == "" {
			return errors.New("media file_url is required")
		}
	}
	return nil
}

func checkLink(l Link) error {
	if strings.TrimSpace(l.Text) == "" {
		return errors.New("link text is required")
	}
	if strings.TrimSpace(l.URL) == "" {
		return errors.New("link url is required")
	}
	if _, err := url.Parse(l.URL); err != nil {
		return fmt.Errorf("link url: %w", err)
	}
	return nil
}
