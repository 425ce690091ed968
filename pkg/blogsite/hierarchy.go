package blogsite

import (
	"fmt"

	"github.com/tendant/materialize-demo/pkg/blogsite/blocks"
)

// SubpageTypes returns the page types that may be created below t.
func (t PageType) SubpageTypes() []PageType {
	if t == PageTypeBloggerHome {
		return []PageType{PageTypeBlog, PageTypeParallax, PageTypeDynamicParallax}
	}
	return nil
}

// ParentPageTypes returns the page types t may be created below. A nil
// result means t may only be a root page.
func (t PageType) ParentPageTypes() []PageType {
	if t.IsPost() {
		return []PageType{PageTypeBloggerHome}
	}
	return nil
}

// AllowedBlocks returns the block kinds permitted in the body of t. Home
// pages have no body.
func (t PageType) AllowedBlocks() []blocks.Kind {
	if !t.IsPost() {
		return nil
	}

	kinds := blocks.Headings(blocks.KindH1, blocks.KindH2)
	kinds = append(kinds, blocks.KindParagraph)
	if t == PageTypeDynamicParallax {
		kinds = append(kinds, blocks.KindParallax)
	}
	kinds = append(kinds, blocks.KindCollection, blocks.KindGallery)
	return append(kinds, blocks.Components()...)
}

// CanCreateAt reports whether a page of type child may be placed below
// parent. A nil parent means the root of the tree.
func CanCreateAt(parent *Page, child PageType) error {
	if !child.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPageType, child)
	}

	if parent == nil {
		if child.ParentPageTypes() != nil {
			return fmt.Errorf("%w: %s pages must be created below a %s page", ErrInvalidParent, child, PageTypeBloggerHome)
		}
		return nil
	}

	for _, allowed := range parent.Type.SubpageTypes() {
		if allowed == child {
			return nil
		}
	}
	return fmt.Errorf("%w: %s pages cannot be created below %s pages", ErrInvalidParent, child, parent.Type)
}
