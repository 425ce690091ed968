// Package media renders audio and video references as embeddable HTML
// fragments for stream blocks.
package media

import (
	"fmt"
	"html/template"
	"path"
	"strings"
)

// Type is the media kind tag carried by a media block.
type Type string

// Media type constants
const (
	TypeVideo Type = "video"
	TypeAudio Type = "audio"
)

// Reference points at a playable file. It is supplied at render time and
// never stored by this package.
type Reference struct {
	Type    Type   `json:"type" yaml:"type"`
	FileURL string `json:"file_url" yaml:"file_url"`
}

// Extension returns the lowercased extension of the last path segment of
// the reference URL, without the leading dot. Empty when there is none.
func (r Reference) Extension() string {
	return Extension(r.FileURL)
}

// Extension returns the lowercased extension of the last path segment of
// fileURL, without the leading dot.
func Extension(fileURL string) string {
	ext := path.Ext(path.Base(fileURL))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

const videoFragment = `<video controls>` +
	`<source src="%s" type="video/mp4">` +
	`Your browser does not support the video tag.` +
	`</video>`

const audioFragment = `<audio controls>` +
	`<source src="%s" type="audio/%s">` +
	`Your browser does not support the audio element.` +
	`</audio>`

// Render returns the player markup for ref. A nil reference renders as an
// empty fragment. Anything that is not video is played as audio, with the
// mime subtype taken from the file extension.
func Render(ref *Reference) template.HTML {
	if ref == nil {
		return ""
	}

	src := template.HTMLEscapeString(ref.FileURL)
	if ref.Type == TypeVideo {
		return template.HTML(fmt.Sprintf(videoFragment, src))
	}
	return template.HTML(fmt.Sprintf(audioFragment, src, template.HTMLEscapeString(ref.Extension())))
}
