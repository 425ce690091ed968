// Package objectkey builds storage keys for uploaded image files.
package objectkey

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Prefix is the top-level directory for original image uploads.
const Prefix = "original_images"

// ShardLength is how many leading id characters form the shard directory.
const ShardLength = 2

// Generate returns a git-style sharded key for an image:
// original_images/ab/cdef0123..._file_name.jpg
func Generate(imageID uuid.UUID, fileName string) string {
	idStr := strings.ReplaceAll(imageID.String(), "-", "")
	shard, remaining := idStr[:ShardLength], idStr[ShardLength:]

	name := remaining
	if fileName != "" {
		name = fmt.Sprintf("%s_%s", remaining, sanitizeFilename(fileName))
	}
	return fmt.Sprintf("%s/%s/%s", Prefix, shard, name)
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
	"#", "_",
	"%", "_",
)

// latinFolds maps accented Latin letters to their ASCII base letter.
var latinFolds = []struct {
	lo, hi rune
	ascii  rune
}{
	{'\u00c0', '\u00c5', 'A'},
	{'\u00e0', '\u00e5', 'a'},
	{'\u00c7', '\u00c7', 'C'},
	{'\u00e7', '\u00e7', 'c'},
	{'\u00c8', '\u00cb', 'E'},
	{'\u00e8', '\u00eb', 'e'},
	{'\u00cc', '\u00cf', 'I'},
	{'\u00ec', '\u00ef', 'i'},
	{'\u00d1', '\u00d1', 'N'},
	{'\u00f1', '\u00f1', 'n'},
	{'\u00d2', '\u00d6', 'O'},
	{'\u00f2', '\u00f6', 'o'},
	{'\u00d9', '\u00dc', 'U'},
	{'\u00f9', '\u00fc', 'u'},
}

// toASCII keeps printable ASCII, folds accented Latin letters and turns
// anything else into '-', so keys stay safe for every backend.
func toASCII(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 128 && unicode.IsPrint(r) {
			return r
		}
		for _, f := range latinFolds {
			if r >= f.lo && r <= f.hi {
				return f.ascii
			}
		}
		return '-'
	}, name)
}

func sanitizeFilename(filename string) string {
	return filenameReplacer.Replace(toASCII(filename))
}
