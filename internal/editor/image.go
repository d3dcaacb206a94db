package editor

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// Item is one entry of a drop or clipboard payload: declared media type
// plus raw bytes.
type Item struct {
	Type string
	Data []byte
}

func (it Item) isImage() bool {
	return strings.HasPrefix(it.mediaType(), "image/")
}

func (it Item) mediaType() string {
	if it.Type != "" {
		return it.Type
	}
	return http.DetectContentType(it.Data)
}

// DataURI encodes an image as a self-contained base64 data URI suitable
// for a markdown image reference.
func DataURI(it Item) string {
	return "data:" + it.mediaType() + ";base64," + base64.StdEncoding.EncodeToString(it.Data)
}

func imageRef(it Item) string {
	return "![image](" + DataURI(it) + ")"
}

// AppendImage handles drop and file-pick embedding: the image reference
// is appended after the current text with surrounding blank lines.
// Non-image payloads are ignored.
func (b *Buffer) AppendImage(it Item) bool {
	if !it.isImage() {
		return false
	}
	b.Markdown += "\n\n" + imageRef(it) + "\n"
	return true
}

// PasteImage handles clipboard embedding: the first image item is spliced
// in at the caret, replacing the [selStart, selEnd) selection. When the
// payload carries no image the paste is not intercepted and the caller
// lets default text pasting proceed.
func (b *Buffer) PasteImage(items []Item, selStart, selEnd int) bool {
	var img *Item
	for i := range items {
		if items[i].isImage() {
			img = &items[i]
			break
		}
	}
	if img == nil {
		return false
	}

	text := b.Markdown
	selStart, selEnd = clampRange(selStart, selEnd, len(text))
	b.Markdown = text[:selStart] + imageRef(*img) + text[selEnd:]
	return true
}

func clampRange(start, end, max int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > max {
		start = max
	}
	if end < start {
		end = start
	}
	if end > max {
		end = max
	}
	return start, end
}
