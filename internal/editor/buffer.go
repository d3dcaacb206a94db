// Package editor holds the in-progress state of a post being written or
// edited, including the image-embedding side effects of drop, paste, and
// file-pick events.
package editor

import (
	"gblog/internal/post"
)

const DefaultMarkdown = "# New Blog\n\nWrite here..."

// Buffer is transient authoring state; nothing is persisted until Save.
// EditingSlug is empty for a new post and holds the target slug during an
// edit.
type Buffer struct {
	Title       string
	Tag         string
	Markdown    string
	EditingSlug string

	defaultTag string
}

// NewBuffer starts in new-post mode with the fixed defaults.
func NewBuffer(defaultTag string) *Buffer {
	b := &Buffer{defaultTag: defaultTag}
	b.Reset()
	return b
}

func (b *Buffer) Reset() {
	b.Title = ""
	b.Tag = b.defaultTag
	b.Markdown = DefaultMarkdown
	b.EditingSlug = ""
}

// Edit preloads the buffer from an existing post.
func (b *Buffer) Edit(p post.Post) {
	b.Title = p.Title
	b.Tag = p.Tag
	b.Markdown = p.Body()
	b.EditingSlug = p.Slug
}

// Save validates and writes the buffer through the repository, creating
// or updating depending on mode. On success the buffer resets to new-post
// defaults; on failure it is left untouched so the author can correct and
// retry. The shadowed flag reports an update that shadowed a remote-only
// post.
func (b *Buffer) Save(repo *post.Repository) (post.Post, bool, error) {
	var (
		saved    post.Post
		shadowed bool
		err      error
	)
	if b.EditingSlug != "" {
		saved, shadowed, err = repo.Update(b.EditingSlug, b.Title, b.Tag, b.Markdown)
	} else {
		saved, err = repo.Create(b.Title, b.Tag, b.Markdown)
	}
	if err != nil {
		return post.Post{}, false, err
	}
	b.Reset()
	return saved, shadowed, nil
}
