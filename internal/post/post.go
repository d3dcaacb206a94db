// Package post holds the blog's central entity and the repository that
// reconciles the remote catalog with the locally authored overlay.
package post

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Post is one blog entry. Content is nil while a remote post's body has
// not been fetched (or the fetch failed); such posts stay listed and
// render as an empty body.
type Post struct {
	Slug    string  `json:"slug"`
	Title   string  `json:"title"`
	Tag     string  `json:"tag"`
	Date    string  `json:"date"`
	Content *string `json:"content,omitempty"`
}

func (p Post) Body() string {
	if p.Content == nil {
		return ""
	}
	return *p.Content
}

// NewSlug builds a locally unique slug. The uuid fragment keeps two posts
// created within the same clock tick from colliding.
func NewSlug(now time.Time) string {
	frag := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("local-%d-%s", now.UnixMilli(), frag)
}

// FormatDate is the display stamp written on local create and update.
func FormatDate(now time.Time) string {
	return now.Format("Jan 2006")
}
