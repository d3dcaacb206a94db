package post

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"gblog/internal/store"
)

const localPostsKey = "local_posts"

// Overlay persists the author's local posts as one JSON value in the
// key/value store. A missing or unparsable value degrades to an empty
// list; local data is low-stakes and must never break the load path.
type Overlay struct {
	store *store.Store
}

func NewOverlay(s *store.Store) *Overlay {
	return &Overlay{store: s}
}

func (o *Overlay) Local() []Post {
	raw, ok := o.store.Get(localPostsKey)
	if !ok {
		return []Post{}
	}
	var posts []Post
	if err := json.Unmarshal([]byte(raw), &posts); err != nil {
		slog.Warn("local posts unreadable, starting empty", "err", err)
		return []Post{}
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts
}

func (o *Overlay) SaveLocal(posts []Post) error {
	raw, err := json.Marshal(posts)
	if err != nil {
		return fmt.Errorf("encode local posts: %w", err)
	}
	if err := o.store.Set(localPostsKey, string(raw)); err != nil {
		return fmt.Errorf("save local posts: %w", err)
	}
	return nil
}
