package post

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

var (
	ErrTitleRequired = errors.New("title is required")
	ErrTagRequired   = errors.New("tag is required")
	ErrNotFound      = errors.New("post not found")
)

// Catalog is the read-only remote source of published posts.
type Catalog interface {
	Summaries(ctx context.Context) ([]Post, error)
	Body(ctx context.Context, slug string) (string, error)
}

// Repository owns the merged collection: local overlay posts first (most
// recent save first), then remote posts in catalog order. Mutations write
// through to the overlay and the in-memory collection together. The
// repository performs no authorization; gating mutations is the caller's
// concern.
type Repository struct {
	mu      sync.RWMutex
	overlay *Overlay
	catalog Catalog
	posts   []Post
}

func NewRepository(overlay *Overlay, catalog Catalog) *Repository {
	return &Repository{
		overlay: overlay,
		catalog: catalog,
		posts:   overlay.Local(),
	}
}

// Load fetches the catalog summaries and each post's body, then commits
// local ++ remote as one step. An unreachable catalog falls back to the
// local posts alone; a single unreachable body leaves that post listed
// with no content. Partial results are never made visible.
func (r *Repository) Load(ctx context.Context) {
	local := r.overlay.Local()

	if r.catalog == nil {
		r.commit(local)
		return
	}
	summaries, err := r.catalog.Summaries(ctx)
	if err != nil {
		slog.Warn("catalog unreachable, serving local posts only", "err", err)
		r.commit(local)
		return
	}

	remote := make([]Post, len(summaries))
	copy(remote, summaries)

	var wg sync.WaitGroup
	for i := range remote {
		wg.Add(1)
		go func(p *Post) {
			defer wg.Done()
			body, err := r.catalog.Body(ctx, p.Slug)
			if err != nil {
				slog.Warn("post body unreachable", "slug", p.Slug, "err", err)
				return
			}
			p.Content = &body
		}(&remote[i])
	}
	wg.Wait()

	r.commit(append(local, remote...))
}

func (r *Repository) commit(posts []Post) {
	r.mu.Lock()
	r.posts = posts
	r.mu.Unlock()
}

func (r *Repository) All() []Post {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Post, len(r.posts))
	copy(out, r.posts)
	return out
}

func (r *Repository) Get(slug string) (Post, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.posts {
		if p.Slug == slug {
			return p, true
		}
	}
	return Post{}, false
}

// Create validates, stamps, and prepends a new local post.
func (r *Repository) Create(title, tag, markdown string) (Post, error) {
	if err := validate(title, tag); err != nil {
		return Post{}, err
	}
	now := time.Now()
	content := markdown
	p := Post{
		Slug:    NewSlug(now),
		Title:   title,
		Tag:     tag,
		Date:    FormatDate(now),
		Content: &content,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.overlay.SaveLocal(append([]Post{p}, r.overlay.Local()...)); err != nil {
		return Post{}, err
	}
	r.posts = append([]Post{p}, r.posts...)
	return p, nil
}

// Update replaces the post identified by slug, re-stamping its date. When
// slug names a remote-only post the replacement is still written to the
// overlay, shadowing the published post until the entry is removed; the
// returned flag reports that case so callers can mention it. The original
// will reappear on the next full load once the shadow is deleted.
func (r *Repository) Update(slug, title, tag, markdown string) (Post, bool, error) {
	if err := validate(title, tag); err != nil {
		return Post{}, false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.posts {
		if p.Slug == slug {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Post{}, false, ErrNotFound
	}

	content := markdown
	p := Post{
		Slug:    slug,
		Title:   title,
		Tag:     tag,
		Date:    FormatDate(time.Now()),
		Content: &content,
	}

	local := r.overlay.Local()
	shadowed := true
	for i := range local {
		if local[i].Slug == slug {
			local[i] = p
			shadowed = false
			break
		}
	}
	if shadowed {
		local = append([]Post{p}, local...)
	}
	if err := r.overlay.SaveLocal(local); err != nil {
		return Post{}, false, err
	}

	r.posts[idx] = p
	return p, shadowed, nil
}

// Delete removes slug from the overlay (no-op when absent) and from the
// in-memory collection regardless of origin. A deleted remote post is only
// hidden from the current view; the next load brings it back.
func (r *Repository) Delete(slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	local := r.overlay.Local()
	kept := local[:0]
	for _, p := range local {
		if p.Slug != slug {
			kept = append(kept, p)
		}
	}
	if len(kept) != len(local) {
		if err := r.overlay.SaveLocal(kept); err != nil {
			return err
		}
	}

	posts := r.posts[:0]
	for _, p := range r.posts {
		if p.Slug != slug {
			posts = append(posts, p)
		}
	}
	r.posts = posts
	return nil
}

func validate(title, tag string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(tag) == "" {
		return ErrTagRequired
	}
	return nil
}
