package texture

import (
	"fmt"
	"log"
	"sync"

	"voxrender/pkg/volume"
)

// cacheKey identifies a cached texture by the identity of its data
// source and a caller-chosen tag, so independent consumers of the same
// volume can share or isolate textures as they see fit.
type cacheKey struct {
	source any
	tag    string
}

// Cache hands out shared texture instances. For a given (source, tag)
// pair at most one texture ever exists at a time: the first request
// creates it, later requests return the same instance, and Release
// destroys it and forgets the key. The cache is safe for concurrent
// use.
type Cache struct {
	backend Backend

	mu         sync.Mutex
	images     map[cacheKey]*ImageTexture
	selections map[cacheKey]*SelectionTexture
}

// NewCache returns an empty cache creating textures on the given
// backend.
func NewCache(backend Backend) *Cache {
	return &Cache{
		backend:    backend,
		images:     make(map[cacheKey]*ImageTexture),
		selections: make(map[cacheKey]*SelectionTexture),
	}
}

// ImageTexture returns the texture cached under (vol, tag), creating
// it with opts on first request. On a cache hit opts is ignored: the
// existing texture keeps the configuration it was created with.
func (c *Cache) ImageTexture(vol *volume.Volume, tag string, opts ImageTextureOptions) (*ImageTexture, error) {
	key := cacheKey{source: vol, tag: tag}

	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.images[key]; ok {
		log.Printf("reusing image texture %d for %q", t.ID(), tag)
		return t, nil
	}

	t, err := NewImageTexture(c.backend, vol, tag, opts)
	if err != nil {
		return nil, fmt.Errorf("creating image texture %q: %w", tag, err)
	}
	c.images[key] = t
	return t, nil
}

// SelectionTexture returns the texture cached under (sel, tag),
// creating it on first request.
func (c *Cache) SelectionTexture(sel *volume.Selection, tag string) (*SelectionTexture, error) {
	key := cacheKey{source: sel, tag: tag}

	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.selections[key]; ok {
		log.Printf("reusing selection texture %d for %q", t.ID(), tag)
		return t, nil
	}

	t, err := NewSelectionTexture(c.backend, sel, tag)
	if err != nil {
		return nil, fmt.Errorf("creating selection texture %q: %w", tag, err)
	}
	c.selections[key] = t
	return t, nil
}

// ReleaseImage destroys the texture cached under (vol, tag) and
// removes it from the cache. Releasing an unknown key is a no-op, so a
// subsequent request under the same key creates a fresh texture.
func (c *Cache) ReleaseImage(vol *volume.Volume, tag string) {
	key := cacheKey{source: vol, tag: tag}

	c.mu.Lock()
	t, ok := c.images[key]
	delete(c.images, key)
	c.mu.Unlock()

	if ok {
		t.Destroy()
	}
}

// ReleaseSelection destroys the texture cached under (sel, tag) and
// removes it from the cache.
func (c *Cache) ReleaseSelection(sel *volume.Selection, tag string) {
	key := cacheKey{source: sel, tag: tag}

	c.mu.Lock()
	t, ok := c.selections[key]
	delete(c.selections, key)
	c.mu.Unlock()

	if ok {
		t.Destroy()
	}
}

// Clear destroys every cached texture and empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	images := c.images
	selections := c.selections
	c.images = make(map[cacheKey]*ImageTexture)
	c.selections = make(map[cacheKey]*SelectionTexture)
	c.mu.Unlock()

	for _, t := range images {
		t.Destroy()
	}
	for _, t := range selections {
		t.Destroy()
	}
}

// Len returns the number of cached textures.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images) + len(c.selections)
}
