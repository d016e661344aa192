// Package cache stores trained tokenizers keyed by the exact training input,
// so re-running `bpetok train` on an unchanged corpus skips the merge loop.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/punjabi-nlp/bpetok/internal/bytestream"
	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
)

// Ext is the file extension of cache entries.
const Ext = ".bpe"

// Cache provides caching for trained tokenizers
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory.
// An empty dir disables the cache.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// CacheKey generates a unique cache key for a training run.
// The key is based on:
// - the text actually trained on (corpus after sampling)
// - the vocabulary budget
// - the artifact format version
func CacheKey(corpus string, opts bpe.TrainOptions) (string, error) {
	h := sha256.New()

	if err := writeString(h, bytestream.Prefix(corpus, opts.SampleSize)); err != nil {
		return "", err
	}
	if err := writeInt(h, opts.MaxVocabSize); err != nil {
		return "", err
	}
	if err := writeInt(h, bpe.ArtifactVersion); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached tokenizer if it exists
func (c *Cache) Get(key string) (*bpe.Tokenizer, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		// Cache miss
		return nil, false
	}

	tok, err := bpe.Unmarshal(data)
	if err != nil {
		// Invalid cache entry, treat as miss
		slog.Debug("ignoring unreadable cache entry", "key", key, "error", err)
		return nil, false
	}

	return tok, true
}

// Put stores a tokenizer in the cache
func (c *Cache) Put(key string, tok *bpe.Tokenizer) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := tok.Save(c.cachePath(key)); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes all cached tokenizers
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Safety check: only delete directories that hold nothing but cache entries
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	if len(entries) > 0 {
		hasValidCache := false
		for _, entry := range entries {
			if entry.IsDir() {
				return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
			}
			if filepath.Ext(entry.Name()) == Ext {
				hasValidCache = true
			} else {
				return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
			}
		}
		if !hasValidCache {
			return fmt.Errorf("no valid cache files found in directory - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+Ext)
}

func writeString(w io.Writer, s string) error {
	// Write string with null byte delimiter to prevent hash collisions
	_, err := w.Write([]byte(s + "\x00"))
	return err
}

func writeInt(w io.Writer, i int) error {
	_, err := fmt.Fprintf(w, "%d\x00", i)
	return err
}
