package techniques

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	json "github.com/json-iterator/go"
)

// Cache memoizes sentence similarities and holds words to skip when
// tokenizing. It is safe for concurrent use and shared between run cases.
type Cache struct {
	mu        sync.RWMutex
	path      string
	sentences map[[2]string]float64
	skipWords map[string]struct{}
	dirty     bool
}

// cacheFile is the persisted form of a Cache.
type cacheFile struct {
	Sentences []sentenceEntry `json:"sentences"`
	SkipWords []string        `json:"skip_words"`
}

type sentenceEntry struct {
	A     string  `json:"a"`
	B     string  `json:"b"`
	Score float64 `json:"score"`
}

// NewCache creates an in-memory cache that is never persisted.
func NewCache() *Cache {
	return &Cache{
		sentences: make(map[[2]string]float64),
		skipWords: make(map[string]struct{}),
	}
}

// LoadCache reads the cache stored at path. A missing file yields an empty
// cache that Flush will create.
func LoadCache(path string) (*Cache, error) {
	c := NewCache()
	c.path = path
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read similarity cache: %w", err)
	}
	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("similarity cache broken: %s: %w", path, err)
	}
	for _, e := range file.Sentences {
		c.sentences[pairKey(e.A, e.B)] = e.Score
	}
	for _, w := range file.SkipWords {
		c.skipWords[w] = struct{}{}
	}
	return c, nil
}

// pairKey orders the texts so that (a, b) and (b, a) share one entry.
func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// Similarity returns the memoized similarity of two texts.
func (c *Cache) Similarity(a, b string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.sentences[pairKey(a, b)]
	return v, ok
}

// PutSimilarity memoizes the similarity of two texts.
func (c *Cache) PutSimilarity(a, b string, score float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := pairKey(a, b)
	if old, ok := c.sentences[key]; ok && old == score {
		return
	}
	c.sentences[key] = score
	c.dirty = true
}

// Skip reports whether word is excluded from tokenization.
func (c *Cache) Skip(word string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.skipWords[word]
	return ok
}

// AddSkipWords excludes words from tokenization. Similarities memoized so
// far were computed without the new words and are dropped.
func (c *Cache) AddSkipWords(words ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	added := false
	for _, w := range words {
		if _, ok := c.skipWords[w]; !ok {
			c.skipWords[w] = struct{}{}
			added = true
		}
	}
	if added {
		c.sentences = make(map[[2]string]float64)
		c.dirty = true
	}
}

// Len returns the number of memoized similarities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sentences)
}

// Flush persists the cache if it changed since it was loaded. In-memory
// caches are never written.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty || c.path == "" {
		return nil
	}

	file := cacheFile{
		Sentences: make([]sentenceEntry, 0, len(c.sentences)),
		SkipWords: make([]string, 0, len(c.skipWords)),
	}
	for key, score := range c.sentences {
		file.Sentences = append(file.Sentences, sentenceEntry{A: key[0], B: key[1], Score: score})
	}
	sort.Slice(file.Sentences, func(i, j int) bool {
		if file.Sentences[i].A != file.Sentences[j].A {
			return file.Sentences[i].A < file.Sentences[j].A
		}
		return file.Sentences[i].B < file.Sentences[j].B
	})
	for w := range c.skipWords {
		file.SkipWords = append(file.SkipWords, w)
	}
	sort.Strings(file.SkipWords)

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode similarity cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write similarity cache: %w", err)
	}
	c.dirty = false
	return nil
}
