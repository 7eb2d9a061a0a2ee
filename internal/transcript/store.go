// Package transcript holds the per-source word-timing store. Transcription
// runs once per source video; every segment render reads the same cached
// sequence, so the store is populate-once / read-many and safe for
// concurrent readers.
package transcript

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	gocache "github.com/patrickmn/go-cache"

	"github.com/supoclip/supoclip/internal/types"
)

type Store struct {
	mem *gocache.Cache
	dir string
}

// NewStore keeps entries in process memory and mirrors them as JSON under
// dir so repeat runs against the same source skip transcription entirely.
func NewStore(dir string) *Store {
	return &Store{
		mem: gocache.New(gocache.NoExpiration, 0),
		dir: dir,
	}
}

// Key derives a stable cache key from the file's identity: path plus size
// and mtime, so a re-downloaded or edited source re-transcribes.
func Key(path string) string {
	seed := path
	if fi, err := os.Stat(path); err == nil {
		seed = fmt.Sprintf("%s|%d|%d", path, fi.Size(), fi.ModTime().UnixNano())
	}
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:16]
}

func (s *Store) Get(key string) ([]types.WordTiming, bool) {
	if v, ok := s.mem.Get(key); ok {
		return v.([]types.WordTiming), true
	}
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, false
	}
	var words []types.WordTiming
	if err := json.Unmarshal(b, &words); err != nil {
		return nil, false
	}
	s.mem.Set(key, words, gocache.NoExpiration)
	return words, true
}

func (s *Store) Put(key string, words []types.WordTiming) error {
	s.mem.Set(key, words, gocache.NoExpiration)
	b, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("marshal word timings: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path(key), b, 0o644)
}

// GetOrFill returns the cached sequence for key, invoking fill exactly
// once on a miss. A fill error is returned without caching so a later
// attempt can retry.
func (s *Store) GetOrFill(ctx context.Context, key string, fill func(ctx context.Context) ([]types.WordTiming, error)) ([]types.WordTiming, error) {
	if words, ok := s.Get(key); ok {
		return words, nil
	}
	words, err := fill(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Put(key, words); err != nil {
		return nil, err
	}
	return words, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, "words-"+key+".json")
}
