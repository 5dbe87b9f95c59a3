// services/flickering/internal/infrastructure/filestore.go
package infrastructure

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Entries carry a fixed-width unix expiry header before the payload.
const (
	expiryWidth = 10
	neverExpire = 9999999999
)

// FileStore is a filesystem-backed cache. Each key lives in its own file at
// <dir>/<h[0:2]>/<h[2:4]>/<h> where h is the SHA-1 of the key.
type FileStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileStore creates the cache directory when needed.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := ensureDir(fs, dir); err != nil {
		return nil, fmt.Errorf("cache directory unavailable: %w", err)
	}
	return &FileStore{fs: fs, dir: dir, now: time.Now}, nil
}

// Dir returns the cache root directory.
func (s *FileStore) Dir() string { return s.dir }

// Get retrieves a value; expired entries are removed and reported as misses.
func (s *FileStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := s.path(key)
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrCacheMiss
		}
		return "", fmt.Errorf("failed to read cache entry: %w", err)
	}

	value, ok := s.decode(data)
	if !ok {
		s.removeStale(path, data)
		return "", ErrCacheMiss
	}
	return value, nil
}

// decode returns the payload of an unexpired entry.
func (s *FileStore) decode(data []byte) (string, bool) {
	if len(data) < expiryWidth {
		return "", false
	}
	expiry, err := strconv.ParseInt(string(data[:expiryWidth]), 10, 64)
	if err != nil || s.now().Unix() >= expiry {
		return "", false
	}
	return string(data[expiryWidth:]), true
}

// Set writes the entry through a temporary file and renames it into place.
func (s *FileStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	expiry := int64(neverExpire)
	if ttl > 0 {
		expiry = expiryFor(s.now(), ttl)
	}

	path := s.path(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tempPath := path + ".tmp"
	payload := fmt.Sprintf("%0*d%s", expiryWidth, expiry, value)
	if err := afero.WriteFile(s.fs, tempPath, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := s.fs.Rename(tempPath, path); err != nil {
		s.fs.Remove(tempPath)
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}
	return nil
}

// Delete removes a value; deleting a missing key is not an error.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Exists reports whether key holds an unexpired value.
func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrCacheMiss):
		return false, nil
	default:
		return false, err
	}
}

// Flush removes every entry but keeps the cache directory itself.
func (s *FileStore) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return fmt.Errorf("failed to list cache directory: %w", err)
	}
	for _, entry := range entries {
		if err := s.fs.RemoveAll(filepath.Join(s.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to flush cache: %w", err)
		}
	}
	return nil
}

// Close is a no-op; files are not held open between calls.
func (s *FileStore) Close() error { return nil }

// expiryFor rounds now+ttl up to the next whole second so a sub-second TTL
// still yields a readable entry.
func expiryFor(now time.Time, ttl time.Duration) int64 {
	if ttl >= time.Duration(neverExpire-now.Unix())*time.Second {
		return neverExpire
	}
	deadline := now.Add(ttl)
	expiry := deadline.Unix()
	if deadline.Nanosecond() > 0 {
		expiry++
	}
	if expiry > neverExpire {
		expiry = neverExpire
	}
	return expiry
}

func (s *FileStore) path(key string) string {
	sum := sha1.Sum([]byte(key))
	h := hex.EncodeToString(sum[:])
	return filepath.Join(s.dir, h[0:2], h[2:4], h)
}

// removeStale deletes path only if it still holds the bytes Get judged
// unusable. An entry renamed into place by a concurrent Set is kept.
func (s *FileStore) removeStale(path string, seen []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := afero.ReadFile(s.fs, path)
	if err != nil || !bytes.Equal(current, seen) {
		return
	}
	s.fs.Remove(path)
}
