package hashing

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"library-indexer/internal/filesystem"
	"library-indexer/internal/logging"
	"library-indexer/internal/metrics"
)

// DefaultCacheSize is the number of hash results kept in memory. Each
// entry is a short struct plus a 32-byte hex digest, so even a large
// cache stays cheap.
const DefaultCacheSize = 16384

// cacheKey identifies one observed file state. Any change to size or
// modification time invalidates the memoized digest.
type cacheKey struct {
	path  string
	size  int64
	mtime int64
}

// Service computes MD5 content digests of library files, memoizing
// results by (path, size, mtime) so repeated reconciliation passes do
// not re-read unchanged files.
type Service struct {
	cache *lru.Cache[cacheKey, string]
}

// NewService creates a hashing service with a cache of the given size.
// A size of zero or less uses DefaultCacheSize.
func NewService(cacheSize int) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[cacheKey, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{cache: cache}, nil
}

// HashFile returns the hex MD5 digest of the file at path, serving it
// from the memo cache when the file's size and mtime match a previous
// computation.
func (s *Service) HashFile(path string) (string, error) {
	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		metrics.HashOperations.WithLabelValues("error").Inc()
		return "", err
	}

	key := cacheKey{path: path, size: info.Size(), mtime: info.ModTime().UnixNano()}
	if digest, ok := s.cache.Get(key); ok {
		metrics.HashOperations.WithLabelValues("cached").Inc()
		return digest, nil
	}

	digest, err := hashFile(path)
	if err != nil {
		return "", err
	}
	s.cache.Add(key, digest)
	return digest, nil
}

// HashFileUncached computes the digest directly from disk, bypassing
// and not populating the memo cache. Integrity verification uses this
// so a stale cache entry can never mask on-disk corruption.
func (s *Service) HashFileUncached(path string) (string, error) {
	return hashFile(path)
}

// CacheLen reports the number of memoized digests.
func (s *Service) CacheLen() int {
	return s.cache.Len()
}

// Purge drops all memoized digests.
func (s *Service) Purge() {
	s.cache.Purge()
}

func hashFile(path string) (string, error) {
	start := time.Now()

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		metrics.HashOperations.WithLabelValues("error").Inc()
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		metrics.HashOperations.WithLabelValues("error").Inc()
		logging.Warn("Failed to hash %s: %v", path, err)
		return "", err
	}

	metrics.HashOperations.WithLabelValues("success").Inc()
	metrics.HashDuration.Observe(time.Since(start).Seconds())
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsNotExist reports whether err means the file has disappeared from
// disk, which reconciliation treats as a removal rather than a failure.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
