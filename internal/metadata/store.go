package metadata

import (
	"fmt"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"gowinmd/internal/backend"
)

const defaultCacheSize = 16

// Opener opens the backend for a metadata file.
type Opener func(path string) (backend.Backend, error)

func openFile(path string) (backend.Backend, error) {
	f, err := backend.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Store caches Scopes by file identity so each file is indexed once and every
// caller shares the same Scope.
type Store struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Scope]
	open  Opener
	log   *zap.Logger
	size  int
}

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithCacheSize bounds the number of cached Scopes. An evicted Scope stays
// usable by callers that still hold it.
func WithCacheSize(n int) Option {
	return func(s *Store) { s.size = n }
}

func WithOpener(open Opener) Option {
	return func(s *Store) { s.open = open }
}

func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		open: openFile,
		log:  zap.NewNop(),
		size: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := lru.NewWithEvict[string, *Scope](s.size, func(key string, _ *Scope) {
		s.log.Debug("scope evicted", zap.String("key", key))
	})
	if err != nil {
		return nil, fmt.Errorf("scope cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// LoadScopeFromFile returns the Scope for path, opening and indexing the file
// on first request.
func (s *Store) LoadScopeFromFile(path string) (*Scope, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	key = filepath.Clean(key)

	return s.load(key, func() (backend.Backend, error) { return s.open(path) })
}

// LoadScopeFromBackend registers an already open backend under name. A
// backend offered for a name that is already cached is closed.
func (s *Store) LoadScopeFromBackend(name string, b backend.Backend) (*Scope, error) {
	scope, err := s.load(name, func() (backend.Backend, error) { return b, nil })
	if err == nil && scope.backend != b {
		_ = b.Close()
	}
	return scope, err
}

func (s *Store) load(key string, open func() (backend.Backend, error)) (*Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scope, ok := s.cache.Get(key); ok {
		return scope, nil
	}

	b, err := open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", key, err)
	}
	scope, err := NewScope(b, s.log)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	s.cache.Add(key, scope)
	s.log.Info("scope cached", zap.String("key", key), zap.Int("typedefs", len(scope.typeDefs)))
	return scope, nil
}

// Len returns the number of cached Scopes.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Close closes every cached Scope and empties the cache.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, scope := range s.cache.Values() {
		if err := scope.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.cache.Purge()
	return firstErr
}
