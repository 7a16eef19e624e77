package loom

import (
	"fmt"
	"sync"
)

// QueryKey is the constraint for query keys — they must be comparable
// for use as map keys, exactly as the teacher's incremental query
// engine requires.
type QueryKey interface {
	comparable
}

// ProgramKey identifies a single compiled program for per-compile
// query caching. Loom has no multi-file import graph (SPEC_FULL.md
// narrows the surface language to a single source with no
// modules/imports), so — unlike the teacher's FilePath/DefKey pair —
// there is only one key shape worth keeping: the program's identity.
type ProgramKey struct {
	Name string
}

// FuncKey is a query key for a single function literal bound at a
// `let`/`var` site, identified by its declared name. No query in this
// module is keyed by it. Renamed from the teacher's
// DefKey (which keyed a rule definition within a grammar file) to
// Loom's own vocabulary; the underlying engine is unchanged.
type FuncKey struct {
	Program string
	Name    string
}

// Query represents a computation that can be cached and tracked for
// dependencies. K is the key type (input) and V is the value type
// (output) — kept unchanged from the teacher's query.go, which uses
// this same generic shape for its LSP server's incremental
// recomputation of parsed grammars and call graphs.
type Query[K QueryKey, V any] struct {
	Name    string
	Compute func(db *Database, key K) (V, error)
}

// queryID is a unique identifier for a cached query result, combining
// the query name with its key.
type queryID struct {
	queryName string
	key       any
}

// cachedValue holds a cached computation result along with metadata
// for invalidation.
type cachedValue struct {
	value    any
	err      error
	revision int
}

// Database is the central store for query results and dependency
// tracking. It manages caching, invalidation, and the query execution
// lifecycle — the teacher's Database stripped of the grammar-file
// loader/FileID bookkeeping Loom's single-source front end has no use
// for (see SPEC_FULL.md: "no modules/imports").
type Database struct {
	mu sync.RWMutex

	// revision is incremented each time an input changes
	revision int

	// cache stores computed query results
	cache map[queryID]cachedValue

	// deps tracks which queries a given query depends on (forward deps)
	deps map[queryID][]queryID

	// rdeps tracks which queries depend on a given query (reverse deps)
	rdeps map[queryID][]queryID

	// activeQuery tracks the currently executing query for dependency recording
	activeQuery *queryID

	// config holds compiler configuration
	config *Config
}

// NewDatabase creates a new query database with the given
// configuration.
func NewDatabase(config *Config) *Database {
	return &Database{
		revision: 0,
		cache:    make(map[queryID]cachedValue),
		deps:     make(map[queryID][]queryID),
		rdeps:    make(map[queryID][]queryID),
		config:   config,
	}
}

// Config returns the database's configuration
func (db *Database) Config() *Config { return db.config }

// Revision returns the current database revision
func (db *Database) Revision() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.revision
}

// Get executes a query, returning a cached result if available and
// valid, or computing and caching a new result. It automatically
// tracks dependencies between queries.
func Get[K QueryKey, V any](db *Database, q *Query[K, V], key K) (V, error) {
	id := queryID{queryName: q.Name, key: key}

	db.mu.Lock()

	// Record dependency if we're inside another query
	if db.activeQuery != nil {
		parent := *db.activeQuery
		db.deps[parent] = append(db.deps[parent], id)
		db.rdeps[id] = append(db.rdeps[id], parent)
	}

	// Check cache
	if cached, ok := db.cache[id]; ok {
		db.mu.Unlock()
		if cached.err != nil {
			var zero V
			return zero, cached.err
		}
		return cached.value.(V), nil
	}

	// Set this as the active query for dependency tracking
	prevActive := db.activeQuery
	db.activeQuery = &id

	// Clear any stale dependencies from previous computations
	db.deps[id] = nil

	db.mu.Unlock()

	// Compute the value (outside the lock to allow nested queries)
	value, err := q.Compute(db, key)

	db.mu.Lock()
	// Restore previous active query
	db.activeQuery = prevActive

	// Cache the result
	db.cache[id] = cachedValue{
		value:    value,
		err:      err,
		revision: db.revision,
	}
	db.mu.Unlock()

	return value, err
}

// SetInput sets an input value directly in the cache and invalidates
// all dependent queries. This is used for "leaf" queries that
// represent external inputs (a parsed program and its Config, in Loom's
// case).
func SetInput[K QueryKey, V any](db *Database, q *Query[K, V], key K, value V) {
	id := queryID{queryName: q.Name, key: key}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.revision++
	db.cache[id] = cachedValue{
		value:    value,
		err:      nil,
		revision: db.revision,
	}
	db.invalidateDependents(id)
}

// Invalidate removes a cached value and all its dependents from the
// cache. This forces recomputation on the next query.
func Invalidate[K QueryKey, V any](db *Database, q *Query[K, V], key K) {
	id := queryID{queryName: q.Name, key: key}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.invalidateWithDependents(id)
}

// invalidateDependents removes all queries that depend on the given
// query from the cache. Must be called with db.mu held
func (db *Database) invalidateDependents(id queryID) {
	dependents := db.rdeps[id]
	for _, dep := range dependents {
		delete(db.cache, dep)
		db.invalidateDependents(dep) // Recursively invalidate
	}
}

// invalidateWithDependents removes the given query and all its
// dependents from the cache. Must be called with db.mu held
func (db *Database) invalidateWithDependents(id queryID) {
	delete(db.cache, id)
	db.invalidateDependents(id)
}

// InvalidateAll clears all cached values, forcing full recomputation.
func (db *Database) InvalidateAll() {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.revision++
	db.cache = make(map[queryID]cachedValue)
	db.deps = make(map[queryID][]queryID)
	db.rdeps = make(map[queryID][]queryID)
}

// Stats returns statistics about the query cache (mostly for debugging/testing).
func (db *Database) Stats() DatabaseStats {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return DatabaseStats{
		Revision:    db.revision,
		CachedCount: len(db.cache),
		DepsCount:   len(db.deps),
	}
}

// DatabaseStats holds statistics about the query database.
type DatabaseStats struct {
	Revision    int
	CachedCount int
	DepsCount   int
}

func (s DatabaseStats) String() string {
	return fmt.Sprintf("Database{revision=%d, cached=%d, deps=%d}",
		s.Revision, s.CachedCount, s.DepsCount)
}
