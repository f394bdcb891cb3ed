package store

import (
	"container/list"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/sqlcond/internal/grammar"
	"github.com/roach88/sqlcond/internal/ir"
	"github.com/roach88/sqlcond/internal/querysql"
)

// Store executes compiled conditions against one database.
//
// Thread-safety: Store is safe for concurrent use. The statement cache is
// guarded by its own mutex; the compiler is immutable.
type Store struct {
	db       *sql.DB
	dialect  string
	compiler *querysql.Compiler
	logger   *slog.Logger

	mu        sync.Mutex
	stmts     map[string]*list.Element // checksum -> *stmtEntry in lru
	lru       *list.List               // front is most recently used
	capacity  int
	hits      int
	misses    int
	evictions int
}

// DefaultStatementCacheSize bounds the prepared statement cache unless
// WithStatementCacheSize says otherwise.
const DefaultStatementCacheSize = 256

// stmtEntry is a cached statement. An evicted entry stays open until its
// last borrower releases it.
type stmtEntry struct {
	key     string
	stmt    *sql.Stmt
	refs    int
	evicted bool
}

// Option configures Open.
type Option func(*options)

type options struct {
	table     *grammar.Table
	maxDepth  int
	logger    *slog.Logger
	cacheSize int
}

// WithGrammar replaces the dialect's built-in grammar table, for example
// with one extended by grammar.LoadFile.
func WithGrammar(table *grammar.Table) Option {
	return func(o *options) {
		o.table = table
	}
}

// WithMaxDepth sets the compiler's nesting ceiling.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		o.maxDepth = n
	}
}

// WithStatementCacheSize caps the number of cached prepared statements.
// The least recently used statement is closed when the cap is exceeded.
// Values below 1 keep DefaultStatementCacheSize.
func WithStatementCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open connects to the database described by cfg and verifies the connection.
//
// SQLite databases are configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Conditions are compiled with quoted identifiers for the dialect.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default(), cacheSize: DefaultStatementCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	dialect, err := grammar.NormalizeDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	driver, dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	table := o.table
	if table == nil {
		if table, err = grammar.ForDialect(dialect); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == grammar.DialectSQLite {
		// SQLite only supports one writer at a time, so limit connections
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	o.logger.Info("database opened", "dialect", dialect, "grammar", table.Name())

	return &Store{
		db:       db,
		dialect:  dialect,
		compiler: querysql.New(table, querysql.WithQuotedIdentifiers(), querysql.WithMaxDepth(o.maxDepth)),
		logger:   o.logger,
		stmts:    make(map[string]*list.Element),
		lru:      list.New(),
		capacity: o.cacheSize,
	}, nil
}

// Close closes cached statements and the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}

	s.mu.Lock()
	for key, el := range s.stmts {
		el.Value.(*stmtEntry).stmt.Close()
		delete(s.stmts, key)
	}
	s.lru.Init()
	s.mu.Unlock()

	s.logger.Info("database closed", "dialect", s.dialect)
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the canonical dialect name.
func (s *Store) Dialect() string {
	return s.dialect
}

// Compiler returns the condition compiler bound to the store's grammar.
func (s *Store) Compiler() *querysql.Compiler {
	return s.compiler
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// Stats reports statement cache usage.
type Stats struct {
	Hits      int
	Misses    int
	Evictions int
	Size      int
	Capacity  int
}

// Stats returns a snapshot of statement cache counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
		Size:      s.lru.Len(),
		Capacity:  s.capacity,
	}
}

// prepare returns a cached prepared statement for query, keyed by the
// checksum of its final text. The caller must call release once it is done
// with the statement.
func (s *Store) prepare(ctx context.Context, query string) (stmt *sql.Stmt, release func(), err error) {
	query = s.rebind(query)
	key := ir.Checksum(ir.DomainStatement, []byte(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.stmts[key]; ok {
		s.lru.MoveToFront(el)
		entry := el.Value.(*stmtEntry)
		entry.refs++
		s.hits++
		s.logger.Debug("statement cache hit", "checksum", key[:12])
		return entry.stmt, s.releaser(entry), nil
	}

	prepared, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	entry := &stmtEntry{key: key, stmt: prepared, refs: 1}
	s.stmts[key] = s.lru.PushFront(entry)
	s.misses++
	s.logger.Debug("statement cache miss", "checksum", key[:12], "sql", query)

	for s.lru.Len() > s.capacity {
		s.evictOldest()
	}
	return prepared, s.releaser(entry), nil
}

// evictOldest drops the least recently used statement. Must hold s.mu.
func (s *Store) evictOldest() {
	el := s.lru.Back()
	if el == nil {
		return
	}
	entry := s.lru.Remove(el).(*stmtEntry)
	delete(s.stmts, entry.key)
	entry.evicted = true
	s.evictions++
	if entry.refs == 0 {
		entry.stmt.Close()
	}
	s.logger.Debug("statement cache eviction", "checksum", entry.key[:12], "in_use", entry.refs > 0)
}

func (s *Store) releaser(entry *stmtEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			entry.refs--
			if entry.evicted && entry.refs == 0 {
				entry.stmt.Close()
			}
		})
	}
}

// rebind converts placeholders for dialects that do not use '?'.
func (s *Store) rebind(query string) string {
	if s.dialect == grammar.DialectPostgreSQL {
		return querysql.Rebind(query)
	}
	return query
}

// queryRows runs an uncached query, rebinding placeholders first.
func (s *Store) queryRows(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}
