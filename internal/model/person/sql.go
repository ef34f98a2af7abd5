package person

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrStoreClosed is returned by SQLStore methods after Close.
var ErrStoreClosed = errors.New("store is closed")

type dialect struct {
	createTable string
	lockTable   string
	insert      string
	selectByID  string
	selectAll   string
	count       string
}

var dialects = map[string]dialect{
	"sqlite": {
		createTable: `CREATE TABLE IF NOT EXISTS people (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL
		)`,
		insert:     `INSERT INTO people (name) VALUES (?) RETURNING id`,
		selectByID: `SELECT id, name FROM people WHERE id = ?`,
		selectAll:  `SELECT id, name FROM people ORDER BY id`,
		count:      `SELECT COUNT(*) FROM people`,
	},
	"postgres": {
		createTable: `CREATE TABLE IF NOT EXISTS people (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		lockTable:  `LOCK TABLE people IN EXCLUSIVE MODE`,
		insert:     `INSERT INTO people (name) VALUES ($1) RETURNING id`,
		selectByID: `SELECT id, name FROM people WHERE id = $1`,
		selectAll:  `SELECT id, name FROM people ORDER BY id`,
		count:      `SELECT COUNT(*) FROM people`,
	},
}

// SQLStore persists people in a relational database. Ids come from the
// database sequence rather than an in-process counter.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	mu      sync.RWMutex
	closed  bool
}

// NewSQLStore opens dsn with the named driver ("sqlite" or "postgres"),
// creates the people table and inserts seed when the table is empty.
func NewSQLStore(ctx context.Context, driver, dsn string, seed []string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	if driver == "sqlite" && !isSQLiteMemory(dsn) {
		dsn = withSQLiteParams(dsn)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite" {
		if isSQLiteMemory(dsn) {
			// each pooled connection would otherwise get its own empty database
			db.SetMaxOpenConns(1)
		} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	s := &SQLStore{db: db, dialect: d}
	if err := s.seed(ctx, seed); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// seed runs in one transaction so concurrent first starts insert the names
// once. sqlite transactions begin IMMEDIATE (see withSQLiteParams); postgres
// takes an explicit table lock.
func (s *SQLStore) seed(ctx context.Context, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if s.dialect.lockTable != "" {
		if _, err := tx.ExecContext(ctx, s.dialect.lockTable); err != nil {
			return fmt.Errorf("lock people table: %w", err)
		}
	}

	var n int
	if err := tx.QueryRowContext(ctx, s.dialect.count).Scan(&n); err != nil {
		return fmt.Errorf("count people: %w", err)
	}
	if n == 0 {
		for _, name := range names {
			var id int64
			if err := tx.QueryRowContext(ctx, s.dialect.insert, name).Scan(&id); err != nil {
				return fmt.Errorf("seed people: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}

// Create implements Store.
func (s *SQLStore) Create(ctx context.Context, name string) (Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Person{}, ErrStoreClosed
	}

	p := Person{Name: name}
	if err := s.db.QueryRowContext(ctx, s.dialect.insert, name).Scan(&p.ID); err != nil {
		return Person{}, fmt.Errorf("insert person: %w", err)
	}
	return p, nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context) ([]Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.selectAll)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	people := make([]Person, 0)
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate people: %w", err)
	}
	return people, nil
}

// FindByID implements Store.
func (s *SQLStore) FindByID(ctx context.Context, id int64) (Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Person{}, ErrStoreClosed
	}

	var p Person
	err := s.db.QueryRowContext(ctx, s.dialect.selectByID, id).Scan(&p.ID, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return Person{}, ErrNotFound
	}
	if err != nil {
		return Person{}, fmt.Errorf("find person by id: %w", err)
	}
	return p, nil
}

// Close releases the database. It is safe to call more than once.
func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// withSQLiteParams makes file connections wait on a locked database instead
// of failing with SQLITE_BUSY, and makes every transaction take the write
// lock up front.
func withSQLiteParams(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "busy_timeout") {
		params = append(params, "_pragma=busy_timeout(5000)")
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func isSQLiteMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
