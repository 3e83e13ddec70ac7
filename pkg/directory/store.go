/*
Package directory answers the forum's user search endpoint.

Users live in a SQLite table; searches never touch the database. On start the
live users are loaded into an in-memory prefix index keyed by case-folded name,
and writes go to both. The HTTP handler serves

	GET /user/tagsearch?q=<text>&limit=<n>

with a JSON array of {"id", "name"} objects, at most Cap entries long. The
mention resolver relies on that cap: a response shorter than it is complete.
*/
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a user id does not exist.
var ErrNotFound = errors.New("directory: user not found")

// ErrEmptyName is returned when adding a user with a blank name.
var ErrEmptyName = errors.New("directory: empty name")

// User is a forum member that can be mentioned.
type User struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"-"`
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id    INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	deleted    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_name ON users(name);
`

// Store persists users.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and migrates) the database at path. ":memory:" is accepted.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("directory: open %s: %w", path, err)
	}
	// a single connection keeps :memory: databases alive and serializes writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("directory: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a user.
func (s *Store) Add(ctx context.Context, name string) (User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, ErrEmptyName
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, created_at) VALUES (?, ?)`, name, now.Unix())
	if err != nil {
		return User{}, fmt.Errorf("directory: insert %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("directory: insert id: %w", err)
	}
	return User{ID: id, Name: name, Created: now.Truncate(time.Second)}, nil
}

// Delete marks a user as deleted.
func (s *Store) Delete(ctx context.Context, id int64) (User, error) {
	var u User
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, created_at FROM users WHERE user_id = ? AND deleted = 0`, id).
		Scan(&u.ID, &u.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("directory: get %d: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET deleted = 1 WHERE user_id = ?`, id); err != nil {
		return User{}, fmt.Errorf("directory: delete %d: %w", id, err)
	}
	u.Created = time.Unix(created, 0).UTC()
	return u, nil
}

// Users returns all live users ordered by id.
func (s *Store) Users(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, name, created_at FROM users WHERE deleted = 0 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("directory: list: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var created int64
		if err := rows.Scan(&u.ID, &u.Name, &created); err != nil {
			return nil, fmt.Errorf("directory: scan: %w", err)
		}
		u.Created = time.Unix(created, 0).UTC()
		users = append(users, u)
	}
	return users, rows.Err()
}
