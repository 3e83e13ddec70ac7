package directory

import (
	"context"

	"github.com/bastiangx/mentionserve/internal/logger"
	"github.com/charmbracelet/log"
)

// DefaultCap is the most results one search returns.
const DefaultCap = 30

// Directory keeps the store and the index in step.
type Directory struct {
	store  *Store
	index  *Index
	logger *log.Logger
}

// Load builds a Directory from the users currently in store.
func Load(ctx context.Context, store *Store) (*Directory, error) {
	users, err := store.Users(ctx)
	if err != nil {
		return nil, err
	}
	d := &Directory{
		store:  store,
		index:  NewIndex(users),
		logger: logger.New("directory"),
	}
	d.logger.Debugf("Indexed %d users", len(users))
	return d, nil
}

// Add creates and indexes a user.
func (d *Directory) Add(ctx context.Context, name string) (User, error) {
	u, err := d.store.Add(ctx, name)
	if err != nil {
		return User{}, err
	}
	d.index.Add(u)
	return u, nil
}

// Delete removes a user from the store and the index.
func (d *Directory) Delete(ctx context.Context, id int64) (User, error) {
	u, err := d.store.Delete(ctx, id)
	if err != nil {
		return User{}, err
	}
	d.index.Remove(u)
	return u, nil
}

// Search runs a prefix search against the index.
func (d *Directory) Search(query string, limit int) []User {
	return d.index.Search(query, limit)
}

// Len returns the number of searchable users.
func (d *Directory) Len() int {
	return d.index.Len()
}
