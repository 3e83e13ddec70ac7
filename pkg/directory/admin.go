package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bastiangx/mentionserve/internal/logger"
	"github.com/charmbracelet/log"
)

// AdminPath is where the user management routes are mounted.
const AdminPath = "/admin/users"

// Editor is what the admin routes need from a Directory.
type Editor interface {
	Add(ctx context.Context, name string) (User, error)
	Delete(ctx context.Context, id int64) (User, error)
}

// Admin serves user management:
//
//	POST   /admin/users       {"name": "Bob"}  -> 201 {"id": 1, "name": "Bob"}
//	DELETE /admin/users/{id}                   -> 200 {"id": 1, "name": "Bob"}
//
// Writes go through the Directory so searches see them immediately.
type Admin struct {
	dir    Editor
	logger *log.Logger
}

// NewAdmin returns admin routes backed by dir.
func NewAdmin(dir Editor) *Admin {
	return &Admin{dir: dir, logger: logger.New("admin")}
}

type addRequest struct {
	Name string `json:"name"`
}

// Register mounts the admin routes on mux.
func (a *Admin) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+AdminPath, a.add)
	mux.HandleFunc("DELETE "+AdminPath+"/{id}", a.remove)
}

func (a *Admin) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	u, err := a.dir.Add(r.Context(), req.Name)
	switch {
	case errors.Is(err, ErrEmptyName):
		writeError(w, http.StatusBadRequest, "name is required")
		return
	case err != nil:
		a.logger.Errorf("Adding %q: %v", req.Name, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.logger.Info("added", "id", u.ID, "name", u.Name)
	writeJSON(w, http.StatusCreated, u)
}

func (a *Admin) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	u, err := a.dir.Delete(r.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
		return
	case err != nil:
		a.logger.Errorf("Removing %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	a.logger.Info("removed", "id", u.ID, "name", u.Name)
	writeJSON(w, http.StatusOK, u)
}
