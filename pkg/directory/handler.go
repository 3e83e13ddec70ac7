package directory

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/mentionserve/internal/logger"
	"github.com/charmbracelet/log"
)

// Searcher is what the handler needs from a Directory.
type Searcher interface {
	Search(query string, limit int) []User
}

// Handler serves user searches.
type Handler struct {
	dir    Searcher
	cap    int
	logger *log.Logger
}

// NewHandler returns a handler answering at most limitCap results.
func NewHandler(dir Searcher, limitCap int) *Handler {
	if limitCap <= 0 {
		limitCap = DefaultCap
	}
	return &Handler{dir: dir, cap: limitCap, logger: logger.New("http")}
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	params := r.URL.Query()
	limit := h.cap
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, h.cap)
	}

	query := strings.TrimSpace(params.Get("q"))
	users := []User{}
	if query != "" {
		start := time.Now()
		if found := h.dir.Search(query, limit); found != nil {
			users = found
		}
		h.logger.Debug("search", "q", query, "limit", limit, "count", len(users), "took", time.Since(start))
	}
	writeJSON(w, http.StatusOK, users)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Status: status})
}

// Mux mounts the handler at path.
func Mux(h http.Handler, path string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(path, h)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}
