package todos

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type todoRequest struct {
	Text string `json:"text"`
}

type errResponse struct {
	Error string `json:"error"`
}

type deleteResponse struct {
	Message string `json:"message"`
}

// RegisterRoutes mounts the todo API under /api/todos.
func RegisterRoutes(r chi.Router, repo Repository) {
	r.Route("/api/todos", func(r chi.Router) {
		r.Get("/", listTodos(repo))
		r.Post("/", createTodo(repo))
		r.Post("/complete-all", completeAll(repo))
		r.Post("/uncomplete-all", uncompleteAll(repo))
		r.Put("/{id}", toggleTodo(repo))
		r.Patch("/{id}", editTodo(repo))
		r.Delete("/{id}", deleteTodo(repo))
	})
}

func listTodos(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := repo.List()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func createTodo(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req todoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "Invalid JSON"})
			return
		}
		t, err := repo.Create(req.Text)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

func toggleTodo(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		t, err := repo.Toggle(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func editTodo(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		var req todoRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errResponse{Error: "Invalid JSON"})
			return
		}
		t, err := repo.Edit(id, req.Text)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func deleteTodo(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		if err := repo.Delete(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, deleteResponse{Message: "Todo deleted successfully"})
	}
}

func completeAll(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := repo.CompleteAll()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func uncompleteAll(repo Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := repo.UncompleteAll()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// parseID reads the {id} path segment. An id that is not an integer can
// never match a live item, so it gets the same 404 as an unknown id.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errResponse{Error: ErrNotFound.Error()})
		return 0, false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTextRequired):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: ErrTextRequired.Error()})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errResponse{Error: ErrNotFound.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
