package export

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/table"
)

type Handler struct {
	service *Service
	tables  *table.Registry
}

// NewHTTPHandler serves GET /tables/{name}/export. The view state comes from
// the query string: format, search, sort, direction and filters (a JSON
// object).
func NewHTTPHandler(service *Service, tables *table.Registry) http.Handler {
	return &Handler{service: service, tables: tables}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := tableName(r)
	if name == "" {
		http.Error(w, "missing table name", http.StatusBadRequest)
		return
	}
	engine, ok := h.tables.Engine(name)
	if !ok {
		http.Error(w, fmt.Sprintf("table %q not found", name), http.StatusNotFound)
		return
	}

	query := r.URL.Query()
	format, err := ParseFormat(query.Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state, err := stateFromQuery(engine.InitialState(r.Context()), query.Get("search"), query.Get("sort"), query.Get("direction"), query.Get("filters"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state = engine.NormalizeState(state)

	filename := fmt.Sprintf("%s.%s", sanitizeFileComponent(name), format)
	w.Header().Set("Content-Type", format.MimeType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	result, err := h.service.Write(r.Context(), w, engine.Definition(), state, format)
	if err != nil {
		// Headers are already sent once rows stream.
		log.Printf("[export] %s export failed: %v", name, err)
		return
	}
	log.Printf("[export] %s streamed (rows=%d bytes=%d)", name, result.Rows, result.Bytes)
}

func tableName(r *http.Request) string {
	if name := r.PathValue("name"); name != "" {
		return name
	}
	path := strings.TrimSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/export")
	idx := strings.LastIndex(path, "/")
	if idx == -1 || idx == len(path)-1 {
		return ""
	}
	return path[idx+1:]
}

func stateFromQuery(state domain.ViewState, search, sort, direction, filters string) (domain.ViewState, error) {
	if search != "" {
		state = state.WithSearch(search)
	}
	if sort != "" {
		state = state.WithSort(sort, domain.SortDirection(strings.ToLower(direction)))
	}
	if strings.TrimSpace(filters) != "" {
		var values map[string]any
		if err := json.Unmarshal([]byte(filters), &values); err != nil {
			return state, fmt.Errorf("invalid filters: %v", err)
		}
		state = state.WithFilters(values)
	}
	return state, nil
}
