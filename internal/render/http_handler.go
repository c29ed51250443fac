package render

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/rpattn/tablekit/internal/domain"
	"github.com/rpattn/tablekit/internal/table"
)

const maxStateBytes = 1 << 20

type Handler struct {
	tables      *table.Registry
	renderer    Renderer
	contentType string
}

// NewHTTPHandler serves POST /tables/{name}/render. The request body is an
// optional JSON view state; fields it leaves out keep their initial values
// and fields it sends replace them.
func NewHTTPHandler(tables *table.Registry, renderer Renderer, contentType string) http.Handler {
	if contentType == "" {
		contentType = "application/json"
	}
	return &Handler{tables: tables, renderer: renderer, contentType: contentType}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.PathValue("name")
	engine, ok := h.tables.Engine(name)
	if !ok {
		http.Error(w, fmt.Sprintf("table %q not found", name), http.StatusNotFound)
		return
	}

	state := engine.InitialState(r.Context())
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStateBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read state: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(string(body)) != "" {
		if state, err = overlayState(state, body); err != nil {
			http.Error(w, fmt.Sprintf("invalid state: %v", err), http.StatusBadRequest)
			return
		}
	}

	view, err := engine.Render(r.Context(), state)
	if err != nil {
		log.Printf("[render] %s: %v", name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out, err := View(h.renderer, view)
	if err != nil {
		log.Printf("[render] %s: %v", name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", h.contentType)
	_, _ = io.WriteString(w, out)
}

// overlayState decodes body onto state. encoding/json merges objects into a
// non-nil map, so a filters key drops the initial filters first.
func overlayState(state domain.ViewState, body []byte) (domain.ViewState, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return state, err
	}
	if _, ok := fields["filters"]; ok {
		state.Filters = nil
	}
	if err := json.Unmarshal(body, &state); err != nil {
		return state, err
	}
	return state, nil
}
