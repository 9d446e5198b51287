package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"variant-server/internal/logging"
	"variant-server/internal/transform"
)

// Resolve answers with the derivative a (width, height, options) request maps
// to, generating or enqueueing it according to the service's mode.
//
//	GET /api/resolve/albums/photo.jpg?width=800
//	GET /api/resolve/albums/photo.jpg?size=landscape-1-2&greyscale=true
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sourcePath := vars["path"]

	widthArg, heightArg, optsArg := argsFromQuery(r.URL.Query())

	d, err := h.svc.Resolve(r.Context(), sourcePath, widthArg, heightArg, optsArg)
	if err != nil {
		if errors.Is(err, transform.ErrSourceNotFound) {
			writeJSONError(w, "source not found", http.StatusNotFound)
			return
		}
		logging.Error("resolve failed for %s: %v", sourcePath, err)
		writeJSONError(w, "failed to resolve derivative", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, d)
}

// srcsetResponse is the JSON shape of an assembled responsive image.
type srcsetResponse struct {
	Src     string `json:"src"`
	Srcset  string `json:"srcset"`
	Sizes   string `json:"sizes,omitempty"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Class   string `json:"class,omitempty"`
	Style   string `json:"style,omitempty"`
	Loading string `json:"loading"`
	Tag     string `json:"tag"`
}

// Srcset assembles the full responsive attribute set for a source, deriving
// every rung of the scale-factor ladder.
func (h *Handlers) Srcset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sourcePath := vars["path"]

	widthArg, heightArg, optsArg := argsFromQuery(r.URL.Query())

	attrs, err := h.svc.Attrs(sourcePath, widthArg, heightArg, optsArg)
	if err != nil {
		if errors.Is(err, transform.ErrSourceNotFound) {
			writeJSONError(w, "source not found", http.StatusNotFound)
			return
		}
		logging.Error("srcset failed for %s: %v", sourcePath, err)
		writeJSONError(w, "failed to build srcset", http.StatusBadRequest)
		return
	}

	tag, err := attrs.ImgTag()
	if err != nil {
		logging.Error("img tag rendering failed for %s: %v", sourcePath, err)
		writeJSONError(w, "failed to build srcset", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, srcsetResponse{
		Src:     attrs.Src,
		Srcset:  attrs.Srcset,
		Sizes:   attrs.Sizes,
		Width:   attrs.Width,
		Height:  attrs.Height,
		Class:   attrs.Class,
		Style:   attrs.Style,
		Loading: attrs.Loading,
		Tag:     string(tag),
	})
}

// Stats reports ledger totals. Returns zeros with a marker when the ledger is
// disabled rather than failing, since the numbers are advisory.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.ledger == nil {
		writeJSON(w, map[string]any{"enabled": false})
		return
	}

	stats, err := h.ledger.Stats(r.Context())
	if err != nil {
		logging.Error("ledger stats failed: %v", err)
		writeJSONError(w, "failed to read stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"enabled":       true,
		"variations":    stats.Variations,
		"sources":       stats.Sources,
		"bytes":         stats.Bytes,
		"avgDurationMs": stats.AvgDurationMS,
		"lastRecorded":  stats.LastRecorded,
	})
}

// argsFromQuery maps query parameters onto the resolver's loose argument
// shapes. width and height pass through as strings (numeric or a named-size
// key); every other parameter rides the option map, where per-key coercion
// handles typing. When both are present, width outranks size.
func argsFromQuery(q url.Values) (widthArg, heightArg, optsArg any) {
	if size := q.Get("size"); size != "" {
		widthArg = size
	}
	if width := q.Get("width"); width != "" {
		widthArg = width
	}
	if height := q.Get("height"); height != "" {
		heightArg = height
	}

	opts := make(map[string]any)
	for key, values := range q {
		switch key {
		case "width", "height", "size":
			continue
		}
		if len(values) == 0 || values[0] == "" {
			continue
		}
		opts[key] = values[0]
	}
	if len(opts) > 0 {
		optsArg = opts
	}

	return widthArg, heightArg, optsArg
}
