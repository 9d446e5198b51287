package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"variant-server/internal/logging"
	"variant-server/internal/queue"
	"variant-server/internal/variant"
)

const (
	// Derivative filenames encode their full parameter set, so a cached copy
	// can never go stale.
	derivativeCacheControl = "public, max-age=31536000, immutable"
	sourceCacheControl     = "public, max-age=86400"
)

// ServeMedia serves files from the media tree. A request for a derivative
// that does not exist yet is the trigger that fulfills its queue descriptor:
// the file is generated, published, and returned in the same response.
func (h *Handlers) ServeMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	filePath := vars["path"]

	fullPath := filepath.Join(h.mediaDir, filePath)

	// Security check
	absPath, err := filepath.Abs(fullPath)
	if err != nil || !isSubPath(h.mediaDir, absPath) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	info, err := os.Stat(fullPath)
	if err == nil {
		if info.IsDir() {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Cache-Control", cacheControlFor(fullPath))
		http.ServeFile(w, r, fullPath)
		return
	}
	if !os.IsNotExist(err) {
		logging.Error("failed to stat %s: %v", filePath, err)
		http.Error(w, "Failed to access file", http.StatusInternalServerError)
		return
	}

	// Miss. Only derivative names can be generated on the fly; anything else
	// is a plain 404.
	if _, ok := variant.ParseVariationBase(filepath.Base(fullPath)); !ok {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	result, err := h.svc.FulfillOnMiss(r.Context(), filePath)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", result.MIME)
		w.Header().Set("Content-Length", strconv.Itoa(result.Length))
		w.Header().Set("Cache-Control", derivativeCacheControl)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(result.Bytes); err != nil {
			logging.Warn("failed to write derivative response for %s: %v", filePath, err)
		}
	case errors.Is(err, queue.ErrNotPending), errors.Is(err, queue.ErrStaleSource):
		http.Error(w, "File not found", http.StatusNotFound)
	default:
		logging.Error("deferred generation failed for %s: %v", filePath, err)
		http.Error(w, "Failed to generate derivative", http.StatusInternalServerError)
	}
}

// cacheControlFor picks the cache policy by filename: derivatives are
// immutable, sources may be replaced in place.
func cacheControlFor(path string) string {
	if _, ok := variant.ParseVariationBase(filepath.Base(path)); ok {
		return derivativeCacheControl
	}
	return sourceCacheControl
}
