package ponyxpress_api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/ponyxpress/ponyxpress/internal/photostore"
)

// photo serves a stored photo. Refs are content hashes, so responses never
// change and may be cached forever.
func (a *PonyXpressAPI) photo(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	f, err := a.d.Photos.Open(ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, r, errors.Wrap(err, "stat photo"))
		return
	}
	w.Header().Set("Content-Type", photostore.ContentType(ref))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	http.ServeContent(w, r, ref, info.ModTime(), f)
}
