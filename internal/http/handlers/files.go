package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"promptpdf/internal/domain"
)

// FilesDownload serves a rendered document in whichever regime it currently
// lives: inline payloads are streamed straight from the record, durably
// stored ones redirect to their public URL.
func (a *App) FilesDownload(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "id")
	file, err := a.Files.GetByID(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "file not found")
			return
		}
		a.Logger.Error().Err(err).Str("file_id", fileID).Msg("api: load file failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load file")
		return
	}

	switch file.Location.Kind {
	case domain.LocationStored:
		http.Redirect(w, r, file.Location.URL, http.StatusFound)
	case domain.LocationInline:
		w.Header().Set("Content-Type", file.MimeType)
		w.Header().Set("Content-Length", strconv.Itoa(len(file.Location.Data)))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.ID+".pdf"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(file.Location.Data)
	default:
		a.error(w, http.StatusInternalServerError, "internal", "file has no readable location")
	}
}
