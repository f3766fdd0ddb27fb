package handlers

import (
	"net/http"

	"masterannonce/internal/models"
)

// AnnonceMeta handles GET /api/meta/annonces with the static descriptor.
func AnnonceMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.AnnonceDescriptor)
}
