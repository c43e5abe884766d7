package handlers

import (
	"net/http"

	"github.com/diagnosis/stays/pkg/response"
	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (h *Handlers) listRoutes(kind domain.ListKind) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			items, err := h.svc.Lists.List(r.Context(), kind, userID(r))
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			if items == nil {
				items = []domain.ListItem{}
			}
			response.JSON(w, http.StatusOK, items)
		})
		r.Post("/{propertyID}", func(w http.ResponseWriter, r *http.Request) {
			pid, ok := pathID(w, r, "propertyID")
			if !ok {
				return
			}
			if err := h.svc.Lists.Add(r.Context(), kind, userID(r), pid); err != nil {
				writeServiceError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
		r.Delete("/{propertyID}", func(w http.ResponseWriter, r *http.Request) {
			pid, ok := pathID(w, r, "propertyID")
			if !ok {
				return
			}
			if err := h.svc.Lists.Remove(r.Context(), kind, userID(r), pid); err != nil {
				writeServiceError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
