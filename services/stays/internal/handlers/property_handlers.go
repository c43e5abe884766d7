package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/diagnosis/stays/pkg/response"
	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/service"
	"github.com/shopspring/decimal"
)

// SearchProperties filters by city, guests, min_price, max_price,
// instant_book and an optional check_in/check_out window.
func (h *Handlers) SearchProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.PropertyFilter{City: q.Get("city")}
	f.Limit, f.Offset = parsePagination(r)

	var err error
	if f.Guests, err = queryInt(r, "guests", 0); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.MinPrice, err = queryDecimal(r, "min_price"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if f.MaxPrice, err = queryDecimal(r, "max_price"); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if raw := q.Get("instant_book"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			response.Unprocessable(w, "instant_book must be a boolean")
			return
		}
		f.InstantBook = &b
	}
	if q.Get("check_in") != "" || q.Get("check_out") != "" {
		stay, err := queryStay(r)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		f.Stay = &stay
	}

	props, err := h.svc.Properties.Search(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if props == nil {
		props = []domain.Property{}
	}
	response.JSON(w, http.StatusOK, props)
}

func (h *Handlers) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.Properties.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

func (h *Handlers) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var in domain.PropertyInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := h.svc.Properties.Create(r.Context(), userID(r), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, p)
}

func (h *Handlers) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var patch domain.PropertyPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	p, err := h.svc.Properties.Update(r.Context(), userID(r), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

func (h *Handlers) DeactivateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Properties.Deactivate(r.Context(), userID(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListImages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	imgs, err := h.svc.Properties.ListImages(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if imgs == nil {
		imgs = []domain.PropertyImage{}
	}
	response.JSON(w, http.StatusOK, imgs)
}

func (h *Handlers) AddImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in domain.ImageInput
	if !decodeJSON(w, r, &in) {
		return
	}
	img, err := h.svc.Properties.AddImage(r.Context(), userID(r), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, img)
}

func (h *Handlers) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	imageID, ok := pathID(w, r, "imageID")
	if !ok {
		return
	}
	if err := h.svc.Properties.SetPrimaryImage(r.Context(), userID(r), id, imageID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stay, err := queryStay(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	guests, err := queryInt(r, "guests", 1)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a, err := h.svc.Availability.IsAvailable(r.Context(), id, stay, guests)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, a)
}

func (h *Handlers) Calendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	from, err := queryDate(r, "from")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	days, err := h.svc.Availability.Calendar(r.Context(), id, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, days)
}

func (h *Handlers) SetOverrides(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.OverrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Availability.SetOverrides(r.Context(), userID(r), id, req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) Quote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stay, err := queryStay(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	q, err := h.svc.Bookings.Quote(r.Context(), id, stay)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, q)
}

func (h *Handlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, offset := parsePagination(r)
	summary, err := h.svc.Reviews.ListPropertyReviews(r.Context(), id, limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

func queryDecimal(r *http.Request, name string) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, name)
	}
	return &v, nil
}
