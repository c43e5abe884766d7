package handlers

import (
	"net/http"
	"strings"

	"github.com/diagnosis/stays/pkg/response"
	"github.com/diagnosis/stays/services/stays/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// CreateBooking books for the caller. A repeated Idempotency-Key returns the
// booking created by the first request.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.GuestID = userID(r)
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get(idempotencyHeader))

	b, err := h.svc.Bookings.CreateBooking(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, b)
}

func (h *Handlers) bookingFilter(w http.ResponseWriter, r *http.Request) (domain.BookingFilter, bool) {
	var f domain.BookingFilter
	f.Limit, f.Offset = parsePagination(r)
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := domain.ParseBookingStatus(raw)
		if !ok {
			response.BadRequest(w, "Invalid status parameter")
			return f, false
		}
		f.Status = &st
	}
	return f, true
}

func (h *Handlers) ListGuestBookings(w http.ResponseWriter, r *http.Request) {
	f, ok := h.bookingFilter(w, r)
	if !ok {
		return
	}
	bookings, err := h.svc.Bookings.ListGuestBookings(r.Context(), userID(r), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeBookings(w, bookings)
}

func (h *Handlers) ListHostBookings(w http.ResponseWriter, r *http.Request) {
	f, ok := h.bookingFilter(w, r)
	if !ok {
		return
	}
	bookings, err := h.svc.Bookings.ListHostBookings(r.Context(), userID(r), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeBookings(w, bookings)
}

func writeBookings(w http.ResponseWriter, bookings []domain.Booking) {
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	response.JSON(w, http.StatusOK, bookings)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.svc.Bookings.GetBooking(r.Context(), id, userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, b)
}

func (h *Handlers) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.svc.Bookings.ConfirmBooking(r.Context(), id, userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, b)
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.CancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := h.svc.Bookings.CancelBooking(r.Context(), id, userID(r), req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, b)
}

func (h *Handlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.ReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rv, err := h.svc.Reviews.CreateReview(r.Context(), id, userID(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, rv)
}
