package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/diagnosis/stays/pkg/auth"
	"github.com/diagnosis/stays/pkg/config"
	"github.com/diagnosis/stays/pkg/logger"
	"github.com/diagnosis/stays/pkg/response"
	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/service"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth         service.AuthService
	Properties   service.PropertyService
	Availability service.AvailabilityService
	Bookings     service.BookingService
	Messaging    service.MessagingService
	Reviews      service.ReviewService
	Lists        service.ListService
}

type Handlers struct {
	svc    Services
	config config.AuthConfig
}

func New(svc Services, cfg config.AuthConfig) *Handlers {
	return &Handlers{svc: svc, config: cfg}
}

// Routes builds the /v1 API. limit guards the auth endpoints and booking
// creation; nil disables it.
func (h *Handlers) Routes(limit func(http.Handler) http.Handler) http.Handler {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}

	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Use(limit)
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	// Public catalogue
	r.Group(func(r chi.Router) {
		r.Get("/properties", h.SearchProperties)
		r.Get("/properties/{id}", h.GetProperty)
		r.Get("/properties/{id}/images", h.ListImages)
		r.Get("/properties/{id}/availability", h.CheckAvailability)
		r.Get("/properties/{id}/calendar", h.Calendar)
		r.Get("/properties/{id}/quote", h.Quote)
		r.Get("/properties/{id}/reviews", h.ListReviews)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)

		r.Get("/me", h.Me)

		r.Post("/properties", h.CreateProperty)
		r.Patch("/properties/{id}", h.UpdateProperty)
		r.Delete("/properties/{id}", h.DeactivateProperty)
		r.Post("/properties/{id}/images", h.AddImage)
		r.Put("/properties/{id}/images/{imageID}/primary", h.SetPrimaryImage)
		r.Put("/properties/{id}/calendar", h.SetOverrides)

		r.With(limit).Post("/bookings", h.CreateBooking)
		r.Get("/bookings", h.ListGuestBookings)
		r.Get("/bookings/{id}", h.GetBooking)
		r.Post("/bookings/{id}/confirm", h.ConfirmBooking)
		r.Post("/bookings/{id}/cancel", h.CancelBooking)
		r.Post("/bookings/{id}/review", h.CreateReview)
		r.Get("/host/bookings", h.ListHostBookings)

		r.Get("/threads", h.ListThreads)
		r.Post("/threads", h.OpenThread)
		r.Get("/threads/{id}/messages", h.ListMessages)
		r.Post("/threads/{id}/messages", h.PostMessage)
		r.Post("/threads/{id}/read", h.MarkThreadRead)

		r.Route("/wishlist", h.listRoutes(domain.Wishlist))
		r.Route("/compare", h.listRoutes(domain.CompareList))
	})

	return r
}

type claimsKey struct{}

// RequireAuth accepts a Bearer access token and puts its claims on the context.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Unauthorized(w, "Missing or invalid authorization header")
			return
		}

		claims, err := auth.Parse(strings.TrimPrefix(authHeader, "Bearer "), h.config.JWTSecret)
		if err != nil {
			response.WriteError(w, http.StatusUnauthorized, "Invalid token", response.CodeInvalidToken)
			return
		}

		ctx := logger.WithUserID(r.Context(), claims.Sub)
		ctx = context.WithValue(ctx, claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey{}).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func userID(r *http.Request) int64 {
	if c := getClaims(r); c != nil {
		return c.Sub
	}
	return 0
}

// writeServiceError maps domain errors onto status codes. Anything it does
// not recognise is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var unavailable *domain.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		response.WriteErrorWithDetails(w, http.StatusConflict, "Selected dates are not available",
			response.CodeDatesUnavailable, unavailable.Conflict.Date.String())
	case errors.Is(err, domain.ErrUnavailable):
		response.WriteError(w, http.StatusConflict, "Selected dates are not available", response.CodeDatesUnavailable)
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "Resource not found")
	case errors.Is(err, domain.ErrAlreadyCancelled):
		response.WriteError(w, http.StatusConflict, err.Error(), response.CodeBookingCanceled)
	case errors.Is(err, domain.ErrBookingCompleted):
		response.WriteError(w, http.StatusConflict, err.Error(), response.CodeBookingCompleted)
	case errors.Is(err, domain.ErrInvalidTransition):
		response.WriteError(w, http.StatusConflict, err.Error(), response.CodeInvalidTransition)
	case errors.Is(err, domain.ErrAlreadyReviewed):
		response.WriteError(w, http.StatusConflict, err.Error(), response.CodeAlreadyReviewed)
	case errors.Is(err, domain.ErrEmailTaken):
		response.WriteError(w, http.StatusConflict, err.Error(), response.CodeEmailExists)
	case errors.Is(err, domain.ErrIdempotencyConflict):
		response.WriteError(w, http.StatusConflict, domain.ErrIdempotencyConflict.Error(), response.CodeConflict)
	case errors.Is(err, domain.ErrNotParticipant):
		response.WriteError(w, http.StatusForbidden, err.Error(), response.CodeNotParticipant)
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, "You do not have access to this resource")
	case errors.Is(err, domain.ErrUnauthorized):
		response.Unauthorized(w, "Invalid email or password")
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidGuests),
		errors.Is(err, domain.ErrReasonRequired),
		errors.Is(err, domain.ErrTotalMismatch),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrListFull),
		errors.Is(err, domain.ErrNotReviewable),
		errors.Is(err, domain.ErrInvalidInput):
		response.Unprocessable(w, err.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		response.InternalError(w, "Internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

func queryDate(r *http.Request, name string) (domain.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return domain.Date{}, fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, name)
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return domain.Date{}, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func queryStay(r *http.Request) (domain.Stay, error) {
	in, err := queryDate(r, "check_in")
	if err != nil {
		return domain.Stay{}, err
	}
	out, err := queryDate(r, "check_out")
	if err != nil {
		return domain.Stay{}, err
	}
	return domain.NewStay(in, out)
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return n, nil
}
