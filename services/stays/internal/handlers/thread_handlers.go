package handlers

import (
	"net/http"

	"github.com/diagnosis/stays/pkg/response"
	"github.com/diagnosis/stays/services/stays/internal/domain"
)

func (h *Handlers) ListThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.svc.Messaging.ListThreads(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if threads == nil {
		threads = []domain.Thread{}
	}
	response.JSON(w, http.StatusOK, threads)
}

// OpenThread resolves the thread for (property, guest, host). The guest
// defaults to the caller, and the caller must be one of the two parties.
func (h *Handlers) OpenThread(w http.ResponseWriter, r *http.Request) {
	var req domain.ThreadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	uid := userID(r)
	if req.GuestID == 0 {
		req.GuestID = uid
	}
	if uid != req.GuestID && uid != req.HostID {
		response.Forbidden(w, "You can only open threads you take part in")
		return
	}

	t, err := h.svc.Messaging.GetOrCreateThread(r.Context(), req.PropertyID, req.GuestID, req.HostID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, t)
}

func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, offset := parsePagination(r)
	msgs, err := h.svc.Messaging.ListMessages(r.Context(), id, userID(r), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	response.JSON(w, http.StatusOK, msgs)
}

func (h *Handlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.svc.Messaging.PostMessage(r.Context(), id, userID(r), req.RecipientID, req.Content)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, m)
}

func (h *Handlers) MarkThreadRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	n, err := h.svc.Messaging.MarkThreadRead(r.Context(), id, userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]int64{"marked_read": n})
}
