package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/service"
)

// ClientHandler client referrals of the signed-in agent
type ClientHandler struct {
	clients *service.ClientService
	logger  *zap.Logger
}

func NewClientHandler(clients *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, logger: logger}
}

// Ingest POST /api/v1/clients/ingest
func (h *ClientHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var sub domain.ClientSubmission
	if err := readBodyJSON(r, maxBodyBytes, &sub); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	client, err := h.clients.Submit(r.Context(), agentFrom(r), sub)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(client))
}

// List GET /api/v1/clients?search=&status=
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clients, err := h.clients.List(r.Context(), agentFrom(r), q.Get("search"), q.Get("status"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(clients))
}

// Get GET /api/v1/clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	client, err := h.clients.Get(r.Context(), agentFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(client))
}
