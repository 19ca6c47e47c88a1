package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ConfigStore is satisfied by appconfig.CachedSource and appconfig.Store.
type ConfigStore interface {
	Public(ctx context.Context) (map[string]any, error)
	Set(ctx context.Context, key string, value any, description string) error
}

// ConfigHandler public runtime config and its admin write path
type ConfigHandler struct {
	config ConfigStore
	logger *zap.Logger
}

func NewConfigHandler(config ConfigStore, logger *zap.Logger) *ConfigHandler {
	return &ConfigHandler{config: config, logger: logger}
}

// Get GET /api/v1/config
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.config.Public(r.Context())
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cfg))
}

type setConfigRequest struct {
	Value       json.RawMessage `json:"value"`
	Description string          `json:"description"`
}

// Put PUT /admin/api/v1/config/{key}
//
// value may be any JSON; strings are stored as-is, everything else is
// stored as its JSON text.
func (h *ConfigHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req setConfigRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if len(req.Value) == 0 || string(req.Value) == "null" {
		writeJSON(w, http.StatusBadRequest, Fail("value is required"))
		return
	}

	var value any = req.Value
	var s string
	if json.Unmarshal(req.Value, &s) == nil {
		value = s
	}
	if err := h.config.Set(r.Context(), key, value, req.Description); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]string{"key": key}))
}
