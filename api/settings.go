package api

import (
	"net/http"
	"sync"

	"github.com/koopa0/artivault/internal/config"
	"github.com/koopa0/artivault/internal/log"
)

// Settings holds the live configuration value shared by handlers.
// Reads return a copy; updates go through Merge + Validate + Save and
// swap the value atomically, so a failed update never leaves a
// half-applied configuration visible.
type Settings struct {
	mu      sync.RWMutex
	current config.Config
	dir     string // "" disables persistence (tests, ephemeral runs)
}

// NewSettings wraps an already-validated configuration. dir is where
// updates are persisted; pass "" to keep updates in memory only.
func NewSettings(cfg config.Config, dir string) *Settings {
	return &Settings{current: cfg, dir: dir}
}

// Get returns a copy of the current configuration.
func (s *Settings) Get() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update merges patch into the current configuration, validates the
// result, persists it, and makes it the new current value.
func (s *Settings) Update(patch config.Config) (config.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.current.Merge(patch)
	if err := merged.Validate(); err != nil {
		return config.Config{}, err
	}
	if s.dir != "" {
		if err := config.Save(&merged, s.dir); err != nil {
			return config.Config{}, err
		}
	}
	s.current = merged
	return merged, nil
}

// SettingsHandler serves the settings endpoints.
type SettingsHandler struct {
	settings *Settings
	logger   log.Logger
}

// RegisterRoutes registers the settings endpoints.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/settings", h.Get)
	mux.HandleFunc("PUT /api/settings", h.Update)
}

// Get returns the current settings value.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.settings.Get()
	writeSuccess(w, http.StatusOK, cfg)
}

// Update applies a settings patch. Boolean fields are always taken
// from the patch, so clients send the full set of toggles alongside
// any changed strings or numbers.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch config.Config
	if !decodeRequest(w, r, &patch) {
		return
	}

	updated, err := h.settings.Update(patch)
	if err != nil {
		h.logger.Warn("settings update rejected", "error", err)
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	h.logger.Info("settings updated")
	writeSuccess(w, http.StatusOK, updated)
}
