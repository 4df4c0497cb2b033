package checkout

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-pricing/internal/common"
	"github.com/noah-isme/checkout-pricing/internal/obs"
	"github.com/noah-isme/checkout-pricing/internal/pricing"
)

var requestValidator = validator.New()

type scanRequest struct {
	Item string `json:"item" validate:"required"`
}

type quoteRequest struct {
	Items []string `json:"items" validate:"required,min=1,dive,required"`
}

// Handler wires checkout sessions to HTTP.
type Handler struct {
	Registry *Registry
	Logger   zerolog.Logger
}

// Routes mounts the checkout endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/catalog", h.Catalog)
	r.Post("/quote", h.Quote)
	r.Route("/checkouts", func(r chi.Router) {
		r.Post("/", h.Open)
		r.Get("/{id}", h.Get)
		r.Post("/{id}/scan", h.Scan)
		r.Delete("/{id}", h.Close)
	})
}

// Catalog lists the pricing rules.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	common.Data(w, http.StatusOK, h.Registry.Catalog().Rules())
}

// Quote prices a basket without opening a session.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	var payload quoteRequest
	if !decode(w, r, &payload) {
		return
	}
	total, err := h.Registry.Quote(payload.Items)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"total": total})
}

// Open starts a new checkout session.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	s, err := h.Registry.Open()
	if err != nil {
		h.Logger.Warn().Err(err).Int("open", h.Registry.Len()).Msg("checkout rejected")
		h.writeError(w, err)
		return
	}
	obs.Annotate(r.Context(), "checkout_id", s.ID.String())
	h.Logger.Debug().Str("checkout_id", s.ID.String()).Msg("checkout opened")
	common.Data(w, http.StatusCreated, map[string]any{
		"id":       s.ID.String(),
		"total":    pricing.Money(0),
		"openedAt": s.OpenedAt,
	})
}

// Get returns the current total of a session.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	total, scanned := s.Snapshot()
	common.Data(w, http.StatusOK, map[string]any{
		"id":         s.ID.String(),
		"total":      total,
		"scanned":    scanned,
		"openedAt":   s.OpenedAt,
		"lastSeenAt": s.LastSeen(),
	})
}

// Scan prices one item into a session.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var payload scanRequest
	if !decode(w, r, &payload) {
		return
	}
	obs.Annotate(r.Context(), "item", payload.Item)
	total, progress, err := s.Scan(payload.Item)
	if err != nil {
		h.Logger.Warn().Str("checkout_id", s.ID.String()).Str("item", payload.Item).Err(err).Msg("scan rejected")
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{
		"id":       s.ID.String(),
		"item":     payload.Item,
		"total":    total,
		"progress": progress,
	})
}

// Close discards a session and returns its final total.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if !h.configured(w) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid checkout id", nil)
		return
	}
	obs.Annotate(r.Context(), "checkout_id", id.String())
	total, err := h.Registry.Close(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.Logger.Info().Str("checkout_id", id.String()).Int64("total", total).Msg("checkout closed")
	common.Data(w, http.StatusOK, map[string]any{"id": id.String(), "total": total})
}

func (h *Handler) configured(w http.ResponseWriter) bool {
	if h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout registry not configured", nil)
		return false
	}
	return true
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	if !h.configured(w) {
		return nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid checkout id", nil)
		return nil, false
	}
	obs.Annotate(r.Context(), "checkout_id", id.String())
	s, err := h.Registry.Get(id)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return s, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unexpected data after payload", nil)
		return false
	}
	if err := requestValidator.Struct(dst); err != nil {
		var fields []string
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field()))
			}
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", map[string]any{"fields": fields})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var unknown *UnknownItemError
	switch {
	case errors.As(err, &unknown):
		appErr := common.NewAppError("UNKNOWN_ITEM", unknown.Error(), http.StatusUnprocessableEntity, err)
		appErr.Details = map[string]any{"item": unknown.Name}
		err = appErr
	case errors.Is(err, ErrSessionNotFound):
		err = common.NewAppError("NOT_FOUND", err.Error(), http.StatusNotFound, err)
	case errors.Is(err, ErrTooManySessions):
		err = common.NewAppError("SESSIONS_EXHAUSTED", err.Error(), http.StatusServiceUnavailable, err)
	}
	common.WriteError(w, err)
}
