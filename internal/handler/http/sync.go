package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/service"
	"github.com/tillware/syncengine/internal/store"
	"github.com/tillware/syncengine/internal/utils"
	"github.com/tillware/syncengine/models"
)

// push applies a batch of client operations. The client id always comes from
// the authenticated token; a body naming a different client is rejected.
func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	ctx := r.Context()

	clientID, ok := utils.GetClientIDFromContext(ctx)
	if !ok {
		log.Error().Str("func", "Handler.push").Msg("no client id in context")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req models.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Str("func", "Handler.push").Msg("error decoding push request")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.ClientID != "" && req.ClientID != clientID {
		log.Err(ErrClientIDMismatch).Str("func", "Handler.push").Send()
		http.Error(w, ErrClientIDMismatch.Error(), http.StatusForbidden)
		return
	}
	req.ClientID = clientID

	resp, err := h.services.Sync.ApplyPush(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrNoClientID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Err(err).Str("func", "Handler.push").Msg("error applying push")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if _, err = utils.WriteJSON(w, resp, http.StatusOK); err != nil {
		log.Err(err).Str("func", "Handler.push").Msg("error writing push response")
	}
}

// pull returns one page of recorded changes after the checkpoint cursor.
func (h *Handler) pull(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	checkpoint := r.URL.Query().Get("checkpoint")

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	resp, err := h.services.Sync.Pull(r.Context(), checkpoint, limit)
	if err != nil {
		if errors.Is(err, store.ErrBadCursor) {
			http.Error(w, "invalid checkpoint", http.StatusBadRequest)
			return
		}
		log.Err(err).Str("func", "Handler.pull").Msg("error reading changes")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if _, err = utils.WriteJSON(w, resp, http.StatusOK); err != nil {
		log.Err(err).Str("func", "Handler.pull").Msg("error writing pull response")
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if _, err := utils.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "Handler.health").Msg("error writing health response")
	}
}
