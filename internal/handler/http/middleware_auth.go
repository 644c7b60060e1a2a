package http

import (
	"context"
	"net/http"

	"github.com/tillware/syncengine/internal/logger"
	"github.com/tillware/syncengine/internal/utils"
)

// auth enforces installation-token authentication. It extracts the bearer
// token from the "Authorization" header, validates it against the server's
// sign key and issuer, and stores the token's client id in the request
// context under [utils.ClientIDCtxKey] before delegating to the next
// handler. Requests without a valid token are rejected with 401.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Err(ErrEmptyAuthorizationHeader).Send()
			http.Error(w, ErrEmptyAuthorizationHeader.Error(), http.StatusUnauthorized)
			return
		}

		tokenString, err := utils.ParseBearerToken(authHeader)
		if err != nil {
			log.Err(err).Send()
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		clientID, err := utils.ValidateClientToken(tokenString, h.cfg.TokenSignKey, h.cfg.TokenIssuer)
		if err != nil {
			log.Err(err).Msg("error occurred during validating client token")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), utils.ClientIDCtxKey, clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
