package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// apiKeyHeader carries the storefront credential on checkout requests.
const apiKeyHeader = "X-Api-Key"

// RequireAPIKey authenticates the request via its X-Api-Key header. The raw
// key is HMAC-hashed and matched against stored hashes in constant time; any
// failure yields an opaque 401.
func (h *Handler) RequireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			writeError(w, r, http.StatusUnauthorized, "missing API key")
			return
		}

		info, err := h.verifier.Verify(r.Context(), key)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid API key")
			return
		}

		ctx := zctx.With(r.Context(), zap.String("api_key_name", info.Name))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
