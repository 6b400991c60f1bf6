package quote

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// errorBody is the JSON shape of a failed quote request.
type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// Handler serves GET requests for a single quote. It must be mounted on a
// pattern with a {symbol} wildcard, e.g. "GET /api/stocks/{symbol}".
func Handler(src Source, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		symbol := r.PathValue("symbol")

		w.Header().Set("Content-Type", "application/json")

		q, err := src.Quote(r.Context(), symbol)
		if err != nil {
			status := StatusCode(err)
			if status >= 500 {
				logger.Warn("quote request failed", "symbol", symbol, "error", err)
			}
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(errorBody{Error: Message(err), Status: status})
			return
		}
		json.NewEncoder(w).Encode(q)
	})
}
