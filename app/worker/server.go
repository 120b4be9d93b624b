package worker

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	ledgerstore "github.com/epochlabs/ledgerx/pkg/db/ledger"
	redisclient "github.com/epochlabs/ledgerx/pkg/redis"
	"github.com/epochlabs/ledgerx/pkg/utils"
)

// NewServer builds the ops HTTP server: health, metrics and a read-only
// epoch summary endpoint for dashboards. redisClient may be nil.
func NewServer(logger *zap.Logger, store ledgerstore.Store, redisClient *redisclient.Client) *http.Server {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/v1/epochs/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			http.Error(w, "invalid epoch id", http.StatusBadRequest)
			return
		}

		summary, err := store.GetEpochSummary(r.Context(), id)
		if err != nil {
			logger.Error("Failed to load epoch summary", zap.Int64("epoch_id", id), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if summary == nil {
			http.Error(w, "epoch not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(summary)
	}).Methods(http.MethodGet)

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3000")

	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
