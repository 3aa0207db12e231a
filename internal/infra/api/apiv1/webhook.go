package apiv1

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"wallet-ledger-service/internal/domain/model"
	"wallet-ledger-service/internal/infra/logging"
	"wallet-ledger-service/internal/infra/metrics"
	"wallet-ledger-service/internal/infra/redis"
)

// handleWebhook receives at-least-once bank-transfer notifications. Anything
// short of a transient failure answers 200 so the gateway stops redelivering;
// 5xx asks for another try.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	l := logging.With(r.Context(), s.log)

	if s.limiter != nil {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ok, err := s.limiter.Allow(r.Context(), redis.WebhookKey(host), s.rateLimit, time.Minute)
		if err == nil && !ok {
			// 503 keeps an over-limit delivery retryable; a 4xx could make
			// the gateway drop a real transfer.
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "rate limited, retry later"})
			return
		}
		// Limiter failure falls through; intake has its own defenses.
	}

	var p model.GatewayNotification
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		metrics.IncWebhookNotification("bad_payload")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload"})
		return
	}

	res, err := s.intake.Handle(r.Context(), &p, r.Header.Get("Authorization"))
	if err != nil {
		metrics.IncWebhookNotification("error")
		l.Error().Err(err).Int64("gateway_tx_id", p.ID).Msg("intake failed, asking for redelivery")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "transient failure"})
		return
	}

	metrics.IncWebhookNotification(res.Reason)
	metrics.ObserveWebhookIntakeLatency(float64(time.Since(start).Milliseconds()))

	if res.Accepted && res.Reason == model.ReasonOK {
		metrics.IncOrder("paid")
		metrics.AddOrderRevenue(p.TransferAmount)
	}

	if res.Reason == model.ReasonInvalidCredential {
		writeJSON(w, http.StatusUnauthorized, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
