package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"wallet-ledger-service/internal/domain"
	"wallet-ledger-service/internal/domain/model"
	"wallet-ledger-service/internal/infra/logging"
	"wallet-ledger-service/internal/infra/metrics"
	"wallet-ledger-service/internal/usecase"
)

// Server holds the use cases behind the versioned JSON API.
type Server struct {
	orders usecase.OrderManager
	ledger usecase.LedgerService
	intake usecase.WebhookIntake

	jwtSecret   string
	adminAPIKey string
	limiter     RateLimiter
	rateLimit   int

	log *zerolog.Logger
}

// RateLimiter is the slice of the redis limiter the webhook route needs.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

func NewServer(orders usecase.OrderManager, ledger usecase.LedgerService, intake usecase.WebhookIntake, jwtSecret, adminAPIKey string, limiter RateLimiter, rateLimit int, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "APIv1").Logger()
	return &Server{
		orders:      orders,
		ledger:      ledger,
		intake:      intake,
		jwtSecret:   jwtSecret,
		adminAPIKey: adminAPIKey,
		limiter:     limiter,
		rateLimit:   rateLimit,
		log:         &l,
	}
}

// RegisterAPIV1 mounts all routes on the router.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Post("/webhook/sepay", s.handleWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/packages", s.handleListPackages)

		r.Group(func(r chi.Router) {
			r.Use(UserAuth(s.jwtSecret))
			r.Post("/orders", s.handleCreateOrder)
			r.Get("/orders", s.handleOrderHistory)
			r.Get("/orders/pending", s.handlePendingOrder)
			r.Get("/orders/{orderID}", s.handleGetOrder)

			r.Get("/wallet", s.handleWallet)
			r.Get("/wallet/transactions", s.handleTransactions)
			r.Get("/wallet/earned-today", s.handleEarnedToday)
			r.Post("/wallet/streak", s.handleTouchStreak)
			r.Post("/wallet/spend", s.handleSpend)
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuth(s.adminAPIKey))
			r.Post("/rewards", s.handleGrantReward)
		})
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, domain.ErrInvalidPackage), errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeJSON(w, http.StatusPaymentRequired, errorResponse{Error: "insufficient balance"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// ---- catalog ----

type packageView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Credits      int64  `json:"credits"`
	BonusCredits int64  `json:"bonus_credits"`
	TotalCredits int64  `json:"total_credits"`
	Discount     string `json:"discount,omitempty"`
	Description  string `json:"description,omitempty"`
	Popular      bool   `json:"popular,omitempty"`
}

func (s *Server) handleListPackages(w http.ResponseWriter, r *http.Request) {
	pkgs := model.Packages()
	items := make([]packageView, 0, len(pkgs))
	for _, p := range pkgs {
		items = append(items, packageView{
			ID:           p.ID,
			Name:         p.Name,
			Price:        p.Price,
			Credits:      p.Credits,
			BonusCredits: p.BonusCredits,
			TotalCredits: p.TotalCredits(),
			Discount:     p.Discount,
			Description:  p.Description,
			Popular:      p.Popular,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Items []packageView `json:"items"`
	}{Items: items})
}

// ---- orders ----

type orderCreateRequest struct {
	PackageID string `json:"package_id"`
}

type orderView struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	PackageID    string     `json:"package_id"`
	Amount       int64      `json:"amount"`
	CreditAmount int64      `json:"credit_amount"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

type ticketView struct {
	Order     orderView                `json:"order"`
	Reference usecase.PaymentReference `json:"payment_reference"`
}

func toOrderView(o *model.PaymentOrder) orderView {
	return orderView{
		ID:           o.ID,
		Code:         o.Code,
		PackageID:    o.PackageID,
		Amount:       o.Amount,
		CreditAmount: o.CreditAmount,
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
		PaidAt:       o.PaidAt,
		ExpiresAt:    o.ExpiresAt,
	}
}

func toTicketView(t *usecase.OrderTicket) ticketView {
	return ticketView{Order: toOrderView(t.Order), Reference: t.Reference}
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := logging.UserIDFrom(r.Context())

	var req orderCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	ticket, err := s.orders.Create(r.Context(), userID, req.PackageID)
	if err != nil {
		writeError(w, err)
		return
	}
	metrics.IncOrder("created")
	writeJSON(w, http.StatusCreated, toTicketView(ticket))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	userID := logging.UserIDFrom(r.Context())
	o, err := s.orders.Get(r.Context(), userID, chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderView(o))
}

func (s *Server) handlePendingOrder(w http.ResponseWriter, r *http.Request) {
	userID := logging.UserIDFrom(r.Context())
	ticket, err := s.orders.PendingByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTicketView(ticket))
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	userID := logging.UserIDFrom(r.Context())
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, err := s.orders.History(r.Context(), userID, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]orderView, 0, len(orders))
	for _, o := range orders {
		items = append(items, toOrderView(o))
	}
	writeJSON(w, http.StatusOK, struct {
		Items []orderView `json:"items"`
	}{Items: items})
}

// ---- wallet ----

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	userID := logging.UserIDFrom(r.Context())
	snap, err := s.ledger.Snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type transactionView struct {
	ID          string    `json:"id"`
	Cause       string    `json:"cause"`
	CauseRef    string    `json:"cause_ref,omitempty"`
	CauseLabel  string    `json:"cause_label,omitempty"`
	CreditDelta int64     `json:"credit_delta"`
	XPDelta     int64     `json:"xp_delta"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	userID := logging.UserIDFrom(r.Context())
	q := r.URL.Query()

	f := model.LedgerFilter{Cause: model.RewardCause(q.Get("cause"))}
	f.Offset, _ = strconv.Atoi(q.Get("offset"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	if v := q.Get("since"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid since"})
			return
		}
		f.Since = &ts
	}
	if v := q.Get("until"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid until"})
			return
		}
		f.Until = &ts
	}

	entries, total, err := s.ledger.History(r.Context(), userID, f)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]transactionView, 0, len(entries))
	for _, e := range entries {
		items = append(items, transactionView{
			ID:          e.ID,
			Cause:       string(e.Cause),
			CauseRef:    e.CauseRef,
			CauseLabel:  e.CauseLabel,
			CreditDelta: e.CreditDelta,
			XPDelta:     e.XPDelta,
			CreatedAt:   e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, struct {
		Items []transactionView `json:"items"`
		Total int               `json:"total"`
	}{Items: items, Total: total})
}

func (s *Server) handleEarnedToday(w http.ResponseWriter, r *http.Request) {
	userID := logging.UserIDFrom(r.Context())
	credits, xp, err := s.ledger.EarnedToday(r.Context(), userID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Credits int64 `json:"credits"`
		XP      int64 `json:"xp"`
	}{Credits: credits, XP: xp})
}

func (s *Server) handleTouchStreak(w http.ResponseWriter, r *http.Request) {
	userID := logging.UserIDFrom(r.Context())
	streak, err := s.ledger.TouchStreak(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		CurrentStreak int `json:"current_streak"`
	}{CurrentStreak: streak})
}

type spendRequest struct {
	Amount int64  `json:"amount"`
	Ref    string `json:"ref"`
	Label  string `json:"label"`
}

func (s *Server) handleSpend(w http.ResponseWriter, r *http.Request) {
	userID := logging.UserIDFrom(r.Context())

	var req spendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.ledger.Spend(r.Context(), userID, req.Amount, req.Ref, req.Label); err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			metrics.IncInsufficientBalance()
		}
		writeError(w, err)
		return
	}
	metrics.AddLedgerCredits(string(model.CauseSpend), "debit", req.Amount)

	snap, err := s.ledger.Snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ---- admin ----

type rewardRequest struct {
	UserID  string `json:"user_id"`
	Cause   string `json:"cause"`
	Ref     string `json:"ref"`
	Label   string `json:"label"`
	Credits int64  `json:"credits"`
	XP      int64  `json:"xp"`
}

func (s *Server) handleGrantReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := s.ledger.GrantReward(r.Context(), req.UserID, model.RewardCause(req.Cause), req.Ref, req.Label, req.Credits, req.XP)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Credits > 0 {
		metrics.AddLedgerCredits(req.Cause, "credit", req.Credits)
	}
	if req.XP > 0 {
		metrics.AddLedgerXP(req.Cause, req.XP)
	}
	if res.LeveledUp {
		metrics.IncLevelUp()
	}
	writeJSON(w, http.StatusOK, res)
}
