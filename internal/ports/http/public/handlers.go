package public

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/valutatrade/hub/internal/entities"
	"github.com/valutatrade/hub/internal/portfolio"
)

// statusForError keeps the taxonomy visible to callers: an unknown currency
// code and missing rate data get distinct statuses so the caller can tell
// "fix the code" apart from "try again later".
func statusForError(err error) int {
	var currencyErr *entities.CurrencyNotFoundError
	var rateErr *entities.RateUnavailableError
	var fundsErr *entities.InsufficientFundsError

	switch {
	case errors.As(err, &currencyErr):
		return http.StatusNotFound
	case errors.As(err, &rateErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &fundsErr):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, entities.ErrWalletNotFound):
		return http.StatusBadRequest
	case errors.Is(err, portfolio.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, portfolio.ErrEmptyUsername),
		errors.Is(err, portfolio.ErrPasswordTooShort),
		errors.Is(err, portfolio.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) GetRate(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")

	info, err := s.rates.GetRateInfo(from, to)
	if err != nil {
		RespondWithError(w, statusForError(err), err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, info)
}

type convertResponse struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    float64   `json:"amount"`
	Converted float64   `json:"converted"`
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	amount, err := strconv.ParseFloat(r.URL.Query().Get("amount"), 64)
	if err != nil || amount <= 0 {
		RespondWithError(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}

	converted, rate, updatedAt, err := s.rates.Convert(from, to, amount)
	if err != nil {
		RespondWithError(w, statusForError(err), err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, convertResponse{
		From:      from,
		To:        to,
		Amount:    amount,
		Converted: converted,
		Rate:      rate,
		UpdatedAt: updatedAt,
	})
}

// RunUpdate triggers one aggregation cycle. Partial success (some providers
// failed, some rates written) is still a 200 with the errors listed.
func (s *Server) RunUpdate(w http.ResponseWriter, r *http.Request) {
	sourceFilter := r.URL.Query().Get("source")

	report, err := s.updater.RunUpdate(r.Context(), sourceFilter)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, report)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.portfolio.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		RespondWithError(w, statusForError(err), err.Error())
		return
	}

	RespondWithJSON(w, http.StatusCreated, user)
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.portfolio.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		RespondWithError(w, statusForError(err), err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, user)
}

func (s *Server) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "user_id must be an integer")
		return
	}

	base := r.URL.Query().Get("base")

	summary, err := s.portfolio.GetSummary(r.Context(), userID, base)
	if err != nil {
		RespondWithError(w, statusForError(err), err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, summary)
}

type tradeRequest struct {
	UserID   int64   `json:"user_id"`
	Currency string  `json:"currency"`
	Amount   float64 `json:"amount"`
}

func (s *Server) Buy(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.portfolio.Buy(r.Context(), req.UserID, req.Currency, req.Amount)
	if err != nil {
		RespondWithError(w, statusForError(err), err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, result)
}

func (s *Server) Sell(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.portfolio.Sell(r.Context(), req.UserID, req.Currency, req.Amount)
	if err != nil {
		RespondWithError(w, statusForError(err), err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, result)
}
