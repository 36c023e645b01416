package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"papertrader/internal/engine"
	"papertrader/internal/errors"
	"papertrader/internal/models"
)

type executeRequest struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Amount     float64 `json:"amount"`
	Confidence float64 `json:"confidence,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
}

type closeRequest struct {
	TradeID    string  `json:"trade_id"`
	Reason     string  `json:"reason"`
	ClosePrice float64 `json:"close_price,omitempty"`
}

type predictRequest struct {
	Symbol string `json:"symbol"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type failedResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleExecute opens a new position. Malformed requests are rejected
// with 400; domain validation failures return 200 with status "failed"
// so trading clients can distinguish them from protocol errors.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Symbol == "" || req.Side == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "symbol and side are required"})
		return
	}
	side := models.Side(req.Side)
	if !side.Valid() {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "side must be buy or sell"})
		return
	}

	result, err := s.engine.ExecuteTrade(r.Context(), engine.TradeRequest{
		Symbol:     req.Symbol,
		Side:       side,
		Amount:     req.Amount,
		Confidence: req.Confidence,
		TakeProfit: req.TakeProfit,
		StopLoss:   req.StopLoss,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"trade_id":         result.Position.ID,
		"symbol":           result.Position.Symbol,
		"side":             result.Position.Side,
		"amount":           result.Position.Amount,
		"quantity":         result.Position.Quantity,
		"price":            result.ExecutionPrice,
		"take_profit":      result.Position.TakeProfit,
		"stop_loss":        result.Position.StopLoss,
		"fees":             result.Fees,
		"estimated_profit": result.EstimatedProfit,
		"status":           "executed",
		"timestamp":        result.Position.OpenedAt.UTC().Format(time.RFC3339),
		"message":          "Trade executed successfully",
	})
}

// handlePortfolio returns the current balances and tradable universe.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolio":       s.engine.Portfolio(),
		"total_value":     s.engine.PortfolioValue(),
		"available_pairs": s.feed.Symbols(),
		"current_prices":  s.feed.Prices(),
		"trading_fees":    "0.1%",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// handleClose closes an open position. Unknown trade IDs return 404.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.TradeID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "trade_id is required"})
		return
	}
	if req.Reason == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "reason is required"})
		return
	}

	record, err := s.engine.CloseTradeAt(r.Context(), req.TradeID, req.ClosePrice, models.CloseReason(req.Reason))
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrInvalidReason):
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid close reason"})
		case errors.Is(err, errors.ErrPositionNotFound):
			s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "trade not found"})
		default:
			s.writeInternalError(w, err)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"trade_id":        record.ID,
		"symbol":          record.Symbol,
		"close_price":     record.ClosePrice,
		"close_timestamp": record.ClosedAt.UTC().Format(time.RFC3339),
		"realized_pnl":    record.RealizedPnL,
		"fees":            record.Fees,
		"reason":          record.CloseReason,
		"message":         "Trade closed successfully",
	})
}

// handleStatus runs one sweep and returns the full engine snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report := s.engine.Status(r.Context())
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"open_trades":        report.OpenTrades,
		"trade_history":      report.TradeHistory,
		"auto_closed_trades": report.AutoClosed,
		"portfolio":          report.Portfolio,
		"current_prices":     report.CurrentPrices,
		"performance":        report.Performance,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMarket returns market data for one symbol, its OHLC history, or
// the full market summary.
func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	if symbol == "" {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"data":      s.feed.All(),
			"summary":   s.feed.Summary(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	if r.URL.Query().Get("historical") == "true" {
		interval := r.URL.Query().Get("interval")
		if interval == "" {
			interval = "1h"
		}
		limit := 24
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		hist, err := s.feed.Historical(symbol, interval, limit)
		if err != nil {
			s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "symbol not found"})
			return
		}
		s.writeJSON(w, http.StatusOK, hist)
		return
	}

	data, err := s.feed.Data(symbol)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "symbol not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

// handlePredict returns a buy/sell/hold recommendation for a symbol.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Symbol == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "symbol is required"})
		return
	}

	pred, indicators, err := s.predictor.Predict(r.Context(), req.Symbol)
	if err != nil {
		if errors.Is(err, errors.ErrSymbolNotFound) {
			s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "symbol not found"})
			return
		}
		s.writeInternalError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":               req.Symbol,
		"prediction":           pred.Action,
		"confidence":           pred.Confidence,
		"reasoning":            pred.Reasoning,
		"expected_move":        pred.ExpectedMovePct,
		"technical_indicators": indicators,
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
	})
}

// writeDomainError maps trade validation failures to a 200 response
// with status "failed". Anything unexpected becomes a 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var verr *errors.ValidationError
	switch {
	case errors.Is(err, errors.ErrSymbolNotFound):
		s.writeJSON(w, http.StatusOK, failedResponse{Status: "failed", Message: "unknown symbol"})
	case errors.Is(err, errors.ErrInsufficientFunds):
		s.writeJSON(w, http.StatusOK, failedResponse{Status: "failed", Message: "insufficient balance"})
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusOK, failedResponse{Status: "failed", Message: verr.Message})
	default:
		s.writeInternalError(w, err)
	}
}

func (s *Server) writeInternalError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("internal server error")
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("encoding response")
	}
}
