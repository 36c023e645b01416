package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"papertrader/internal/book"
	"papertrader/internal/config"
	"papertrader/internal/errors"
	"papertrader/internal/history"
	"papertrader/internal/ledger"
	"papertrader/internal/logging"
	"papertrader/internal/market"
	"papertrader/internal/models"
)

// slippageSpread is the total width of the uniform slippage band
// applied to execution prices, as a fraction of the quoted price.
const slippageSpread = 0.002

// defaultEntryConfidence is assigned when a trade request carries no
// model confidence.
const defaultEntryConfidence = 70

// TradeRequest describes a trade to open. TakeProfit, StopLoss and
// Confidence are optional; zero values select the side-appropriate
// defaults.
type TradeRequest struct {
	Symbol     string
	Side       models.Side
	Amount     float64
	TakeProfit float64
	StopLoss   float64
	Confidence float64
}

// ExecutionResult reports a filled trade.
type ExecutionResult struct {
	Position        models.Position
	ExecutionPrice  float64
	Fees            float64
	EstimatedProfit float64
}

// StatusReport is the full engine state snapshot returned by Status.
type StatusReport struct {
	OpenTrades    []models.Position     `json:"open_trades"`
	TradeHistory  []models.TradeRecord  `json:"trade_history"`
	AutoClosed    []models.TradeRecord  `json:"auto_closed_trades"`
	Portfolio     map[string]float64    `json:"portfolio"`
	CurrentPrices map[string]float64    `json:"current_prices"`
	Performance   history.Stats         `json:"performance"`
}

// Engine ties the price feed, ledger, position book, trade history and
// close evaluator together. A single mutex serializes every lifecycle
// transition, so a position can only ever be settled once.
type Engine struct {
	mu sync.Mutex

	feed    *market.Feed
	ledger  *ledger.Ledger
	book    *book.Book
	history *history.History
	eval    *Evaluator
	cfg     config.EngineConfig
	log     zerolog.Logger

	rng   *rand.Rand
	now   func() time.Time
	newID func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand overrides the slippage randomness source, for tests.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithIDGenerator overrides trade ID generation, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New creates a trade lifecycle engine.
func New(feed *market.Feed, lg *ledger.Ledger, bk *book.Book, hist *history.History, eval *Evaluator, cfg config.EngineConfig, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		feed:    feed,
		ledger:  lg,
		book:    bk,
		history: hist,
		eval:    eval,
		cfg:     cfg,
		log:     logging.WithComponent(log, "engine"),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteTrade validates and fills a trade request. Validation failures
// leave the ledger and book untouched.
func (e *Engine) ExecuteTrade(ctx context.Context, req TradeRequest) (ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !req.Side.Valid() {
		return ExecutionResult{}, errors.NewValidationError("type", string(req.Side), "must be buy or sell")
	}
	if req.Amount <= 0 {
		return ExecutionResult{}, errors.NewValidationError("amount", req.Amount, "must be positive")
	}
	quote, err := e.feed.Price(req.Symbol)
	if err != nil {
		return ExecutionResult{}, err
	}

	execPrice := quote * (1 + (e.rng.Float64()-0.5)*slippageSpread)
	if err := e.ledger.CheckOpen(req.Symbol, req.Side, req.Amount, execPrice); err != nil {
		return ExecutionResult{}, err
	}

	confidence := req.Confidence
	if confidence == 0 {
		confidence = defaultEntryConfidence
	}
	takeProfit, stopLoss := req.TakeProfit, req.StopLoss
	if takeProfit == 0 {
		if req.Side == models.SideLong {
			takeProfit = execPrice * 1.1
		} else {
			takeProfit = execPrice * 0.9
		}
	}
	if stopLoss == 0 {
		if req.Side == models.SideLong {
			stopLoss = execPrice * 0.95
		} else {
			stopLoss = execPrice * 1.05
		}
	}

	fees := e.ledger.SettleOpen(req.Symbol, req.Side, req.Amount, execPrice)

	pos := models.Position{
		ID:         e.newID(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		Amount:     req.Amount,
		Quantity:   req.Amount / execPrice,
		EntryPrice: execPrice,
		TakeProfit: takeProfit,
		StopLoss:   stopLoss,
		Confidence: confidence,
		OpenedAt:   e.now(),
		Status:     models.StatusOpen,
	}
	pos.MarkPrice(execPrice)

	if err := e.book.Open(pos); err != nil {
		return ExecutionResult{}, err
	}

	logging.LogTradeOpened(e.log, pos.ID, pos.Symbol, string(pos.Side), pos.Quantity, execPrice, fees)

	return ExecutionResult{
		Position:        pos,
		ExecutionPrice:  execPrice,
		Fees:            fees,
		EstimatedProfit: estimatedProfit(req.Amount, confidence, req.Side),
	}, nil
}

// estimatedProfit projects the expected outcome of a new trade from its
// entry confidence. Confidence at or below the gate projects zero.
func estimatedProfit(amount, confidence float64, side models.Side) float64 {
	if confidence <= signalConfidenceGate {
		return 0
	}
	estimate := amount * 0.02 * ((confidence - signalConfidenceGate) / 30)
	if side == models.SideShort {
		return -estimate
	}
	return estimate
}

// CloseTrade closes an open position at the current market price for
// the given reason. Unknown trade IDs return ErrPositionNotFound; a
// concurrent double close settles exactly once.
func (e *Engine) CloseTrade(ctx context.Context, tradeID string, reason models.CloseReason) (models.TradeRecord, error) {
	return e.CloseTradeAt(ctx, tradeID, 0, reason)
}

// CloseTradeAt is CloseTrade with an explicit close price. A zero price
// settles at the current market price instead.
func (e *Engine) CloseTradeAt(ctx context.Context, tradeID string, price float64, reason models.CloseReason) (models.TradeRecord, error) {
	if !requestableReason(reason) {
		return models.TradeRecord{}, errors.ErrInvalidReason
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	pos, err := e.book.Get(tradeID)
	if err != nil {
		return models.TradeRecord{}, errors.NewTradeError(tradeID, "", "close", string(reason), err)
	}
	if price == 0 {
		price, err = e.feed.Price(pos.Symbol)
		if err != nil {
			return models.TradeRecord{}, errors.NewTradeError(tradeID, pos.Symbol, "close", string(reason), err)
		}
	}
	return e.settleClose(pos.ID, price, reason)
}

// requestableReason reports whether callers may close a trade for this
// reason. max_duration is reserved for the sweep policy.
func requestableReason(reason models.CloseReason) bool {
	for _, r := range models.RequestableReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// settleClose removes the position, settles it against the ledger and
// appends the immutable trade record. Callers must hold e.mu.
func (e *Engine) settleClose(tradeID string, price float64, reason models.CloseReason) (models.TradeRecord, error) {
	pos, err := e.book.Remove(tradeID)
	if err != nil {
		return models.TradeRecord{}, err
	}

	result := e.ledger.SettleClose(&pos, price)

	record := models.TradeRecord{
		ID:          pos.ID,
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		Quantity:    pos.Quantity,
		EntryPrice:  pos.EntryPrice,
		ClosePrice:  price,
		RealizedPnL: result.RealizedPnL,
		Fees:        result.Fees,
		ClosedAt:    e.now(),
		CloseReason: reason,
	}
	e.history.Append(record)

	logging.LogTradeClosed(e.log, record.ID, record.Symbol, string(reason), price, result.RealizedPnL, result.Fees)
	return record, nil
}

// Sweep advances the price feed, re-marks every open position and
// closes those whose close conditions now hold. It returns the trades
// closed during this pass.
func (e *Engine) Sweep(ctx context.Context) []models.TradeRecord {
	start := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	prices := e.feed.Advance()
	e.book.RefreshPrices(prices)

	var closed []models.TradeRecord
	for _, pos := range e.book.ListOpen() {
		decision, shouldClose := e.eval.Evaluate(ctx, pos)
		if !shouldClose {
			continue
		}
		record, err := e.settleClose(pos.ID, decision.Price, decision.Reason)
		if err != nil {
			continue
		}
		closed = append(closed, record)
	}

	logging.LogSweep(e.log, e.book.Count(), len(closed), time.Since(start))
	return closed
}

// Portfolio returns the current ledger balances without running a
// sweep.
func (e *Engine) Portfolio() map[string]float64 {
	return e.ledger.Snapshot()
}

// PortfolioValue marks every holding at current feed prices and returns
// the total portfolio value in cash terms.
func (e *Engine) PortfolioValue() float64 {
	return e.ledger.TotalValue(e.feed.Prices())
}

// Status runs a sweep and returns the resulting engine state: remaining
// open positions, recent history, trades auto-closed by this sweep,
// portfolio balances, current prices and performance statistics.
func (e *Engine) Status(ctx context.Context) StatusReport {
	autoClosed := e.Sweep(ctx)
	if autoClosed == nil {
		autoClosed = []models.TradeRecord{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	open := e.book.ListOpen()
	if open == nil {
		open = []models.Position{}
	}
	recent := e.history.Recent(e.cfg.HistoryLimit)
	if recent == nil {
		recent = []models.TradeRecord{}
	}

	return StatusReport{
		OpenTrades:    open,
		TradeHistory:  recent,
		AutoClosed:    autoClosed,
		Portfolio:     e.ledger.Snapshot(),
		CurrentPrices: e.feed.Prices(),
		Performance:   e.history.ComputeStats(),
	}
}
