// Package engine orchestrates the trade lifecycle: execution, close
// evaluation, settlement and the periodic sweep.
package engine

import (
	"context"
	"fmt"
	"time"

	"papertrader/internal/models"
	"papertrader/internal/signal"
)

// signalConfidenceGate is the minimum confidence a close signal needs
// before the evaluator acts on it.
const signalConfidenceGate = 70

// Evaluator decides whether an open position should be closed and why.
// Conditions are checked in a fixed priority order; the first match
// wins: take profit, stop loss, hard age limit, then the close signal.
type Evaluator struct {
	gen            *signal.Generator
	minSignalAge   time.Duration
	maxPositionAge time.Duration // 0 disables the hard age limit
	now            func() time.Time
}

// NewEvaluator creates a close evaluator. Signals are only consulted
// for positions older than minSignalAge.
func NewEvaluator(gen *signal.Generator, minSignalAge, maxPositionAge time.Duration) *Evaluator {
	return &Evaluator{
		gen:            gen,
		minSignalAge:   minSignalAge,
		maxPositionAge: maxPositionAge,
		now:            time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// Evaluate checks the position against its close conditions. It returns
// the close decision and true when the position should be closed, or a
// zero decision and false when it should stay open. Take profit and
// stop loss levels are boundary inclusive.
func (e *Evaluator) Evaluate(ctx context.Context, pos models.Position) (models.CloseDecision, bool) {
	price := pos.CurrentPrice

	if pos.TakeProfit > 0 && hitTakeProfit(pos.Side, price, pos.TakeProfit) {
		return models.CloseDecision{
			Reason:     models.CloseTakeProfit,
			Price:      price,
			Confidence: 100,
			Reasoning:  fmt.Sprintf("Take profit level %.2f reached", pos.TakeProfit),
		}, true
	}
	if pos.StopLoss > 0 && hitStopLoss(pos.Side, price, pos.StopLoss) {
		return models.CloseDecision{
			Reason:     models.CloseStopLoss,
			Price:      price,
			Confidence: 100,
			Reasoning:  fmt.Sprintf("Stop loss level %.2f reached", pos.StopLoss),
		}, true
	}

	age := pos.Age(e.now())
	if e.maxPositionAge > 0 && age > e.maxPositionAge {
		return models.CloseDecision{
			Reason:     models.CloseMaxDuration,
			Price:      price,
			Confidence: 100,
			Reasoning:  "Maximum position age exceeded",
		}, true
	}

	if age <= e.minSignalAge {
		return models.CloseDecision{}, false
	}
	sig, _ := e.gen.Generate(ctx, pos)
	if sig.ShouldClose && sig.Confidence > signalConfidenceGate {
		return models.CloseDecision{
			Reason:     models.CloseMLSignal,
			Price:      price,
			Confidence: sig.Confidence,
			Reasoning:  sig.Reasoning,
		}, true
	}
	return models.CloseDecision{}, false
}

func hitTakeProfit(side models.Side, price, level float64) bool {
	if side == models.SideLong {
		return price >= level
	}
	return price <= level
}

func hitStopLoss(side models.Side, price, level float64) bool {
	if side == models.SideLong {
		return price <= level
	}
	return price >= level
}
