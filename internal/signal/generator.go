package signal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"papertrader/internal/logging"
	"papertrader/internal/models"
)

// Source identifies which path produced a close signal.
type Source string

const (
	SourceOracle   Source = "oracle"
	SourceFallback Source = "fallback"
)

// Generator produces close signals for open positions. It consults the
// oracle when one is configured and degrades to the deterministic rule
// set on any failure, so Generate is total: it always returns a signal.
type Generator struct {
	oracle  Oracle
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorClock overrides the time source, for tests.
func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a signal generator. A nil oracle is valid and
// routes every request to the fallback rules.
func NewGenerator(oracle Oracle, timeout time.Duration, log zerolog.Logger, opts ...GeneratorOption) *Generator {
	g := &Generator{
		oracle:  oracle,
		timeout: timeout,
		log:     log.With().Str("component", "signal").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a close signal for the position. The oracle call is
// bounded by the configured timeout; on timeout, transport error or an
// unparsable response the deterministic fallback answers instead.
func (g *Generator) Generate(ctx context.Context, pos models.Position) (models.CloseSignal, Source) {
	now := g.now()
	if g.oracle == nil {
		return FallbackSignal(pos, now), SourceFallback
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	snap := PositionSnapshot{
		Symbol:            pos.Symbol,
		Side:              pos.Side,
		EntryPrice:        pos.EntryPrice,
		CurrentPrice:      pos.CurrentPrice,
		PriceChangePct:    pos.PriceChangePct(),
		UnrealizedPnLPct:  pos.UnrealizedPnLPct(),
		ConfidenceAtEntry: pos.Confidence,
		AgeHours:          pos.Age(now).Hours(),
	}

	sig, err := g.oracle.RecommendClose(ctx, snap)
	if err != nil {
		g.log.Warn().
			Err(err).
			Str("trade_id", pos.ID).
			Str("symbol", pos.Symbol).
			Msg("oracle unavailable, using fallback signal")
		sig = FallbackSignal(pos, now)
		logging.LogSignal(g.log, pos.ID, string(SourceFallback), sig.ShouldClose, sig.Confidence, sig.Reasoning)
		return sig, SourceFallback
	}
	logging.LogSignal(g.log, pos.ID, string(SourceOracle), sig.ShouldClose, sig.Confidence, sig.Reasoning)
	return sig, SourceOracle
}

// FallbackSignal implements the deterministic close rules. It is a pure
// function of the position and the current time: same inputs, same
// signal. Rules are checked in priority order and the first match wins.
func FallbackSignal(pos models.Position, now time.Time) models.CloseSignal {
	pnlPct := pos.UnrealizedPnLPct()
	priceChange := pos.PriceChangePct()

	if math.Abs(pnlPct) >= 10 {
		return models.CloseSignal{
			ShouldClose:     true,
			Confidence:      90,
			Reasoning:       fmt.Sprintf("Position has reached significant P&L threshold: %.2f%% - target reached", pnlPct),
			ExpectedMovePct: 0,
		}
	}
	if math.Abs(priceChange) >= 5 {
		return models.CloseSignal{
			ShouldClose:     true,
			Confidence:      75,
			Reasoning:       fmt.Sprintf("Significant price movement detected: %.2f%%", priceChange),
			ExpectedMovePct: priceChange * 0.3,
		}
	}
	if pos.Age(now) > 24*time.Hour {
		return models.CloseSignal{
			ShouldClose:     true,
			Confidence:      60,
			Reasoning:       "Maximum trade duration reached",
			ExpectedMovePct: 0,
		}
	}
	return models.CloseSignal{
		ShouldClose:     false,
		Confidence:      30,
		Reasoning:       "No strong signals detected, holding position",
		ExpectedMovePct: priceChange * 0.1,
	}
}
