package signal

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"papertrader/internal/analysis"
	"papertrader/internal/market"
	"papertrader/internal/models"
)

// TechnicalSnapshot is the indicator state used for a prediction,
// returned alongside the prediction itself so callers can display it.
type TechnicalSnapshot struct {
	RSI     float64 `json:"rsi"`
	MACD    float64 `json:"macd"`
	SMA20   float64 `json:"sma_20"`
	SMA50   float64 `json:"sma_50"`
	BBUpper float64 `json:"bb_upper"`
	BBLower float64 `json:"bb_lower"`
	Price   float64 `json:"current_price"`
	Points  int     `json:"data_points"`
}

const predictorSeriesPoints = 100

// Predictor produces buy/sell/hold recommendations for a symbol from
// technical indicators, consulting the oracle when available and
// falling back to indicator rules otherwise.
type Predictor struct {
	feed    *market.Feed
	oracle  Oracle
	timeout time.Duration
	log     zerolog.Logger
}

// NewPredictor creates a market predictor. A nil oracle routes every
// request to the rule-based path.
func NewPredictor(feed *market.Feed, oracle Oracle, timeout time.Duration, log zerolog.Logger) *Predictor {
	return &Predictor{
		feed:    feed,
		oracle:  oracle,
		timeout: timeout,
		log:     log.With().Str("component", "predictor").Logger(),
	}
}

// Predict computes indicators over a generated price series for the
// symbol and returns a recommendation. Unknown symbols return an error;
// oracle failures do not.
func (p *Predictor) Predict(ctx context.Context, symbol string) (models.Prediction, TechnicalSnapshot, error) {
	series, err := p.feed.Series(symbol, predictorSeriesPoints)
	if err != nil {
		return models.Prediction{}, TechnicalSnapshot{}, err
	}

	price := series[len(series)-1]
	bands := analysis.BollingerBands(series, 20)
	snap := TechnicalSnapshot{
		RSI:     analysis.Last(analysis.RSI(series, 14)),
		MACD:    analysis.Last(analysis.MACD(series)),
		SMA20:   analysis.Last(analysis.SMA(series, 20)),
		SMA50:   analysis.Last(analysis.SMA(series, 50)),
		BBUpper: analysis.Last(bands.Upper),
		BBLower: analysis.Last(bands.Lower),
		Price:   price,
		Points:  len(series),
	}

	if p.oracle != nil {
		octx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		pred, oerr := p.oracle.PredictMarket(octx, MarketSnapshot{
			Symbol:       symbol,
			CurrentPrice: price,
			RSI:          snap.RSI,
			MACD:         snap.MACD,
			PriceVsSMA20: price - snap.SMA20,
			PriceVsSMA50: price - snap.SMA50,
		})
		if oerr == nil {
			return pred, snap, nil
		}
		p.log.Warn().Err(oerr).Str("symbol", symbol).Msg("oracle unavailable, using rule-based prediction")
	}

	return rulePrediction(snap), snap, nil
}

// rulePrediction derives a recommendation from RSI, MACD and moving
// average posture. Oversold RSI plus a price above both averages reads
// bullish; the mirror reads bearish; everything else holds.
func rulePrediction(snap TechnicalSnapshot) models.Prediction {
	prediction := "hold"
	confidence := 50.0
	reasoning := "Neutral market conditions based on technical indicators"
	expectedMove := 0.5

	switch {
	case snap.RSI < 30 && snap.Price > snap.SMA20:
		prediction = "buy"
		confidence = 75
		reasoning = "RSI indicates oversold conditions with price above SMA20, suggesting potential upward momentum"
		expectedMove = 2.5
	case snap.RSI > 70 && snap.Price < snap.SMA20:
		prediction = "sell"
		confidence = 75
		reasoning = "RSI indicates overbought conditions with price below SMA20, suggesting potential downward pressure"
		expectedMove = -2.5
	case snap.MACD > 0 && snap.Price > snap.SMA50:
		prediction = "buy"
		confidence = 65
		reasoning = "Positive MACD with price above SMA50 indicates bullish trend continuation"
		expectedMove = 1.5
	case snap.MACD < 0 && snap.Price < snap.SMA50:
		prediction = "sell"
		confidence = 65
		reasoning = "Negative MACD with price below SMA50 indicates bearish trend continuation"
		expectedMove = -1.5
	}

	return models.Prediction{
		Action:          prediction,
		Confidence:      confidence,
		Reasoning:       reasoning,
		ExpectedMovePct: expectedMove,
	}
}
