// Package analysis provides technical indicator calculations over price series.
package analysis

import "math"

// SMA calculates the simple moving average for each point of the
// series. Points before the first full period are zero.
func SMA(prices []float64, period int) []float64 {
	sma := make([]float64, len(prices))
	if period <= 0 {
		return sma
	}

	var sum float64
	for i, price := range prices {
		sum += price
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			sma[i] = sum / float64(period)
		}
	}
	return sma
}

// EMA calculates the exponential moving average, seeded from the first
// price.
func EMA(prices []float64, period int) []float64 {
	ema := make([]float64, len(prices))
	if len(prices) == 0 || period <= 0 {
		return ema
	}

	multiplier := 2.0 / float64(period+1)
	ema[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		ema[i] = (prices[i]-ema[i-1])*multiplier + ema[i-1]
	}
	return ema
}

// RSI calculates the Relative Strength Index. Points before the first
// full period report the neutral value 50.
func RSI(prices []float64, period int) []float64 {
	rsi := make([]float64, len(prices))
	if period <= 0 {
		return rsi
	}

	changes := make([]float64, 0, len(prices))
	for i := 1; i < len(prices); i++ {
		changes = append(changes, prices[i]-prices[i-1])
	}

	for i := range prices {
		if i < period {
			rsi[i] = 50
			continue
		}

		var avgGain, avgLoss float64
		for _, change := range changes[i-period : i] {
			if change > 0 {
				avgGain += change
			} else {
				avgLoss += -change
			}
		}
		avgGain /= float64(period)
		avgLoss /= float64(period)

		if avgLoss == 0 {
			rsi[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		rsi[i] = 100 - 100/(1+rs)
	}
	return rsi
}

// MACD calculates the moving average convergence divergence as the
// difference between the 12- and 26-period EMAs.
func MACD(prices []float64) []float64 {
	ema12 := EMA(prices, 12)
	ema26 := EMA(prices, 26)

	macd := make([]float64, len(prices))
	for i := range prices {
		macd[i] = ema12[i] - ema26[i]
	}
	return macd
}

// Bands holds Bollinger band values.
type Bands struct {
	Upper []float64
	Lower []float64
}

// BollingerBands calculates Bollinger bands at two standard deviations
// around the period SMA. Points before the first full period are zero.
func BollingerBands(prices []float64, period int) Bands {
	bands := Bands{
		Upper: make([]float64, len(prices)),
		Lower: make([]float64, len(prices)),
	}
	if period <= 0 {
		return bands
	}

	sma := SMA(prices, period)
	for i := range prices {
		if i < period-1 {
			continue
		}
		mean := sma[i]
		var variance float64
		for _, price := range prices[i-period+1 : i+1] {
			variance += (price - mean) * (price - mean)
		}
		stdDev := math.Sqrt(variance / float64(period))
		bands.Upper[i] = mean + stdDev*2
		bands.Lower[i] = mean - stdDev*2
	}
	return bands
}

// Last returns the final value of a series, zero when empty.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}
