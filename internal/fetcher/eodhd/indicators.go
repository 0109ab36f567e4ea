package eodhd

import (
	"github.com/ternarybob/funnel/internal/models"
)

// SMA returns the simple moving average over the last period closes, or 0
// when there is not enough history.
func SMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

// RSI returns the Wilder-smoothed relative strength index over the last
// period closes, or 0 when there is not enough history.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 0
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		var g, l float64
		if delta > 0 {
			g = delta
		} else {
			l = -delta
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line (EMA12-EMA26) and its 9-period signal line.
// Both are 0 when there is not enough history.
func MACD(closes []float64) (macd, signal float64) {
	const (
		fast   = 12
		slow   = 26
		smooth = 9
	)
	if len(closes) < slow+smooth {
		return 0, 0
	}

	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)

	// MACD line exists from the point the slow EMA is defined.
	macdLine := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		macdLine = append(macdLine, fastEMA[i]-slowEMA[i])
	}

	signalLine := emaSeries(macdLine, smooth)
	return macdLine[len(macdLine)-1], signalLine[len(signalLine)-1]
}

// emaSeries computes the exponential moving average at every index, seeded
// with the SMA of the first period values. Entries before the seed point
// repeat the seed.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) < period {
		return out
	}

	var sum float64
	for _, v := range values[:period] {
		sum += v
	}
	ema := sum / float64(period)
	for i := 0; i < period; i++ {
		out[i] = ema
	}

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = values[i]*k + ema*(1-k)
		out[i] = ema
	}
	return out
}

// ClassifyTrend buckets price against the 50 and 200 day moving averages.
// Missing averages (0) degrade toward neutral.
func ClassifyTrend(price, sma50, sma200 float64) models.Trend {
	if sma50 == 0 || sma200 == 0 {
		return models.TrendNeutral
	}

	switch {
	case price > sma50 && sma50 > sma200:
		return models.TrendStrongUp
	case price > sma200:
		return models.TrendUp
	case price < sma50 && sma50 < sma200:
		return models.TrendStrongDown
	case price < sma200:
		return models.TrendDown
	default:
		return models.TrendNeutral
	}
}
