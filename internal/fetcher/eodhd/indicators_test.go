package eodhd

import (
	"math"
	"testing"

	"github.com/ternarybob/funnel/internal/models"
)

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		name   string
		period int
		want   float64
	}{
		{"full window", 5, 3},
		{"partial window", 2, 4.5},
		{"single", 1, 5},
		{"insufficient history", 6, 0},
		{"zero period", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SMA(closes, tt.period); got != tt.want {
				t.Errorf("SMA(%d) = %v, want %v", tt.period, got, tt.want)
			}
		})
	}
}

func TestRSI(t *testing.T) {
	t.Run("all gains pins at 100", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = float64(100 + i)
		}
		if got := RSI(closes, 14); got != 100 {
			t.Errorf("RSI = %v, want 100", got)
		}
	})

	t.Run("all losses pins at 0", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			closes[i] = float64(100 - i)
		}
		if got := RSI(closes, 14); got != 0 {
			t.Errorf("RSI = %v, want 0", got)
		}
	})

	t.Run("alternating series lands mid-range", func(t *testing.T) {
		closes := make([]float64, 30)
		for i := range closes {
			if i%2 == 0 {
				closes[i] = 100
			} else {
				closes[i] = 101
			}
		}
		got := RSI(closes, 14)
		if got < 30 || got > 70 {
			t.Errorf("RSI = %v, want mid-range", got)
		}
	})

	t.Run("insufficient history", func(t *testing.T) {
		if got := RSI([]float64{1, 2, 3}, 14); got != 0 {
			t.Errorf("RSI = %v, want 0", got)
		}
	})
}

func TestMACD(t *testing.T) {
	t.Run("insufficient history", func(t *testing.T) {
		macd, signal := MACD(make([]float64, 20))
		if macd != 0 || signal != 0 {
			t.Errorf("MACD = (%v, %v), want (0, 0)", macd, signal)
		}
	})

	t.Run("flat series yields zero lines", func(t *testing.T) {
		closes := make([]float64, 60)
		for i := range closes {
			closes[i] = 50
		}
		macd, signal := MACD(closes)
		if math.Abs(macd) > 1e-9 || math.Abs(signal) > 1e-9 {
			t.Errorf("MACD = (%v, %v), want ~(0, 0)", macd, signal)
		}
	})

	t.Run("rising series yields positive MACD", func(t *testing.T) {
		closes := make([]float64, 60)
		for i := range closes {
			closes[i] = float64(100 + i)
		}
		macd, _ := MACD(closes)
		if macd <= 0 {
			t.Errorf("MACD = %v, want > 0", macd)
		}
	})
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name   string
		price  float64
		sma50  float64
		sma200 float64
		want   models.Trend
	}{
		{"price above both, 50 above 200", 110, 105, 100, models.TrendStrongUp},
		{"price above 200 only", 103, 105, 100, models.TrendUp},
		{"price below both, 50 below 200", 90, 95, 100, models.TrendStrongDown},
		{"price below 200 only", 97, 95, 100, models.TrendDown},
		{"missing sma50", 100, 0, 100, models.TrendNeutral},
		{"missing sma200", 100, 100, 0, models.TrendNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTrend(tt.price, tt.sma50, tt.sma200); got != tt.want {
				t.Errorf("ClassifyTrend() = %q, want %q", got, tt.want)
			}
		})
	}
}
