package ta

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	got := SMA(closes, 5)
	if got != 3 {
		t.Errorf("Expected SMA 3, got %f", got)
	}

	got = SMA(closes, 2)
	if got != 4.5 {
		t.Errorf("Expected SMA 4.5, got %f", got)
	}

	if !math.IsNaN(SMA(closes, 10)) {
		t.Error("Expected NaN for window larger than series")
	}
}

func TestEMAConvergesToConstant(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 7.0
	}
	got := EMA(closes, 12)
	if math.Abs(got-7.0) > 1e-9 {
		t.Errorf("Expected EMA of a constant series to be 7, got %f", got)
	}
}

func TestRSI(t *testing.T) {
	// Monotonically rising series: no losses, RSI is 100.
	rising := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	got := RSI(rising, 14)
	if got != 100 {
		t.Errorf("Expected RSI 100 for rising series, got %f", got)
	}

	falling := []float64{16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	got = RSI(falling, 14)
	if got != 0 {
		t.Errorf("Expected RSI 0 for falling series, got %f", got)
	}

	if !math.IsNaN(RSI([]float64{1, 2}, 14)) {
		t.Error("Expected NaN for insufficient data")
	}
}

func TestBollingerConstantSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 10
	}
	mid, up, low := Bollinger(closes, 20, 2.0)
	if mid != 10 || up != 10 || low != 10 {
		t.Errorf("Expected flat bands at 10, got mid=%f up=%f low=%f", mid, up, low)
	}
}

func TestATR(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = 11
		lows[i] = 9
		closes[i] = 10
	}
	got := ATR(highs, lows, closes, 14)
	if math.Abs(got-2.0) > 1e-9 {
		t.Errorf("Expected ATR 2, got %f", got)
	}

	if !math.IsNaN(ATR(highs[:2], lows, closes, 14)) {
		t.Error("Expected NaN for mismatched series lengths")
	}
}

func TestMACDInsufficientData(t *testing.T) {
	line, sig, hist := MACD([]float64{1, 2, 3}, 12, 26, 9)
	if !math.IsNaN(line) || !math.IsNaN(sig) || !math.IsNaN(hist) {
		t.Error("Expected NaN MACD values for short series")
	}
}
