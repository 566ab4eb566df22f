// Package indicators computes technical analysis indicators (EMA, MACD, RSI, ATR)
// over instrument price history.
package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/kxmarket/internal/domain"
)

const (
	SummaryEMAPeriod = 10
	SummaryRSIPeriod = 14
	SummaryATRPeriod = 14

	macdSlowPeriod = 26
)

// ErrNotEnoughData is returned when the history is shorter than the indicator warm-up.
var ErrNotEnoughData = errors.New("not enough data points")

// Summary latest indicator values of one instrument. Nil fields lack history.
type Summary struct {
	EMA10 *float64 `json:"ema10,omitempty"`
	RSI14 *float64 `json:"rsi14,omitempty"`
	ATR14 *float64 `json:"atr14,omitempty"`
}

// Closes extracts close prices, oldest first.
func Closes(history []domain.PriceSample) []float64 {
	closes := make([]float64, len(history))
	for i, s := range history {
		closes[i] = s.Close
	}
	return closes
}

// EMA calculates the Exponential Moving Average for the given period.
func EMA(closes []float64, period int) ([]float64, error) {
	if period < 1 || len(closes) < period {
		return nil, errors.Wrapf(ErrNotEnoughData, "EMA%d: need %d, got %d", period, period, len(closes))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	return helper.ChanToSlice(ema.Compute(helper.SliceToChan(closes))), nil
}

// MACD calculates MACD line values.
func MACD(closes []float64) ([]float64, error) {
	if len(closes) < macdSlowPeriod {
		return nil, errors.Wrapf(ErrNotEnoughData, "MACD: need %d, got %d", macdSlowPeriod, len(closes))
	}

	macd := trend.NewMacd[float64]()
	macdChan, signalChan := macd.Compute(helper.SliceToChan(closes))
	// drain signal channel to prevent blocking
	go func() {
		for range signalChan {
		}
	}()

	return helper.ChanToSlice(macdChan), nil
}

// RSI calculates the Relative Strength Index for the given period.
func RSI(closes []float64, period int) ([]float64, error) {
	if period < 1 || len(closes) < period+1 {
		return nil, errors.Wrapf(ErrNotEnoughData, "RSI%d: need %d, got %d", period, period+1, len(closes))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	return helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes))), nil
}

// ATR calculates the Average True Range for the given period.
func ATR(history []domain.PriceSample, period int) ([]float64, error) {
	if period < 1 || len(history) < period+1 {
		return nil, errors.Wrapf(ErrNotEnoughData, "ATR%d: need %d, got %d", period, period+1, len(history))
	}

	highs := make([]float64, len(history))
	lows := make([]float64, len(history))
	closes := make([]float64, len(history))
	for i, s := range history {
		highs[i] = s.High
		lows[i] = s.Low
		closes[i] = s.Close
	}

	atr := volatility.NewAtrWithPeriod[float64](period)
	out := atr.Compute(helper.SliceToChan(highs), helper.SliceToChan(lows), helper.SliceToChan(closes))

	return helper.ChanToSlice(out), nil
}

// Summarize returns the latest EMA10, RSI14 and ATR14 of the history.
// Indicators without enough samples are left nil.
func Summarize(history []domain.PriceSample) Summary {
	var s Summary
	closes := Closes(history)

	if ema, err := EMA(closes, SummaryEMAPeriod); err == nil {
		s.EMA10 = last(ema)
	}
	if rsi, err := RSI(closes, SummaryRSIPeriod); err == nil {
		s.RSI14 = last(rsi)
	}
	if atr, err := ATR(history, SummaryATRPeriod); err == nil {
		s.ATR14 = last(atr)
	}

	return s
}

func last(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
