package optimization

import (
	"fmt"
	"math"
)

// TimeSeriesData holds aligned price history, one series per symbol.
type TimeSeriesData struct {
	Dates []string
	Data  map[string][]float64
}

// ReturnSeries holds aligned periodic fractional returns, one series per
// asset, in a fixed symbol order. It is read-only once constructed and is
// shared freely across repeated objective evaluations during a solve.
type ReturnSeries struct {
	Symbols []string
	Returns map[string][]float64

	observations int
}

// NewReturnSeries validates and wraps pre-computed returns. Every symbol must
// have a series of identical length.
func NewReturnSeries(symbols []string, returns map[string][]float64) (*ReturnSeries, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}

	observations := -1
	for _, symbol := range symbols {
		series, ok := returns[symbol]
		if !ok {
			return nil, fmt.Errorf("missing returns for symbol %s", symbol)
		}
		if observations == -1 {
			observations = len(series)
		}
		if len(series) != observations {
			return nil, fmt.Errorf("inconsistent return lengths: expected %d, got %d for symbol %s",
				observations, len(series), symbol)
		}
	}

	return &ReturnSeries{
		Symbols:      symbols,
		Returns:      returns,
		observations: observations,
	}, nil
}

// Observations returns the number of aligned return rows.
func (rs *ReturnSeries) Observations() int {
	return rs.observations
}

// MeanReturns computes the per-asset mean periodic return, in symbol order.
func (rs *ReturnSeries) MeanReturns() []float64 {
	means := make([]float64, len(rs.Symbols))
	if rs.observations == 0 {
		return means
	}
	for i, symbol := range rs.Symbols {
		sum := 0.0
		for _, r := range rs.Returns[symbol] {
			sum += r
		}
		means[i] = sum / float64(rs.observations)
	}
	return means
}

// FillMissing fills gaps in a price series using forward-fill then back-fill,
// so leading and interior NaNs are replaced by the nearest valid observation.
func FillMissing(data TimeSeriesData) TimeSeriesData {
	filled := TimeSeriesData{
		Dates: data.Dates,
		Data:  make(map[string][]float64, len(data.Data)),
	}

	for symbol, prices := range data.Data {
		series := make([]float64, len(prices))
		copy(series, prices)

		var lastValid float64
		hasLastValid := false
		for i := 0; i < len(series); i++ {
			if math.IsNaN(series[i]) {
				if hasLastValid {
					series[i] = lastValid
				}
			} else {
				lastValid = series[i]
				hasLastValid = true
			}
		}

		var nextValid float64
		hasNextValid := false
		for i := len(series) - 1; i >= 0; i-- {
			if math.IsNaN(series[i]) {
				if hasNextValid {
					series[i] = nextValid
				}
			} else {
				nextValid = series[i]
				hasNextValid = true
			}
		}

		filled.Data[symbol] = series
	}

	return filled
}

// SeriesFromPrices converts aligned price history into a ReturnSeries of
// periodic fractional returns. Gaps are filled before differencing, matching
// the behaviour expected of the data-retrieval collaborator.
func SeriesFromPrices(data TimeSeriesData, symbols []string) (*ReturnSeries, error) {
	filled := FillMissing(data)

	returns := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		prices, ok := filled.Data[symbol]
		if !ok {
			return nil, fmt.Errorf("missing price history for symbol %s", symbol)
		}
		if len(prices) < 2 {
			return nil, &InsufficientDataError{Observations: len(prices) - 1}
		}

		series := make([]float64, len(prices)-1)
		for i := 1; i < len(prices); i++ {
			if prices[i-1] > 0 && !math.IsNaN(prices[i]) && !math.IsNaN(prices[i-1]) {
				series[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
			} else {
				series[i-1] = 0.0
			}
		}
		returns[symbol] = series
	}

	return NewReturnSeries(symbols, returns)
}
