package wbs

import "math"

// Reading is the effective quantity/price/amount of one (series, version)
// pair after normalization.
type Reading struct {
	Quantity float64  `json:"quantity"`
	Price    float64  `json:"price"`
	Amount   float64  `json:"amount"`
	LineType LineType `json:"line_type"`
}

// ReadSeries is the single source of truth for effective values.
//
// Decomposed tuples take their quantity from QuantityDecomposed and their
// amount from quantity × price; the stored amount is ignored. Plain tuples
// are read verbatim. Any NaN or infinite field reads as 0, and a version the
// item does not carry reads as the zero tuple.
func ReadSeries(item *WorkItem, s Series, v int) Reading {
	if item == nil {
		return Reading{LineType: LinePlain}
	}
	t := item.Tuple(s, v)
	lt := t.LineType
	if lt == "" {
		lt = LinePlain
	}

	if lt == LineDecomposed {
		q := finite(t.QuantityDecomposed)
		p := finite(t.Price)
		return Reading{Quantity: q, Price: p, Amount: finite(q * p), LineType: lt}
	}
	return Reading{
		Quantity: finite(t.Quantity),
		Price:    finite(t.Price),
		Amount:   finite(t.Amount),
		LineType: lt,
	}
}

// Scaled applies a uniform multiplier to price and amount (coefK on cost).
func (r Reading) Scaled(k float64) Reading {
	r.Price = finite(r.Price * k)
	r.Amount = finite(r.Amount * k)
	return r
}

// ReadAdjusted reads a series and applies coefK when it is the cost series.
func ReadAdjusted(item *WorkItem, s Series, v int, coefK float64) Reading {
	r := ReadSeries(item, s, v)
	if s == SeriesCost {
		return r.Scaled(coefK)
	}
	return r
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
