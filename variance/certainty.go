package variance

import "github.com/warp/cost-engine/wbs"

// =============================================================================
// CERTAINTY BANDS
// =============================================================================

// Band describes how much a classification's cost may swing either way.
type Band struct {
	Classification int     `json:"classification" yaml:"classification"`
	Description    string  `json:"description" yaml:"description"`
	Percent        float64 `json:"percent" yaml:"percent"`
}

// DefaultBands is the standard 0..5 table. Lower classifications are rougher
// estimates and carry a wider range.
func DefaultBands() []Band {
	return []Band{
		{0, "SIN CLASIFICAR", 25},
		{1, "ESTIMACIÓN PERSONAL / K DE PASO", 20},
		{2, "BASES DE DATOS / PRECIOS SIMILARES DE OTRAS OBRAS / SIS", 18},
		{3, "OFERTAS RECIBIDAS EN ESTUDIOS", 14},
		{4, "COMPARATIVO CON UNA OFERTA", 8},
		{5, "COMPARATIVO CON MÁS DE UNA OFERTA", 3},
	}
}

// Scenario holds one figure under the three outlooks.
type Scenario struct {
	Planned     float64 `json:"planned"`
	Optimistic  float64 `json:"optimistic"`
	Pessimistic float64 `json:"pessimistic"`
}

func (s Scenario) add(o Scenario) Scenario {
	return Scenario{s.Planned + o.Planned, s.Optimistic + o.Optimistic, s.Pessimistic + o.Pessimistic}
}

type BandTotal struct {
	Band
	Items int `json:"items"`
	Scenario
}

type Certainty struct {
	Bands []BandTotal `json:"bands"`

	// Unclassified counts LineItems whose classification falls outside the
	// band table. Their cost is left out of every band.
	Unclassified int `json:"unclassified"`

	Cost   Scenario `json:"cost"`
	Sale   float64  `json:"sale"`
	Result Scenario `json:"result"`
}

// ComputeCertainty groups LineItem cost (×coefK) by classification and
// widens each band by its percentage. Sale is the contract total over every
// LineItem; Result is Sale minus cost under each outlook.
func ComputeCertainty(items []wbs.WorkItem, bands []Band, v Versions) Certainty {
	if len(bands) == 0 {
		bands = DefaultBands()
	}
	pos := make(map[int]int, len(bands))
	c := Certainty{Bands: make([]BandTotal, len(bands))}
	for i, b := range bands {
		pos[b.Classification] = i
		c.Bands[i].Band = b
	}

	for _, it := range wbs.LineItems(items) {
		c.Sale += wbs.ReadSeries(it, wbs.SeriesContract, v.Contract).Amount

		i, ok := pos[it.ClassificationBand()]
		if !ok {
			c.Unclassified++
			continue
		}
		c.Bands[i].Items++
		c.Bands[i].Planned += wbs.ReadAdjusted(it, wbs.SeriesCost, v.Cost, v.CoefK).Amount
	}

	for i := range c.Bands {
		b := &c.Bands[i]
		factor := b.Percent / 100
		b.Optimistic = b.Planned * (1 - factor)
		b.Pessimistic = b.Planned * (1 + factor)
		c.Cost = c.Cost.add(b.Scenario)
	}
	c.Result = Scenario{
		Planned:     c.Sale - c.Cost.Planned,
		Optimistic:  c.Sale - c.Cost.Optimistic,
		Pessimistic: c.Sale - c.Cost.Pessimistic,
	}
	return c
}
