// Package domain defines core data structures used throughout the exchange simulator.
package domain

import (
	"time"

	"github.com/pkg/errors"
)

// Volatility expected per-tick relative price swing of an instrument.
type Volatility float64

const (
	VolatilityLow    Volatility = 0.002
	VolatilityMedium Volatility = 0.008
	VolatilityHigh   Volatility = 0.025
)

// Sector industry classification of an instrument.
type Sector string

const (
	SectorMedia       Sector = "Media & Brands"
	SectorInfra       Sector = "Infrastructure & Control"
	SectorSecurity    Sector = "Security & Defense"
	SectorLogistics   Sector = "Logistics & Transport"
	SectorIndustry    Sector = "Industry & Materials"
	SectorTech        Sector = "Technology & IT"
	SectorRealEstate  Sector = "Real Estate"
	SectorAgriculture Sector = "Agriculture & Food"
	SectorEnergy      Sector = "Energy"
	SectorMining      Sector = "Mining"
	SectorFinance     Sector = "Finance"
)

// Ownership ownership structure of the issuing company.
type Ownership string

const (
	OwnershipState   Ownership = "State"
	OwnershipPrivate Ownership = "Private"
	OwnershipMixed   Ownership = "Mixed"
)

// PriceSample one OHLCV point of an instrument history.
type PriceSample struct {
	Time   time.Time `json:"time"`
	Value  float64   `json:"value"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// IndexPoint one value of the market index history.
type IndexPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Instrument tradable simulated security.
type Instrument struct {
	ID                string        `json:"id" yaml:"id"`
	Ticker            string        `json:"ticker" yaml:"ticker"`
	Name              string        `json:"name" yaml:"name"`
	Sector            Sector        `json:"sector" yaml:"sector"`
	Ownership         Ownership     `json:"ownership" yaml:"ownership"`
	Description       string        `json:"description,omitempty" yaml:"description"`
	Volatility        Volatility    `json:"volatility" yaml:"volatility"`
	BasePrice         float64       `json:"basePrice" yaml:"base_price"`
	SharesOutstanding int64         `json:"sharesOutstanding" yaml:"shares_outstanding"`
	DividendYield     float64       `json:"dividendYield" yaml:"dividend_yield"`
	PERatio           float64       `json:"peRatio" yaml:"pe_ratio"`
	CurrentPrice      float64       `json:"currentPrice" yaml:"-"`
	Change24h         float64       `json:"change24h" yaml:"-"`
	History           []PriceSample `json:"history" yaml:"-"`
}

// Validate checks static attributes of the instrument.
func (i *Instrument) Validate() error {
	if i.ID == "" {
		return errors.New("instrument id is required")
	}
	if i.Ticker == "" {
		return errors.Errorf("instrument %s: ticker is required", i.ID)
	}
	if i.BasePrice <= 0 {
		return errors.Errorf("instrument %s: base price must be positive, got %v", i.ID, i.BasePrice)
	}
	if i.SharesOutstanding <= 0 {
		return errors.Errorf("instrument %s: shares outstanding must be positive, got %d", i.ID, i.SharesOutstanding)
	}
	if i.Volatility <= 0 {
		return errors.Errorf("instrument %s: volatility must be positive, got %v", i.ID, i.Volatility)
	}
	return nil
}

// ChangePercent returns the change of price relative to the base price, in percent.
// This is a since-session-start figure; it is exposed as change24h for compatibility.
func (i *Instrument) ChangePercent(price float64) float64 {
	return (price - i.BasePrice) / i.BasePrice * 100
}

// MarketCap returns capitalization at the current price.
func (i *Instrument) MarketCap() float64 {
	return i.CurrentPrice * float64(i.SharesOutstanding)
}

// BaseMarketCap returns capitalization at the base price.
func (i *Instrument) BaseMarketCap() float64 {
	return i.BasePrice * float64(i.SharesOutstanding)
}

// Clone returns a deep copy, history included.
func (i Instrument) Clone() Instrument {
	if i.History != nil {
		history := make([]PriceSample, len(i.History))
		copy(history, i.History)
		i.History = history
	}
	return i
}

// MarketSnapshot consistent view of the market after a tick.
type MarketSnapshot struct {
	Seq          uint64       `json:"seq"`
	Time         time.Time    `json:"time"`
	Instruments  []Instrument `json:"instruments"`
	Index        float64      `json:"index"`
	IndexHistory []IndexPoint `json:"indexHistory"`
}

// Find returns the instrument with the given id.
func (s *MarketSnapshot) Find(id string) (Instrument, bool) {
	for _, inst := range s.Instruments {
		if inst.ID == id {
			return inst, true
		}
	}
	return Instrument{}, false
}
