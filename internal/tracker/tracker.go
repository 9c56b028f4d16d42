package tracker

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Band is the cost range a reading falls into.
type Band int

const (
	BandNormal Band = iota
	BandLow
	BandSuperLow
)

func (b Band) String() string {
	switch b {
	case BandSuperLow:
		return "super_low"
	case BandLow:
		return "low"
	default:
		return "normal"
	}
}

// Kind identifies a notification emitted on a band transition.
type Kind string

const (
	KindSuperLow        Kind = "super_low"
	KindLow             Kind = "low"
	KindStillReasonable Kind = "still_reasonable"
	KindOver            Kind = "over"
)

// State is the persisted pair of notification flags.
type State struct {
	Low      bool
	SuperLow bool
}

// Thresholds holds the inclusive upper bounds of the two cheap bands.
type Thresholds struct {
	SuperLow decimal.Decimal
	Low      decimal.Decimal
}

// DefaultThresholds returns the 0.5 / 1.6 TAO bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SuperLow: decimal.RequireFromString("0.5"),
		Low:      decimal.RequireFromString("1.6"),
	}
}

// Notice is a single message to deliver.
type Notice struct {
	Kind Kind
	Text string
}

// Decision is the outcome of evaluating one reading against the stored flags.
type Decision struct {
	Cost     decimal.Decimal
	Band     Band
	Previous State
	Next     State
	Notices  []Notice
	LogLine  string
}

// Changed reports whether the flags differ from the previous cycle.
func (d Decision) Changed() bool {
	return d.Previous != d.Next
}

// FormatCost renders a cost for messages. Whole numbers keep one decimal
// place, so 1 TAO reads "1.0".
func FormatCost(cost decimal.Decimal) string {
	if cost.IsInteger() {
		return cost.StringFixed(1)
	}
	return cost.String()
}

// Classify maps a cost to its band. Both boundaries belong to the lower band.
func Classify(cost decimal.Decimal, th Thresholds) Band {
	switch {
	case cost.LessThanOrEqual(th.SuperLow):
		return BandSuperLow
	case cost.LessThanOrEqual(th.Low):
		return BandLow
	default:
		return BandNormal
	}
}

// Evaluate decides which notices fire for cost given the previous flags and
// returns the flags to persist. Notices are edge-triggered: repeating a band
// emits nothing.
func Evaluate(prev State, cost decimal.Decimal, th Thresholds) Decision {
	c := FormatCost(cost)
	d := Decision{Cost: cost, Band: Classify(cost, th), Previous: prev}

	switch d.Band {
	case BandSuperLow:
		if !prev.SuperLow {
			d.Notices = append(d.Notices, Notice{Kind: KindSuperLow, Text: fmt.Sprintf("💸💸💸 Cost Super Low! Register Now! - %s $TAO", c)})
		}
		d.Next = State{Low: true, SuperLow: true}
		d.LogLine = fmt.Sprintf("Cost Super Low! - %s $TAO", c)
	case BandLow:
		if !prev.Low {
			d.Notices = append(d.Notices, Notice{Kind: KindLow, Text: fmt.Sprintf("🏷️✂️💸  Cost Low! We're So Fucking Back! - %s $TAO", c)})
		}
		if prev.SuperLow {
			d.Notices = append(d.Notices, Notice{Kind: KindStillReasonable, Text: fmt.Sprintf("🏷️✂️💸 Cost Still Reasonable - %s $TAO", c)})
		}
		d.Next = State{Low: true, SuperLow: false}
		d.LogLine = fmt.Sprintf("Cost Low! - %s $TAO", c)
	default:
		if prev.Low {
			d.Notices = append(d.Notices, Notice{Kind: KindOver, Text: fmt.Sprintf("😢 It's Over. It's Never Been More Over - %s $TAO", c)})
		}
		d.Next = State{}
		d.LogLine = fmt.Sprintf("It's Over - %s $TAO", c)
	}

	return d
}
