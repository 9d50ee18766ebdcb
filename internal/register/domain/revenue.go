package register

import "github.com/shopspring/decimal"

// ChannelTotal is the revenue of one payment channel for a day and category.
type ChannelTotal struct {
	Count          int             `json:"count"`
	ZeroTotalCount int             `json:"zero_total_count"`
	Sum            decimal.Decimal `json:"sum"`
}

// Breakdown holds per-channel revenue totals for one service category.
// Every channel of the enumeration is present, including empty ones.
type Breakdown map[PaymentChannel]ChannelTotal

// NewBreakdown returns an empty breakdown covering every channel.
func NewBreakdown() Breakdown {
	b := make(Breakdown, len(Channels()))
	for _, channel := range Channels() {
		b[channel] = ChannelTotal{Sum: decimal.Zero}
	}
	return b
}

// Sum returns the grand total across all channels.
func (b Breakdown) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, channel := range Channels() {
		total = total.Add(b[channel].Sum)
	}
	return total
}

// Count returns the consultation count across all channels.
func (b Breakdown) Count() int {
	count := 0
	for _, channel := range Channels() {
		count += b[channel].Count
	}
	return count
}

// AggregateRevenue sums non-cancelled consultations of one category into
// per-channel totals. Mobile totals include adjunct fees via Total().
// A consultation with no line items still counts toward Count and is
// surfaced through ZeroTotalCount.
func AggregateRevenue(consultations []*Consultation, category ServiceCategory) Breakdown {
	breakdown := NewBreakdown()
	for _, c := range consultations {
		if c == nil || c.IsCancelled() || c.Category() != category {
			continue
		}
		total := breakdown[c.Channel()]
		total.Count++
		amount := c.Total()
		if amount.IsZero() {
			total.ZeroTotalCount++
		}
		total.Sum = total.Sum.Add(amount)
		breakdown[c.Channel()] = total
	}
	return breakdown
}
