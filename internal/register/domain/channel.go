package register

// PaymentChannel is one bucket of the fixed payment-method enumeration.
type PaymentChannel string

const (
	ChannelCash         PaymentChannel = "cash"
	ChannelCard         PaymentChannel = "card"
	ChannelCashInvoiced PaymentChannel = "cash_invoiced"
	ChannelTransfer     PaymentChannel = "transfer"
)

// Channels returns every payment channel in stable order.
// Revenue partitions exhaustively over this set.
func Channels() []PaymentChannel {
	return []PaymentChannel{ChannelCash, ChannelCard, ChannelCashInvoiced, ChannelTransfer}
}

// ParseChannel validates a channel string.
func ParseChannel(value string) (PaymentChannel, bool) {
	switch PaymentChannel(value) {
	case ChannelCash, ChannelCard, ChannelCashInvoiced, ChannelTransfer:
		return PaymentChannel(value), true
	default:
		return "", false
	}
}

// ServiceCategory separates numbered in-clinic consultations from
// unnumbered mobile visits.
type ServiceCategory string

const (
	CategoryRegular ServiceCategory = "regular"
	CategoryMobile  ServiceCategory = "mobile"
)

// ParseCategory validates a category string.
func ParseCategory(value string) (ServiceCategory, bool) {
	switch ServiceCategory(value) {
	case CategoryRegular, CategoryMobile:
		return ServiceCategory(value), true
	default:
		return "", false
	}
}
