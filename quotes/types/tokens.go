package types

// Closed sets of payment, delivery and sort tokens accepted on a request and
// emitted on a quote. Unknown provider-native values map to "unknown".

const (
	PaymentBankAccount = "bank_account"
	PaymentDebitCard   = "debit_card"
	PaymentCreditCard  = "credit_card"
	PaymentBalance     = "balance"
	PaymentOpenBanking = "open_banking"
	PaymentCard        = "card"
	PaymentCash        = "cash"
	PaymentMobile      = "mobile_wallet"
	PaymentUnknown     = "unknown"
)

const (
	DeliveryBankDeposit = "bank_deposit"
	DeliveryCashPickup  = "cash_pickup"
	DeliveryMobile      = "mobile_wallet"
	DeliveryDebitCard   = "debit_card_deposit"
	DeliveryHome        = "home_delivery"
	DeliveryUnknown     = "unknown"
)

// SortBy selects the comparison criterion for the filtered quote list.
type SortBy string

const (
	SortBestRate    SortBy = "best_rate"
	SortLowestFee   SortBy = "lowest_fee"
	SortFastestTime SortBy = "fastest_time"
	SortBestValue   SortBy = "best_value"
)

var paymentMethods = map[string]struct{}{
	PaymentBankAccount: {},
	PaymentDebitCard:   {},
	PaymentCreditCard:  {},
	PaymentBalance:     {},
	PaymentOpenBanking: {},
	PaymentCard:        {},
	PaymentCash:        {},
	PaymentMobile:      {},
	PaymentUnknown:     {},
}

var deliveryMethods = map[string]struct{}{
	DeliveryBankDeposit: {},
	DeliveryCashPickup:  {},
	DeliveryMobile:      {},
	DeliveryDebitCard:   {},
	DeliveryHome:        {},
	DeliveryUnknown:     {},
}

var sortOrders = map[SortBy]struct{}{
	SortBestRate:    {},
	SortLowestFee:   {},
	SortFastestTime: {},
	SortBestValue:   {},
}

// ValidPaymentMethod reports whether s is one of the closed payment tokens.
func ValidPaymentMethod(s string) bool {
	_, ok := paymentMethods[s]
	return ok
}

// ValidDeliveryMethod reports whether s is one of the closed delivery tokens.
func ValidDeliveryMethod(s string) bool {
	_, ok := deliveryMethods[s]
	return ok
}

// ValidSortBy reports whether s is a recognized sort criterion.
func ValidSortBy(s SortBy) bool {
	_, ok := sortOrders[s]
	return ok
}
