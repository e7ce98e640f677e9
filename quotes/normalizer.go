package quotes

import (
	"fmt"
	"time"

	"remit-scout/quotes/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	rateScale = 6

	// rateTolerance is the maximum relative deviation allowed between a
	// provider's reported rate and the rate implied by its amounts.
	rateTolerance = "0.005"

	// maxDeliveryMinutes clamps absurd delivery estimates (30 days).
	maxDeliveryMinutes = 43200
)

// zeroDecimalCurrencies have no minor unit and round to whole amounts.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true, "KRW": true, "VND": true, "IDR": true,
	"CLP": true, "ISK": true, "PYG": true, "UGX": true,
}

var rateToleranceDec = decimal.RequireFromString(rateTolerance)

type (
	// Normalizer converts adapter RawResults into canonical Quotes: amounts
	// rounded per currency, rates cross-checked against the amounts, missing
	// fees downgraded to failures, and timestamps pinned to UTC.
	Normalizer struct {
		logger zerolog.Logger
		now    func() time.Time
	}
)

func NewNormalizer(logger zerolog.Logger, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		logger: logger.With().Str("module", "normalizer").Logger(),
		now:    now,
	}
}

// Normalize maps every raw result to a Quote, in order. Failed raw results
// pass through as failed quotes; successful ones that do not survive
// validation are downgraded to failures with the appropriate kind.
func (n *Normalizer) Normalize(req types.QuoteRequest, raws []types.RawResult) []types.Quote {
	quotes := make([]types.Quote, 0, len(raws))
	for _, raw := range raws {
		quotes = append(quotes, n.normalizeOne(req, raw))
	}
	return quotes
}

func (n *Normalizer) normalizeOne(req types.QuoteRequest, raw types.RawResult) types.Quote {
	now := n.now().UTC()

	if !raw.Success {
		return types.FailedQuote(raw.ProviderID, raw.ErrorKind, raw.ErrorMessage, req, now)
	}
	if raw.Fee == nil {
		n.logger.Debug().Str("provider", raw.ProviderID).Msg("quote dropped: no fee")
		return types.FailedQuote(raw.ProviderID, types.ErrParsing,
			"provider returned no fee", req, now)
	}
	if !raw.SendAmount.IsPositive() || !raw.DestinationAmount.IsPositive() {
		return types.FailedQuote(raw.ProviderID, types.ErrParsing,
			"provider returned non-positive amounts", req, now)
	}
	if raw.Fee.IsNegative() {
		return types.FailedQuote(raw.ProviderID, types.ErrParsing,
			"provider returned a negative fee", req, now)
	}

	implied := raw.DestinationAmount.DivRound(raw.SendAmount, rateScale+4)
	rate := implied
	if raw.ExchangeRate != nil && raw.ExchangeRate.IsPositive() {
		rate = *raw.ExchangeRate
		deviation := rate.Sub(implied).Abs().DivRound(implied, rateScale+4)
		if deviation.GreaterThan(rateToleranceDec) {
			n.logger.Warn().
				Str("provider", raw.ProviderID).
				Str("reported", rate.String()).
				Str("implied", implied.String()).
				Msg("rate inconsistent with amounts")
			return types.FailedQuote(raw.ProviderID, types.ErrInconsistentResponse,
				fmt.Sprintf("reported rate %s deviates from implied rate %s", rate, implied), req, now)
		}
	}

	rounded := rate.Round(rateScale)
	quote := types.Quote{
		ProviderID:          raw.ProviderID,
		Success:             true,
		SendAmount:          roundAmount(raw.SendAmount, raw.SourceCurrency),
		SourceCurrency:      raw.SourceCurrency,
		DestinationAmount:   roundAmount(raw.DestinationAmount, raw.DestinationCurrency),
		DestinationCurrency: raw.DestinationCurrency,
		ExchangeRate:        &rounded,
		Fee:                 roundAmount(*raw.Fee, raw.SourceCurrency),
		PaymentMethod:       canonicalPayment(raw.PaymentMethod),
		DeliveryMethod:      canonicalDelivery(raw.DeliveryMethod),
		DeliveryTimeMinutes: clampDelivery(raw.DeliveryTimeMinutes),
		Timestamp:           now,
		Raw:                 raw.Raw,
	}
	return quote
}

// roundAmount applies the currency's minor-unit scale.
func roundAmount(d decimal.Decimal, currency string) decimal.Decimal {
	if zeroDecimalCurrencies[currency] {
		return d.Round(0)
	}
	return d.Round(2)
}

func canonicalPayment(token string) string {
	if token == "" || !types.ValidPaymentMethod(token) {
		return types.PaymentUnknown
	}
	return token
}

func canonicalDelivery(token string) string {
	if token == "" || !types.ValidDeliveryMethod(token) {
		return types.DeliveryUnknown
	}
	return token
}

// clampDelivery drops negative estimates and caps runaway ones.
func clampDelivery(minutes *int) *int {
	if minutes == nil {
		return nil
	}
	if *minutes < 0 {
		return nil
	}
	if *minutes > maxDeliveryMinutes {
		capped := maxDeliveryMinutes
		return &capped
	}
	v := *minutes
	return &v
}
