package history

import (
	"database/sql"
	"time"

	"remit-scout/quotes/types"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type (
	// QuoteHistory persists successful quotes to sqlite so corridor pricing
	// can be compared across providers over time.
	QuoteHistory struct {
		db     *sql.DB
		insert *sql.Stmt
		query  *sql.Stmt
		logger zerolog.Logger
	}

	// HistoricalQuote is one stored observation.
	HistoricalQuote struct {
		ProviderID        string
		Time              time.Time
		SendAmount        decimal.Decimal
		ExchangeRate      decimal.Decimal
		Fee               decimal.Decimal
		DestinationAmount decimal.Decimal
	}
)

func NewQuoteHistory(path string, logger zerolog.Logger) (QuoteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to open sqlite db")
		return QuoteHistory{}, err
	}
	h := QuoteHistory{
		db:     db,
		logger: logger.With().Str("module", "history").Logger(),
	}
	return h, h.Init()
}

func (h *QuoteHistory) Init() error {
	_, err := h.db.Exec(`CREATE TABLE IF NOT EXISTS fee_quotes(
		source_country TEXT NOT NULL,
		dest_country TEXT NOT NULL,
		source_currency TEXT NOT NULL,
		dest_currency TEXT NOT NULL,
		provider TEXT NOT NULL,
		time INT NOT NULL,
		send_amount TEXT NOT NULL,
		rate TEXT NOT NULL,
		fee TEXT NOT NULL,
		destination_amount TEXT NOT NULL,
		CONSTRAINT id PRIMARY KEY (source_country, dest_country, source_currency, dest_currency, provider, time)
	)`)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create db table")
		return err
	}
	insert, err := h.db.Prepare(`INSERT INTO fee_quotes(
			source_country, dest_country, source_currency, dest_currency,
			provider, time, send_amount, rate, fee, destination_amount)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (SELECT 1 FROM fee_quotes
			WHERE source_country = ? AND dest_country = ?
			AND source_currency = ? AND dest_currency = ?
			AND provider = ? AND time = ?)
	`)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to prepare sql insert statement")
		return err
	}
	query, err := h.db.Prepare(`SELECT provider, time, send_amount, rate, fee, destination_amount
		FROM fee_quotes
		WHERE source_country = ? AND dest_country = ?
		AND source_currency = ? AND dest_currency = ?
		AND time BETWEEN ? AND ?
		ORDER BY time DESC
	`)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to prepare sql query statement")
		return err
	}
	h.insert = insert
	h.query = query
	return nil
}

// AddQuote stores one successful quote. Duplicate (corridor, provider, time)
// observations are ignored.
func (h *QuoteHistory) AddQuote(req types.QuoteRequest, quote types.Quote) error {
	if !quote.Success || quote.ExchangeRate == nil {
		return nil
	}
	_, err := h.insert.Exec(
		req.SourceCountry,
		req.DestCountry,
		quote.SourceCurrency,
		quote.DestinationCurrency,
		quote.ProviderID,
		quote.Timestamp.Unix(),
		quote.SendAmount.String(),
		quote.ExchangeRate.String(),
		quote.Fee.String(),
		quote.DestinationAmount.String(),
		req.SourceCountry,
		req.DestCountry,
		quote.SourceCurrency,
		quote.DestinationCurrency,
		quote.ProviderID,
		quote.Timestamp.Unix(),
	)
	if err != nil {
		h.logger.Error().Err(err).
			Str("provider", quote.ProviderID).
			Str("corridor", req.SourceCountry+"->"+req.DestCountry).
			Msg("failed to store quote")
	}
	return err
}

// GetQuotes returns stored observations for a corridor and window, grouped
// by provider, newest first.
func (h *QuoteHistory) GetQuotes(
	req types.QuoteRequest,
	start time.Time,
	end time.Time,
) (map[string][]HistoricalQuote, error) {
	rows, err := h.query.Query(
		req.SourceCountry, req.DestCountry,
		req.SourceCurrency, req.DestCurrency,
		start.Unix(), end.Unix(),
	)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to query stored quotes")
		return nil, err
	}
	defer rows.Close()

	quotes := map[string][]HistoricalQuote{}
	for rows.Next() {
		var (
			epochTime                     int64
			providerID                    string
			sendAmount, rate, fee, amount string
		)
		if err := rows.Scan(&providerID, &epochTime, &sendAmount, &rate, &fee, &amount); err != nil {
			h.logger.Error().Err(err).Msg("failed to parse quote query results")
			return nil, err
		}
		record, err := newHistoricalQuote(providerID, epochTime, sendAmount, rate, fee, amount)
		if err != nil {
			h.logger.Error().Err(err).Str("provider", providerID).Msg("stored quote is corrupt")
			continue
		}
		quotes[providerID] = append(quotes[providerID], record)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error().Err(err).Msg("failed to read all stored quotes")
		return nil, err
	}
	return quotes, nil
}

// Close releases the prepared statements and the database handle.
func (h *QuoteHistory) Close() error {
	if h.insert != nil {
		h.insert.Close()
	}
	if h.query != nil {
		h.query.Close()
	}
	return h.db.Close()
}

func newHistoricalQuote(providerID string, epochTime int64, sendAmount, rate, fee, amount string) (HistoricalQuote, error) {
	send, err := decimal.NewFromString(sendAmount)
	if err != nil {
		return HistoricalQuote{}, err
	}
	parsedRate, err := decimal.NewFromString(rate)
	if err != nil {
		return HistoricalQuote{}, err
	}
	parsedFee, err := decimal.NewFromString(fee)
	if err != nil {
		return HistoricalQuote{}, err
	}
	dest, err := decimal.NewFromString(amount)
	if err != nil {
		return HistoricalQuote{}, err
	}
	return HistoricalQuote{
		ProviderID:        providerID,
		Time:              time.Unix(epochTime, 0),
		SendAmount:        send,
		ExchangeRate:      parsedRate,
		Fee:               parsedFee,
		DestinationAmount: dest,
	}, nil
}
