package port

import (
	"context"
	"io"
)

// CurrencyConverter normalizes expense amounts into the company currency
type CurrencyConverter interface {
	// Convert returns the converted amount in cents and the exchange rate
	// used. Same-currency conversions return the input at rate 1.
	Convert(ctx context.Context, amountCents int64, fromCurrency, toCurrency string) (int64, float64, error)
}

// ReceiptStore persists uploaded receipt files
type ReceiptStore interface {
	// Save stores the receipt content and returns the stored filename
	Save(ctx context.Context, originalFilename string, content io.Reader) (string, error)
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
}
