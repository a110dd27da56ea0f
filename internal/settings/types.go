package settings

import "time"

// CurrencySymbolKey is the only settings key in use.
const CurrencySymbolKey = "currencySymbol"

// Settings is the storefront-wide configuration exposed to clients.
type Settings struct {
	CurrencySymbol string `json:"currencySymbol"`
}

// Row is the shape persisted in the settings DynamoDB table.
type Row struct {
	Key       string    `dynamodbav:"key"` // PK
	Value     string    `dynamodbav:"value"`
	UpdatedAt time.Time `dynamodbav:"updated_at"`
}
