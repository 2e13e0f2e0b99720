package models

import "time"

// ApiConfig holds a user's exchange credentials. One record per user.
type ApiConfig struct {
	ID         int       `json:"id"`
	UserID     int       `json:"userId"`
	ApiKey     string    `json:"apiKey"`
	ApiSecret  string    `json:"apiSecret"`
	Passphrase string    `json:"passphrase"`
	CreatedAt  time.Time `json:"createdAt"`
}

const secretPlaceholder = "••••••••"

// MaskedApiConfig is the only shape credentials ever leave the server in.
type MaskedApiConfig struct {
	ID         int       `json:"id"`
	UserID     int       `json:"userId"`
	ApiKey     string    `json:"apiKey"`
	ApiSecret  string    `json:"apiSecret"`
	Passphrase string    `json:"passphrase"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Masked renders the config safe for responses: the key keeps its first and
// last four characters, secret and passphrase are always the placeholder.
func (c *ApiConfig) Masked() MaskedApiConfig {
	return MaskedApiConfig{
		ID:         c.ID,
		UserID:     c.UserID,
		ApiKey:     maskKey(c.ApiKey),
		ApiSecret:  secretPlaceholder,
		Passphrase: secretPlaceholder,
		CreatedAt:  c.CreatedAt,
	}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return secretPlaceholder
	}
	return key[:4] + "..." + key[len(key)-4:]
}
