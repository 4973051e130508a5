package exchange

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-bot/pkg/errors"
)

// Credentials contains what is needed to build an authenticated Binance client.
type Credentials struct {
	APIKey    string `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey string `json:"secretKey" yaml:"secret_key" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	// Testnet switches the client to https://testnet.binance.vision
	Testnet bool `json:"testnet" yaml:"testnet" jsonschema:"title=Testnet,description=Use the Binance spot testnet"`
	// BaseURL overrides the REST endpoint and takes precedence over Testnet
	BaseURL string `json:"baseUrl,omitempty" yaml:"base_url" jsonschema:"title=Base URL,description=Override the REST endpoint" validate:"omitempty,url"`
}

// Validate validates the Credentials struct.
func (c *Credentials) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeMissingCredentials, "invalid binance credentials", err)
	}

	return nil
}

// ParseCredentials parses a JSON credentials document and validates it.
func ParseCredentials(jsonConfig string) (*Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal([]byte(jsonConfig), &creds); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse binance credentials", err)
	}

	if err := creds.Validate(); err != nil {
		return nil, err
	}

	return &creds, nil
}
