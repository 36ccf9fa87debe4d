package config

import "time"

// GatewayConfig holds the payment gateway credentials and channel routing.
// It is built once at startup and passed into the adapter constructor;
// nothing in the gateway package reads the environment directly.
type GatewayConfig struct {
	BaseURL    string
	APIKey     string
	HMACSecret string

	// Integration ids for the upstream payment channels. Card is the
	// mandatory default; the others fall back to card when unset.
	CardIntegrationID   string
	WalletIntegrationID string
	KioskIntegrationID  string

	Timeout time.Duration
}

// LoadGatewayConfig reads the gateway settings from the environment.
func LoadGatewayConfig() GatewayConfig {
	return GatewayConfig{
		BaseURL:             GetEnv("GATEWAY_BASE_URL", "https://accept.paymob.com/v1"),
		APIKey:              GetEnv("GATEWAY_API_KEY", ""),
		HMACSecret:          GetEnv("GATEWAY_HMAC_SECRET", ""),
		CardIntegrationID:   GetEnv("GATEWAY_CARD_INTEGRATION_ID", ""),
		WalletIntegrationID: GetEnv("GATEWAY_WALLET_INTEGRATION_ID", ""),
		KioskIntegrationID:  GetEnv("GATEWAY_KIOSK_INTEGRATION_ID", ""),
		Timeout:             GetDurationEnv("GATEWAY_TIMEOUT", 15*time.Second),
	}
}
