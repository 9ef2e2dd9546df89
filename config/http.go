package config

// HTTPConfig enables the fleet API when Addr is set.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// Token is the bearer token required by /api/trips. Empty disables the check.
	Token string `json:"token"`
	// AllowedOrigins restricts websocket clients. Empty allows any origin.
	AllowedOrigins []string `json:"allowed_origins"`
}
