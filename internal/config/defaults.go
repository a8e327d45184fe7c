package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRestURL            = "https://api.tradearena.io/api"
	DefaultSocketURL          = "wss://feed.tradearena.io/socket"
	DefaultGatewayTimeout     = 30 * time.Second
	DefaultPingInterval       = 15 * time.Second
	DefaultPingTimeout        = 60 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultAckTimeout         = 10 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultBufferSize         = 1000
	DefaultHealthPort         = 8080
	DefaultHealthPath         = "/healthz"
)

// DefaultSymbols is the tracked instrument set used when the config
// omits market.symbols.
var DefaultSymbols = []string{"btc", "eth", "avax", "ada", "bnb"}

func (c *FeedConfig) applyDefaults() {
	if c.Gateway.RestURL == "" {
		c.Gateway.RestURL = DefaultRestURL
	}
	if c.Gateway.SocketURL == "" {
		c.Gateway.SocketURL = DefaultSocketURL
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = DefaultGatewayTimeout
	}

	if len(c.Market.Symbols) == 0 {
		c.Market.Symbols = append([]string(nil), DefaultSymbols...)
	}

	if c.Connection.PingInterval == 0 {
		c.Connection.PingInterval = DefaultPingInterval
	}
	if c.Connection.PingTimeout == 0 {
		c.Connection.PingTimeout = DefaultPingTimeout
	}
	if c.Connection.WriteTimeout == 0 {
		c.Connection.WriteTimeout = DefaultWriteTimeout
	}
	if c.Connection.AckTimeout == 0 {
		c.Connection.AckTimeout = DefaultAckTimeout
	}
	if c.Connection.ReconnectBaseDelay == 0 {
		c.Connection.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Connection.ReconnectMaxDelay == 0 {
		c.Connection.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Connection.BufferSize == 0 {
		c.Connection.BufferSize = DefaultBufferSize
	}

	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}
	if c.Health.Path == "" {
		c.Health.Path = DefaultHealthPath
	}
}
