package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *FeedConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Tournament.ID == "" {
		return errors.New("tournament.id is required")
	}
	if c.Tournament.Username == "" {
		return errors.New("tournament.username is required")
	}

	if !strings.HasPrefix(c.Gateway.SocketURL, "ws://") && !strings.HasPrefix(c.Gateway.SocketURL, "wss://") {
		return fmt.Errorf("gateway.socket_url must be a ws:// or wss:// URL, got %q", c.Gateway.SocketURL)
	}

	if len(c.Market.Symbols) == 0 {
		return errors.New("market.symbols must list at least one instrument")
	}
	seen := make(map[string]struct{}, len(c.Market.Symbols))
	for _, sym := range c.Market.Symbols {
		if sym == "" {
			return errors.New("market.symbols must not contain empty entries")
		}
		if sym != strings.ToLower(sym) {
			return fmt.Errorf("market.symbols must be lowercase, got %q", sym)
		}
		if _, dup := seen[sym]; dup {
			return fmt.Errorf("market.symbols contains duplicate %q", sym)
		}
		seen[sym] = struct{}{}
	}

	if c.Connection.ReconnectBaseDelay > c.Connection.ReconnectMaxDelay {
		return fmt.Errorf("connection.reconnect_base_delay (%s) cannot exceed reconnect_max_delay (%s)",
			c.Connection.ReconnectBaseDelay, c.Connection.ReconnectMaxDelay)
	}
	if c.Connection.BufferSize < 1 {
		return errors.New("connection.buffer_size must be >= 1")
	}

	if c.Health.Port < 1 || c.Health.Port > 65535 {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	return nil
}
