package api

import (
	"time"

	"github.com/okian/ringside/pkg/logger"
)

const defaultPingInterval = 30 * time.Second

type serverConfig struct {
	logger       logger.Logger
	pingInterval time.Duration
}

func defaultServerConfig() serverConfig {
	return serverConfig{logger: logger.Nop(), pingInterval: defaultPingInterval}
}

// Option configures a Server.
type Option func(*serverConfig)

// WithLogger sets the logger used by long-lived handlers such as the stream.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPingInterval sets how often idle stream connections are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(c *serverConfig) {
		if d > 0 {
			c.pingInterval = d
		}
	}
}
