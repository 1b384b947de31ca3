package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAddr            = ":8080"
	DefaultRateLimit       = 100
	DefaultShutdownTimeout = 10 * time.Second
	DefaultCommitWindow    = 5 * time.Second
	DefaultRevealWindow    = 2 * time.Second
	DefaultMinStake        = "1"
	DefaultTick            = 100 * time.Millisecond
	DefaultGuardSpacing    = 1
	DefaultJournalDir      = "data/journal"
	DefaultPgPort          = 5432
	DefaultPgSSLMode       = "prefer"
	DefaultRedisAddr       = "localhost:6379"
	DefaultRedisTTL        = 5 * time.Second
	DefaultTradeTopic      = "engine.trades"
	DefaultForfeitTopic    = "engine.forfeits"
	DefaultFlagTopic       = "engine.flags"
)

func (c *EngineConfig) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = DefaultRateLimit
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.Auction.CommitWindow == 0 {
		c.Auction.CommitWindow = DefaultCommitWindow
	}
	if c.Auction.RevealWindow == 0 {
		c.Auction.RevealWindow = DefaultRevealWindow
	}
	if c.Auction.MinStake == "" {
		c.Auction.MinStake = DefaultMinStake
	}
	if c.Auction.Tick == 0 {
		c.Auction.Tick = DefaultTick
	}

	if c.Guard.MinSpacing == 0 {
		c.Guard.MinSpacing = DefaultGuardSpacing
	}

	if c.Journal.Dir == "" {
		c.Journal.Dir = DefaultJournalDir
	}

	if c.Pg.Port == 0 {
		c.Pg.Port = DefaultPgPort
	}
	if c.Pg.SSLMode == "" {
		c.Pg.SSLMode = DefaultPgSSLMode
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = DefaultRedisAddr
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = DefaultRedisTTL
	}

	if c.Kafka.TradeTopic == "" {
		c.Kafka.TradeTopic = DefaultTradeTopic
	}
	if c.Kafka.ForfeitTopic == "" {
		c.Kafka.ForfeitTopic = DefaultForfeitTopic
	}
	if c.Kafka.FlagTopic == "" {
		c.Kafka.FlagTopic = DefaultFlagTopic
	}
}
