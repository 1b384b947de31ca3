package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EngineConfig is the root configuration for an engine instance.
type EngineConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Auction AuctionConfig `yaml:"auction"`
	Guard   GuardConfig   `yaml:"guard"`
	Journal JournalConfig `yaml:"journal"`
	Pg      PgConfig      `yaml:"postgres"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RateLimit       int           `yaml:"rate_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuctionConfig holds the batch auction timing and stake parameters.
type AuctionConfig struct {
	CommitWindow time.Duration `yaml:"commit_window"`
	RevealWindow time.Duration `yaml:"reveal_window"`
	MinStake     string        `yaml:"min_stake"`
	Tick         time.Duration `yaml:"tick"`
}

// GuardConfig holds anti-sandwich audit settings.
type GuardConfig struct {
	MinSpacing int `yaml:"min_spacing"`
}

// JournalConfig holds the input journal settings.
type JournalConfig struct {
	Dir     string `yaml:"dir"`
	Disable bool   `yaml:"disable"`
}

// PgConfig holds the persistence database connection.
type PgConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	Disable  bool   `yaml:"disable"`
}

// DSN builds a pgx connection string.
func (p PgConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode)
}

// RedisConfig holds the book snapshot cache settings.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Disable  bool          `yaml:"disable"`
}

// KafkaConfig holds the output stream settings.
type KafkaConfig struct {
	Brokers      []string `yaml:"brokers"`
	TradeTopic   string   `yaml:"trade_topic"`
	ForfeitTopic string   `yaml:"forfeit_topic"`
	FlagTopic    string   `yaml:"flag_topic"`
	Disable      bool     `yaml:"disable"`
}

// MinStakeDecimal parses the configured minimum stake.
func (a AuctionConfig) MinStakeDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(a.MinStake)
	if err != nil {
		return decimal.Zero, fmt.Errorf("auction.min_stake: %w", err)
	}
	return d, nil
}
