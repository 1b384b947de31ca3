package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *EngineConfig) Validate() error {
	if c.Auction.CommitWindow <= 0 {
		return errors.New("auction.commit_window must be positive")
	}
	if c.Auction.RevealWindow <= 0 {
		return errors.New("auction.reveal_window must be positive")
	}
	if c.Auction.Tick <= 0 {
		return errors.New("auction.tick must be positive")
	}
	stake, err := c.Auction.MinStakeDecimal()
	if err != nil {
		return err
	}
	if stake.IsNegative() {
		return errors.New("auction.min_stake must be >= 0")
	}

	if c.Guard.MinSpacing < 0 {
		return errors.New("guard.min_spacing must be >= 0")
	}

	if !c.Pg.Disable {
		if c.Pg.Host == "" {
			return errors.New("postgres.host is required")
		}
		if c.Pg.Name == "" {
			return errors.New("postgres.name is required")
		}
		if c.Pg.User == "" {
			return errors.New("postgres.user is required")
		}
		if c.Pg.Port < 1 || c.Pg.Port > 65535 {
			return fmt.Errorf("postgres.port must be between 1 and 65535, got %d", c.Pg.Port)
		}
	}

	if !c.Kafka.Disable && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}

	if !c.Journal.Disable && c.Journal.Dir == "" {
		return errors.New("journal.dir is required")
	}

	return nil
}
