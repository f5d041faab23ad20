package config

import (
	"fmt"
	"strings"
)

var validNumberTypes = map[string]bool{
	"local":     true,
	"mobile":    true,
	"toll-free": true,
}

// Validate checks the configuration for common errors.
func (c *Config) Validate() error {
	if !c.Memory {
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required unless memory mode is enabled")
		}
	}
	if c.Voice.APIKey == "" {
		return fmt.Errorf("voice.apiKey is required")
	}
	if c.Telephony.AccountSID == "" || c.Telephony.AuthToken == "" {
		return fmt.Errorf("telephony.accountSID and telephony.authToken are required")
	}

	if err := c.validatePhones(); err != nil {
		return fmt.Errorf("phone settings: %w", err)
	}
	if c.Fleet.Concurrency < 1 {
		return fmt.Errorf("fleet.concurrency must be at least 1, got %d", c.Fleet.Concurrency)
	}
	if len(c.Events.Brokers) > 0 && c.Events.Topic == "" {
		return fmt.Errorf("events.topic is required when brokers are configured")
	}
	return nil
}

func (c *Config) validatePhones() error {
	p := c.Phones
	if len(p.PrimaryCountry) != 2 || p.PrimaryCountry != strings.ToUpper(p.PrimaryCountry) {
		return fmt.Errorf("primaryCountry must be an ISO 3166 alpha-2 code, got %q", p.PrimaryCountry)
	}
	if len(p.SecondaryCountry) != 2 || p.SecondaryCountry != strings.ToUpper(p.SecondaryCountry) {
		return fmt.Errorf("secondaryCountry must be an ISO 3166 alpha-2 code, got %q", p.SecondaryCountry)
	}
	if !validNumberTypes[p.NumberType] {
		return fmt.Errorf("numberType must be local, mobile or toll-free, got %q", p.NumberType)
	}
	if p.ChangeQuota < 0 {
		return fmt.Errorf("changeQuota must not be negative")
	}
	if p.LeaseTTL <= 0 {
		return fmt.Errorf("leaseTTL must be positive")
	}
	return nil
}
