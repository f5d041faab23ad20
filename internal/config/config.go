package config

import "time"

// Config is the complete runtime configuration.
type Config struct {
	LogLevel  string `yaml:"logLevel" split_words:"true"`
	LogFormat string `yaml:"logFormat" split_words:"true"`

	// Memory runs every store in-process. Intended for local runs.
	Memory bool `yaml:"memory"`

	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Voice     VoiceConfig     `yaml:"voice"`
	Telephony TelephonyConfig `yaml:"telephony"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Events    EventsConfig    `yaml:"events"`
	Phones    PhoneConfig     `yaml:"phones"`
	Fleet     FleetConfig     `yaml:"fleet"`
	Template  TemplateConfig  `yaml:"template"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns" split_words:"true"`
}

// RedisConfig enables the shared allocation lease. Without an address the
// lease is local to the process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type VoiceConfig struct {
	APIKey  string `yaml:"apiKey" split_words:"true"`
	BaseURL string `yaml:"baseURL" split_words:"true"`
}

type TelephonyConfig struct {
	AccountSID   string `yaml:"accountSID" envconfig:"ACCOUNT_SID"`
	AuthToken    string `yaml:"authToken" split_words:"true"`
	FriendlyName string `yaml:"friendlyName" split_words:"true"`
}

// ArchiveConfig enables the S3 template archive when Bucket is set.
type ArchiveConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey" split_words:"true"`
	SecretKey string `yaml:"secretKey" split_words:"true"`
	PathStyle bool   `yaml:"pathStyle" split_words:"true"`
}

// EventsConfig enables outcome events when Brokers is non-empty.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type PhoneConfig struct {
	PrimaryCountry   string        `yaml:"primaryCountry" split_words:"true"`
	SecondaryCountry string        `yaml:"secondaryCountry" split_words:"true"`
	NumberType       string        `yaml:"numberType" split_words:"true"`
	ChangeQuota      int           `yaml:"changeQuota" split_words:"true"`
	LeaseTTL         time.Duration `yaml:"leaseTTL" envconfig:"LEASE_TTL"`
	SupportContact   string        `yaml:"supportContact" split_words:"true"`
}

type FleetConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type TemplateConfig struct {
	Name string `yaml:"name"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "json",
		HTTP:      HTTPConfig{Addr: ":8080"},
		Database:  DatabaseConfig{MaxConns: 10},
		Archive:   ArchiveConfig{Region: "us-east-1"},
		Events:    EventsConfig{Topic: "squadfleet.deployments"},
		Phones: PhoneConfig{
			PrimaryCountry:   "US",
			SecondaryCountry: "CA",
			NumberType:       "local",
			ChangeQuota:      5,
			LeaseTTL:         30 * time.Second,
			SupportContact:   "support@squadfleet.app",
		},
		Fleet:    FleetConfig{Concurrency: 4},
		Template: TemplateConfig{Name: "clinic-receptionist"},
	}
}
