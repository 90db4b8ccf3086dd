package provider

import (
	"os"
	"strconv"
	"time"
)

// Config carries the per-environment gateway credentials and the sync
// behavior switches. It is passed explicitly to New rather than read from
// process-wide state so that two providers with different settings can
// coexist (and so tests can flip toggles without races).
type Config struct {
	Livemode bool

	SecretKey      string
	PublishableKey string

	TestSecretKey      string
	TestPublishableKey string

	// WebhookURL is the absolute URL the gateway should deliver events to.
	WebhookURL string
	// WebhookSecret signs inbound events. Empty means verification is
	// skipped (permissive mode for setups without a webhook configured).
	WebhookSecret    string
	WebhookTolerance time.Duration

	// SyncRefunds and SyncUnsuccessfulCharges control the enrichment passes
	// of SyncTransaction.
	SyncRefunds             bool
	SyncUnsuccessfulCharges bool
}

// ConfigFromEnv reads the configuration surface from the environment.
func ConfigFromEnv() Config {
	return Config{
		Livemode:           getEnvBool("STRIPE_LIVEMODE", false),
		SecretKey:          os.Getenv("STRIPE_SECRET_KEY"),
		PublishableKey:     os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		TestSecretKey:      os.Getenv("STRIPE_TEST_SECRET_KEY"),
		TestPublishableKey: os.Getenv("STRIPE_TEST_PUBLISHABLE_KEY"),
		WebhookURL:         getEnv("STRIPE_WEBHOOK_URL", getEnv("APP_URL", "http://localhost:8080")+"/stripe/webhook"),
		WebhookSecret:      os.Getenv("STRIPE_WEBHOOK_SECRET"),
		WebhookTolerance:   time.Duration(getEnvInt("STRIPE_WEBHOOK_TOLERANCE_SECONDS", 300)) * time.Second,

		SyncRefunds:             getEnvBool("STRIPE_SYNC_REFUNDS", true),
		SyncUnsuccessfulCharges: getEnvBool("STRIPE_SYNC_UNSUCCESSFUL_CHARGES", false),
	}
}

// ActiveSecretKey returns the secret key for the configured mode.
func (c Config) ActiveSecretKey() string {
	if c.Livemode {
		return c.SecretKey
	}
	return c.TestSecretKey
}

// ActivePublishableKey returns the publishable key for the configured mode.
func (c Config) ActivePublishableKey() string {
	if c.Livemode {
		return c.PublishableKey
	}
	return c.TestPublishableKey
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
