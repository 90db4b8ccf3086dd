package provider

import (
	"testing"
	"time"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"STRIPE_LIVEMODE",
		"STRIPE_SYNC_REFUNDS",
		"STRIPE_SYNC_UNSUCCESSFUL_CHARGES",
		"STRIPE_WEBHOOK_TOLERANCE_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg := ConfigFromEnv()

	if cfg.Livemode {
		t.Error("livemode must default to false")
	}
	if !cfg.SyncRefunds {
		t.Error("refund sync defaults on")
	}
	if cfg.SyncUnsuccessfulCharges {
		t.Error("unsuccessful-charge sync defaults off")
	}
	if cfg.WebhookTolerance != 5*time.Minute {
		t.Errorf("tolerance = %v; want 5m", cfg.WebhookTolerance)
	}
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("STRIPE_LIVEMODE", "true")
	t.Setenv("STRIPE_SECRET_KEY", "sk_live_a")
	t.Setenv("STRIPE_PUBLISHABLE_KEY", "pk_live_a")
	t.Setenv("STRIPE_TEST_SECRET_KEY", "sk_test_a")
	t.Setenv("STRIPE_WEBHOOK_TOLERANCE_SECONDS", "60")
	t.Setenv("STRIPE_SYNC_UNSUCCESSFUL_CHARGES", "1")

	cfg := ConfigFromEnv()

	if !cfg.Livemode {
		t.Error("livemode should be on")
	}
	if cfg.ActiveSecretKey() != "sk_live_a" {
		t.Errorf("active secret = %q", cfg.ActiveSecretKey())
	}
	if cfg.ActivePublishableKey() != "pk_live_a" {
		t.Errorf("active publishable = %q", cfg.ActivePublishableKey())
	}
	if cfg.WebhookTolerance != time.Minute {
		t.Errorf("tolerance = %v; want 1m", cfg.WebhookTolerance)
	}
	if !cfg.SyncUnsuccessfulCharges {
		t.Error("unsuccessful-charge sync should be on")
	}
}

func TestActiveKeysFollowMode(t *testing.T) {
	cfg := Config{
		SecretKey:          "sk_live_a",
		PublishableKey:     "pk_live_a",
		TestSecretKey:      "sk_test_a",
		TestPublishableKey: "pk_test_a",
	}

	if cfg.ActiveSecretKey() != "sk_test_a" {
		t.Errorf("test mode secret = %q", cfg.ActiveSecretKey())
	}

	cfg.Livemode = true
	if cfg.ActiveSecretKey() != "sk_live_a" {
		t.Errorf("live mode secret = %q", cfg.ActiveSecretKey())
	}
	if cfg.ActivePublishableKey() != "pk_live_a" {
		t.Errorf("live mode publishable = %q", cfg.ActivePublishableKey())
	}
}
