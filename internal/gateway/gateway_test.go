package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stripe/stripe-go/v76"
)

func TestNewStripeGatewayKeyGuard(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		livemode bool
		wantErr  error
	}{
		{name: "test key in test mode", key: "sk_test_abc", livemode: false},
		{name: "live key in live mode", key: "sk_live_abc", livemode: true},
		{name: "live key in test mode", key: "sk_live_abc", livemode: false, wantErr: ErrLiveKeyInTestMode},
		{name: "restricted key in test mode", key: "rk_live_abc", livemode: false, wantErr: ErrLiveKeyInTestMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, err := NewStripeGateway(tt.key, tt.livemode)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v; want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && gw.Livemode() != tt.livemode {
				t.Errorf("livemode = %v; want %v", gw.Livemode(), tt.livemode)
			}
		})
	}
}

func TestIsAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "stripe error", err: &stripe.Error{Msg: "no such intent"}, want: true},
		{name: "wrapped stripe error", err: fmt.Errorf("retrieve: %w", &stripe.Error{}), want: true},
		{name: "plain error", err: errors.New("connection reset"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAPIError(tt.err); got != tt.want {
				t.Errorf("IsAPIError(%v) = %v; want %v", tt.err, got, tt.want)
			}
		})
	}
}
