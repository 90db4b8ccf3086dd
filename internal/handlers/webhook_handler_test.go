package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v76"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paybridge/internal/gateway"
	"paybridge/internal/models"
	"paybridge/internal/provider"
	"paybridge/internal/services"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := services.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func postWebhook(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleWebhook(c); err != nil {
		// Echo surfaces handler errors through the error handler; mirror
		// just the status for assertions.
		if he, ok := err.(*echo.HTTPError); ok {
			rec.Code = he.Code
		} else {
			t.Fatalf("HandleWebhook: %v", err)
		}
	}
	return rec
}

func TestWebhookUnknownEventType(t *testing.T) {
	db := testDB(t)
	p := provider.New(db, &gateway.Fake{}, nil, provider.Config{})
	h := NewWebhookHandler(db, nil, p)

	rec := postWebhook(t, h, `{"id":"evt_1","type":"invoice.created","livemode":false,"data":{"object":{}}}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", rec.Code)
	}
}

func TestWebhookLivemodeMismatch(t *testing.T) {
	db := testDB(t)
	p := provider.New(db, &gateway.Fake{}, nil, provider.Config{})
	h := NewWebhookHandler(db, nil, p)

	rec := postWebhook(t, h, `{"id":"evt_1","type":"payment_intent.succeeded","livemode":true,"data":{"object":{"id":"pi_1"}}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d; want 422", rec.Code)
	}
}

func TestWebhookPaymentIntentSucceeded(t *testing.T) {
	db := testDB(t)

	txn := &models.Transaction{
		PaymentProvider:     provider.ProviderTag,
		TransactionFamily:   models.TransactionFamilyPayment,
		TransactionFamilyID: "pi_1",
		LocalStatus:         models.LocalStatusInit,
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("seed transaction: %v", err)
	}

	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			return &stripe.PaymentIntent{
				ID:             id,
				Status:         stripe.PaymentIntentStatusSucceeded,
				Currency:       stripe.CurrencyGBP,
				AmountReceived: 2500,
				Metadata:       map[string]string{"transaction_pid": txn.Pid},
				LatestCharge: &stripe.Charge{
					ID:     "ch_1",
					Status: stripe.ChargeStatusSucceeded,
				},
			}, nil
		},
	}
	p := provider.New(db, fake, nil, provider.Config{})
	h := NewWebhookHandler(db, nil, p)

	rec := postWebhook(t, h, `{"id":"evt_1","type":"payment_intent.succeeded","livemode":false,"data":{"object":{"id":"pi_1","object":"payment_intent"}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	// The embedded object is never trusted: the recorded state comes from
	// the re-retrieved intent.
	if fake.Calls["RetrieveIntent"] != 1 {
		t.Errorf("RetrieveIntent calls = %d; want 1", fake.Calls["RetrieveIntent"])
	}

	var reloaded models.Transaction
	if err := db.First(&reloaded, txn.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Success || !reloaded.ThroughWebhook {
		t.Errorf("row = %+v", reloaded)
	}
	if reloaded.Amount != 2500 {
		t.Errorf("amount = %d; want 2500", reloaded.Amount)
	}

	var audited int64
	db.Model(&models.WebhookEvent{}).Where("event_id = ?", "evt_1").Count(&audited)
	if audited != 1 {
		t.Errorf("audit rows = %d; want 1", audited)
	}
}

func TestWebhookRetrievalFailureIsRetryable(t *testing.T) {
	db := testDB(t)
	fake := &gateway.Fake{
		RetrieveIntentFunc: func(id string) (*stripe.PaymentIntent, error) {
			return nil, &stripe.Error{Msg: "gateway down"}
		},
	}
	p := provider.New(db, fake, nil, provider.Config{})
	h := NewWebhookHandler(db, nil, p)

	rec := postWebhook(t, h, `{"id":"evt_1","type":"payment_intent.succeeded","livemode":false,"data":{"object":{"id":"pi_1"}}}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d; want 422 so the gateway retries", rec.Code)
	}
}

func TestWebhookCustomerDeleted(t *testing.T) {
	db := testDB(t)

	pc := &models.ProviderCustomer{
		PaymentProvider:    provider.ProviderTag,
		ProviderCustomerID: "cus_1",
		UserType:           "member",
		UserID:             "42",
	}
	if err := db.Create(pc).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	p := provider.New(db, &gateway.Fake{}, nil, provider.Config{})
	h := NewWebhookHandler(db, nil, p)

	rec := postWebhook(t, h, `{"id":"evt_1","type":"customer.deleted","livemode":false,"data":{"object":{"id":"cus_1","deleted":true}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	var count int64
	db.Model(&models.ProviderCustomer{}).Where("provider_customer_id = ?", "cus_1").Count(&count)
	if count != 0 {
		t.Error("customer mapping should be gone")
	}
}

func TestWebhookMalformedSignedPayloadIsForbidden(t *testing.T) {
	db := testDB(t)
	p := provider.New(db, &gateway.Fake{}, nil, provider.Config{WebhookSecret: "whsec_test"})
	h := NewWebhookHandler(db, nil, p)

	rec := postWebhook(t, h, `{"id":"evt_1","type":"payment_intent.succeeded","livemode":false,"data":{"object":{"id":"pi_1"}}}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d; unsigned payloads must be rejected when a secret is set", rec.Code)
	}
}
