package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cwmia/gateway/internal/automation"
	"github.com/cwmia/gateway/internal/errors"
	"github.com/cwmia/gateway/internal/identity"
	"github.com/cwmia/gateway/internal/logging"
	"github.com/cwmia/gateway/internal/store"
)

// Test doubles shared by the service tests in this package.

var testLogger = logging.New("gateway-test", "error", "json")

type fakeVerifier struct {
	identity *identity.Identity
	calls    int
}

func (f *fakeVerifier) Verify(_ context.Context, accessToken string) (*identity.Identity, error) {
	f.calls++
	if accessToken == "" {
		return nil, errors.Unauthorized("missing bearer token")
	}
	if f.identity == nil {
		return nil, errors.Unauthorized("invalid or expired token")
	}
	return f.identity, nil
}

type fakeCatalog struct {
	item  *store.CatalogItem
	err   error
	calls int
	gotID string
}

func (f *fakeCatalog) MusicByID(_ context.Context, id string) (*store.CatalogItem, error) {
	f.calls++
	f.gotID = id
	return f.item, f.err
}

type fakePurchases struct {
	row      json.RawMessage
	err      error
	calls    int
	gotID    string
	gotPatch store.PurchasePatch
}

func (f *fakePurchases) UpdatePurchase(_ context.Context, purchaseID string, patch store.PurchasePatch) (json.RawMessage, error) {
	f.calls++
	f.gotID = purchaseID
	f.gotPatch = patch
	return f.row, f.err
}

type fakeWebhook struct {
	resp       *automation.Response
	err        error
	calls      int
	gotURL     string
	gotSecret  string
	gotTimeout time.Duration
	gotPayload interface{}
}

func (f *fakeWebhook) Post(_ context.Context, webhookURL, secret string, payload interface{}, timeout time.Duration) (*automation.Response, error) {
	f.calls++
	f.gotURL = webhookURL
	f.gotSecret = secret
	f.gotPayload = payload
	f.gotTimeout = timeout
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func jsonResponse(status int, body string) *automation.Response {
	return &automation.Response{Status: status, ContentType: "application/json", Body: []byte(body)}
}

func testUser() *identity.Identity {
	return &identity.Identity{ID: "user-1", Email: "user@example.com"}
}
