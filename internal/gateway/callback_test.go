package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwmia/gateway/internal/config"
	"github.com/cwmia/gateway/internal/errors"
)

func strptr(s string) *string { return &s }

func TestApplyUpdateMisconfiguredWithoutSecret(t *testing.T) {
	purchases := &fakePurchases{}
	svc := NewCallbackService(purchases, config.CallbackConfig{}, testLogger)

	_, err := svc.ApplyUpdate(context.Background(), "anything", PurchaseUpdate{PurchaseID: "p-1"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeMisconfigured, errors.GetServiceError(err).Code)
	assert.Zero(t, purchases.calls)
}

func TestApplyUpdateRejectsBadSecret(t *testing.T) {
	purchases := &fakePurchases{}
	svc := NewCallbackService(purchases, config.CallbackConfig{Secret: "s3cret"}, testLogger)

	for name, token := range map[string]string{"wrong": "nope", "empty": "", "prefix": "s3cre"} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ApplyUpdate(context.Background(), token, PurchaseUpdate{PurchaseID: "p-1"})
			require.Error(t, err)
			assert.Equal(t, errors.CodeUnauthorized, errors.GetServiceError(err).Code)
		})
	}
	assert.Zero(t, purchases.calls, "a rejected credential must never reach the store")
}

func TestApplyUpdateRequiresPurchaseID(t *testing.T) {
	purchases := &fakePurchases{}
	svc := NewCallbackService(purchases, config.CallbackConfig{Secret: "s3cret"}, testLogger)

	_, err := svc.ApplyUpdate(context.Background(), "s3cret", PurchaseUpdate{PurchaseID: "  "})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidRequest, errors.GetServiceError(err).Code)
	assert.Zero(t, purchases.calls)
}

func TestApplyUpdateDefaultsStatus(t *testing.T) {
	purchases := &fakePurchases{row: json.RawMessage(`{"id":"p-1","status":"concluido"}`)}
	svc := NewCallbackService(purchases, config.CallbackConfig{Secret: "s3cret"}, testLogger)

	row, err := svc.ApplyUpdate(context.Background(), "s3cret", PurchaseUpdate{
		PurchaseID:      "p-1",
		StripeSessionID: strptr("cs_1"),
	})
	require.NoError(t, err)
	require.NotNil(t, row)

	assert.Equal(t, "p-1", purchases.gotID)
	assert.Equal(t, "concluido", purchases.gotPatch.Status)
	require.NotNil(t, purchases.gotPatch.StripeSessionID)
	assert.Equal(t, "cs_1", *purchases.gotPatch.StripeSessionID)
	assert.Nil(t, purchases.gotPatch.StripePaymentIntentID, "absent fields stay absent")
	assert.Nil(t, purchases.gotPatch.ErrorMessage)
}

func TestApplyUpdateExplicitStatus(t *testing.T) {
	purchases := &fakePurchases{}
	svc := NewCallbackService(purchases, config.CallbackConfig{Secret: "s3cret"}, testLogger)

	row, err := svc.ApplyUpdate(context.Background(), "s3cret", PurchaseUpdate{
		PurchaseID:   "p-2",
		Status:       strptr("falhou"),
		ErrorMessage: strptr("card declined"),
	})
	require.NoError(t, err)
	assert.Nil(t, row, "nil row means no purchase matched")
	assert.Equal(t, "falhou", purchases.gotPatch.Status)
	require.NotNil(t, purchases.gotPatch.ErrorMessage)
	assert.Equal(t, "card declined", *purchases.gotPatch.ErrorMessage)
}

func TestApplyUpdateBlankStatusKeepsDefault(t *testing.T) {
	purchases := &fakePurchases{}
	svc := NewCallbackService(purchases, config.CallbackConfig{Secret: "s3cret"}, testLogger)

	_, err := svc.ApplyUpdate(context.Background(), "s3cret", PurchaseUpdate{
		PurchaseID: "p-3",
		Status:     strptr("   "),
	})
	require.NoError(t, err)
	assert.Equal(t, "concluido", purchases.gotPatch.Status)
}
