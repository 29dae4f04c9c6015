package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwmia/gateway/internal/supabase"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sb, err := supabase.New(supabase.Config{URL: srv.URL, APIKey: "service-role-key"})
	require.NoError(t, err)
	return New(sb)
}

func TestMusicByID(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/musicas", r.URL.Path)
		assert.Equal(t, "id,titulo,preco", r.URL.Query().Get("select"))
		assert.Equal(t, "eq.m-1", r.URL.Query().Get("id"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "service-role-key", r.Header.Get("apikey"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"m-1","titulo":"Minha Música","preco":19.9}]`))
	})

	item, err := st.MusicByID(context.Background(), "m-1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "m-1", item.ID)
	assert.Equal(t, "Minha Música", item.Title)
	assert.Equal(t, 19.9, item.Price)
}

func TestMusicByIDAbsent(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	item, err := st.MusicByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, item, "absence is not an error at this layer")
}

func TestMusicByIDNullPrice(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"m-2","titulo":"Sem Preço","preco":null}]`))
	})

	item, err := st.MusicByID(context.Background(), "m-2")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Zero(t, item.Price)
}

func TestMusicByIDUpstreamError(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"relation does not exist"}`))
	})

	_, err := st.MusicByID(context.Background(), "m-1")
	require.Error(t, err)
}

func TestUpdatePurchasePatchesOnlyPresentFields(t *testing.T) {
	var gotBody map[string]interface{}
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/rest/v1/compras", r.URL.Path)
		assert.Equal(t, "eq.p-1", r.URL.Query().Get("id"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = w.Write([]byte(`[{"id":"p-1","status":"concluido","stripe_session_id":"cs_1"}]`))
	})

	session := "cs_1"
	row, err := st.UpdatePurchase(context.Background(), "p-1", PurchasePatch{
		Status:          "concluido",
		StripeSessionID: &session,
	})
	require.NoError(t, err)
	require.NotNil(t, row)

	assert.Equal(t, map[string]interface{}{
		"status":            "concluido",
		"stripe_session_id": "cs_1",
	}, gotBody, "nil patch fields must not appear in the body")
}

func TestUpdatePurchaseNoMatch(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	row, err := st.UpdatePurchase(context.Background(), "ghost", PurchasePatch{Status: "concluido"})
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestUpdatePurchaseRejected(t *testing.T) {
	st := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"violates check constraint"}`))
	})

	_, err := st.UpdatePurchase(context.Background(), "p-1", PurchasePatch{Status: "bogus"})
	require.Error(t, err)
}
