package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-pos-sync/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchAllFiltersByTenant(t *testing.T) {
	tenant := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "eq."+tenant.String(), r.URL.Query().Get("tenant_id"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "secret", r.Header.Get("apikey"))
		w.Write([]byte(`[{"uuid":"a","name":"x"},{"uuid":"b","name":"y"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	rows, err := c.FetchAll(context.Background(), "products", tenant)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.JSONEq(t, `{"uuid":"a","name":"x"}`, string(rows[0]))
}

func TestClient_FetchAllRejectsNonArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"nope"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", time.Second).FetchAll(context.Background(), "units", uuid.New())
	assert.ErrorContains(t, err, "expected a JSON array")
}

func TestClient_UpsertSendsMergeHeaders(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "uuid", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "resolution=merge-duplicates", r.Header.Get("Prefer"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k", time.Second).Upsert(context.Background(), "units", []byte(`{"uuid":"u"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"uuid":"u"}`, gotBody)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k", time.Second).Upsert(context.Background(), "units", []byte(`{}`))
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "bad payload", statusErr.Body)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL, "k", time.Second).FetchAll(context.Background(), "units", uuid.New())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestClient_FetchTenant(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tenants", r.URL.Path)
		if r.URL.Query().Get("uuid") == "eq."+id.String() {
			w.Write([]byte(`[{"uuid":"` + id.String() + `","name":"Shop","status":"ACTIVE"}]`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second)
	tenant, err := c.FetchTenant(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Shop", tenant.Name)
	assert.Equal(t, model.TenantStatusActive, tenant.Status)

	_, err = c.FetchTenant(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrTenantNotFound)
}
