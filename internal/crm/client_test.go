package crm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
)

func TestMapStatus(t *testing.T) {
	st, ok := MapStatus(" Approved ")
	assert.True(t, ok)
	assert.Equal(t, domain.StatusPreapproved, st)

	st, ok = MapStatus("submitted_to_bank")
	assert.True(t, ok)
	assert.Equal(t, domain.StatusSubmittedToBank, st)

	_, ok = MapStatus("won")
	assert.False(t, ok)
}

func TestClient_FetchLeadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/leads/status/lead-1/":
			_, _ = w.Write([]byte(`{"pipeline_status":"disbursed","mortgage_amount":"850000.00"}`))
		case "/api/leads/status/lead-2/":
			_, _ = w.Write([]byte(`{"pipeline_status":"qualified","mortgage_amount":null}`))
		case "/api/leads/status/lead-3/":
			_, _ = w.Write([]byte(`{"pipeline_status":"lost"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 5*time.Second, zap.NewNop())
	ctx := context.Background()

	got, err := c.FetchLeadStatus(ctx, "lead-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDisbursed, got.Status)
	require.NotNil(t, got.MortgageAmount)
	assert.Equal(t, "850000", got.MortgageAmount.String())

	got, err = c.FetchLeadStatus(ctx, "lead-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQualified, got.Status)
	assert.Nil(t, got.MortgageAmount)

	_, err = c.FetchLeadStatus(ctx, "lead-3")
	assert.Error(t, err)

	_, err = c.FetchLeadStatus(ctx, "missing")
	assert.Error(t, err)
}
