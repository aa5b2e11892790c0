package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodiesEqualUnwrapsEnvelopeAndIgnoresFields(t *testing.T) {
	goBody := []byte(`{"data":{"id":1,"price":300,"start_date":"2024-01-10T00:00:00Z","created_at":"2024-01-01T10:00:00Z","active":false}}`)
	legacyBody := []byte(`{"id":1,"price":300,"start_date":"2024-01-10T00:00:00.000Z","createdAt":"2024-01-01T10:00:00.123Z"}`)

	ignored := ignoreSet("created_at, createdAt,active")
	assert.True(t, bodiesEqual(unwrapEnvelope(goBody), legacyBody, ignored))
	assert.False(t, bodiesEqual(unwrapEnvelope(goBody), []byte(`{"id":1,"price":301}`), ignored))
}

func TestBodiesEqualTreatsMissingShowAsNull(t *testing.T) {
	assert.True(t, bodiesEqual(unwrapEnvelope([]byte(`{"meta":{"cache_hit":false}}`)), []byte(`null`), nil))
}

func TestCompareTargetSendsTokenOnlyWhenRequired(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: time.Second}
	side := endpoint{base: srv.URL, token: "abc"}

	comp := compareTarget(client, side, side, target{Method: "GET", Path: "registrations", Auth: true}, nil)
	require.NoError(t, comp.Error)
	assert.True(t, comp.StatusMatch)
	assert.True(t, comp.BodyMatch)

	compareTarget(client, side, side, target{Method: "GET", Path: "/registrations"}, nil)
	assert.Equal(t, []string{"Bearer abc", "Bearer abc", "", ""}, seen)
}
