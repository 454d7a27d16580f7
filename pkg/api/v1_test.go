package routing

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iziplay/saime-api/pkg/cache"
	"github.com/iziplay/saime-api/pkg/identity"
	"github.com/iziplay/saime-api/pkg/lookup"
	"github.com/iziplay/saime-api/pkg/lookup/mocks"
	"github.com/iziplay/saime-api/pkg/saime"
	"github.com/iziplay/saime-api/pkg/vault"
)

const page = `<input name="Dregistro[letra]" value="V">
<input name="Dregistro[num_cedula]" value="12345678">
<input name="Dregistro[primernombre]" value="MARIA">
<input name="Dregistro[primerapellido]" value="ROJAS">
<input name="Dregistro[fecha_nac]" value="01-12-1985">
<input name="Dregistro[sexo]" value="F">`

func setup(t *testing.T, secret string, opts ...lookup.Option) (humatest.TestAPI, *mocks.MockFetcher) {
	t.Helper()

	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)

	svc, err := lookup.New(fetcher, opts...)
	require.NoError(t, err)

	_, api := humatest.New(t)
	Setup(api, svc, secret)

	return api, fetcher
}

func TestHealthCheck(t *testing.T) {
	api, _ := setup(t, "")

	resp := api.Get("/healthz")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "OK", resp.Body.String())
}

func TestLookupDocument(t *testing.T) {
	api, fetcher := setup(t, "")
	fetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(page, nil)

	resp := api.Get("/api/v1/saime/v/12.345.678")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var record identity.Record
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &record))
	assert.Equal(t, identity.Record{
		Nationality:   "V",
		Document:      "12345678",
		FirstName:     "MARIA",
		MiddleName:    "-",
		FirstSurname:  "ROJAS",
		SecondSurname: "-",
		BirthDate:     "01 de diciembre de 1985",
		Gender:        "Mujer",
	}, record)
}

func TestLookupDocumentInvalidParameters(t *testing.T) {
	api, _ := setup(t, "")

	for _, path := range []string{
		"/api/v1/saime/X/12345678",
		"/api/v1/saime/V/abc",
		"/api/v1/saime/V/0",
		"/api/v1/saime/V/-5",
	} {
		resp := api.Get(path)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, path)
	}
}

func TestLookupDocumentUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"timeout", &saime.FetchError{Category: saime.ErrorTimeout, Message: "registry did not answer in time"}, http.StatusGatewayTimeout},
		{"outage", &saime.FetchError{Category: saime.ErrorOutage, StatusCode: 500, Message: "registry failed"}, http.StatusBadGateway},
		{"bad status", &saime.FetchError{Category: saime.ErrorBadStatus, StatusCode: 404, Message: "unexpected status code"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, fetcher := setup(t, "")
			fetcher.EXPECT().Fetch(gomock.Any(), int64(1), "E").Return("", tt.err)

			resp := api.Get("/api/v1/saime/E/1")
			assert.Equal(t, tt.status, resp.Code)
		})
	}
}

func TestLookupDocumentCaches(t *testing.T) {
	store := cache.NewEncrypted(cache.NewMemory(0), vault.New([]byte("secret")))
	api, fetcher := setup(t, "", lookup.WithStore(store))

	fetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(page, nil).Times(1)

	first := api.Get("/api/v1/saime/V/12345678?cache=true")
	require.Equal(t, http.StatusOK, first.Code)

	second := api.Get("/api/v1/saime/V/12345678")
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	stats := api.Get("/api/v1/statistics")
	require.Equal(t, http.StatusOK, stats.Code)

	var body struct {
		Lookups lookup.Counters `json:"lookups"`
		Cache   *cache.Stats    `json:"cache"`
	}
	require.NoError(t, json.Unmarshal(stats.Body.Bytes(), &body))
	assert.Equal(t, int64(2), body.Lookups.Lookups)
	assert.Equal(t, int64(1), body.Lookups.CacheHits)
	require.NotNil(t, body.Cache)
	assert.Equal(t, "memory", body.Cache.Backend)
	assert.Equal(t, int64(1), body.Cache.Entries)
}

func TestStatisticsWithoutCache(t *testing.T) {
	api, _ := setup(t, "")

	resp := api.Get("/api/v1/statistics")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), `"cache"`)
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "jwt-secret"

	sign := func(t *testing.T, key string, method jwt.SigningMethod) string {
		t.Helper()
		token, err := jwt.NewWithClaims(method, jwt.MapClaims{
			"sub": "tester",
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(key))
		require.NoError(t, err)
		return token
	}

	t.Run("missing token is rejected", func(t *testing.T) {
		api, _ := setup(t, secret)
		resp := api.Get("/api/v1/saime/V/12345678")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("wrong key is rejected", func(t *testing.T) {
		api, _ := setup(t, secret)
		resp := api.Get("/api/v1/saime/V/12345678", "Authorization: Bearer "+sign(t, "other", jwt.SigningMethodHS256))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("valid header token is accepted", func(t *testing.T) {
		api, fetcher := setup(t, secret)
		fetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(page, nil)

		resp := api.Get("/api/v1/saime/V/12345678", "Authorization: Bearer "+sign(t, secret, jwt.SigningMethodHS256))
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("valid query token is accepted", func(t *testing.T) {
		api, fetcher := setup(t, secret)
		fetcher.EXPECT().Fetch(gomock.Any(), int64(12345678), "V").Return(page, nil)

		resp := api.Get("/api/v1/saime/V/12345678?jwt=" + sign(t, secret, jwt.SigningMethodHS512))
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("open operations skip the check", func(t *testing.T) {
		api, _ := setup(t, secret)
		resp := api.Get("/healthz")
		assert.Equal(t, http.StatusOK, resp.Code)
	})
}

var (
	_ lookup.Fetcher = (*saime.Client)(nil)
	_ lookup.Store   = (*cache.Encrypted)(nil)
)
