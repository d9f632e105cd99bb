package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config) *echo.Echo {
	t.Helper()
	e := echo.New()
	NewServer(cfg).RegisterRoutes(e)
	return e
}

// reliableConfig disables injected failures and delays for deterministic tests.
func reliableConfig() Config {
	return Config{Seed: 1}
}

func post(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, reliableConfig())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestWeather(t *testing.T) {
	e := newTestServer(t, reliableConfig())

	rec := post(e, "/api/weather", `{"location":"Tokyo"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp weatherResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Tokyo", resp.Location)
	assert.Contains(t, conditions, resp.Conditions)
	assert.GreaterOrEqual(t, resp.Humidity, 30)
	assert.LessOrEqual(t, resp.Humidity, 90)
}

func TestWeatherRequiresLocation(t *testing.T) {
	e := newTestServer(t, reliableConfig())
	rec := post(e, "/api/weather", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomer(t *testing.T) {
	e := newTestServer(t, reliableConfig())

	rec := post(e, "/api/customer", `{"customer_id":"12345"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp customerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "12345", resp.CustomerID)
	assert.Equal(t, "active", resp.Status)
}

func TestCustomerNotFound(t *testing.T) {
	e := newTestServer(t, reliableConfig())

	rec := post(e, "/api/customer", `{"customer_id":"invalid123"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "customer invalid123 not found", rec.Body.String())
}

func TestCustomerRequiresID(t *testing.T) {
	e := newTestServer(t, reliableConfig())
	rec := post(e, "/api/customer", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// With FailureRate 1 every request lands on one of the error scenarios.
func TestInjectedFailures(t *testing.T) {
	e := newTestServer(t, Config{FailureRate: 1, Seed: 7})

	statuses := map[int]bool{}
	for _, s := range errorScenarios {
		statuses[s.status] = true
	}
	for i := 0; i < 20; i++ {
		rec := post(e, "/api/weather", `{"location":"Paris"}`)
		assert.True(t, statuses[rec.Code], "unexpected status %d", rec.Code)
	}
}
