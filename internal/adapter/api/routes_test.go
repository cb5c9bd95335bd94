package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
	"github.com/bpaauwe/WeatherServicePrototype/internal/node"
	"github.com/bpaauwe/WeatherServicePrototype/internal/store"
)

type fakeNode struct {
	records    []store.Record
	driversErr error
	dispatched []string
	params     map[string]string
	configErr  error
}

func (f *fakeNode) Address() string { return "weather" }
func (f *fakeNode) Name() string    { return "WSPrototype" }

func (f *fakeNode) CurrentQuery() domain.Query {
	return domain.Query{Location: "95762,us", Units: "metric", APIKey: "secret"}
}

func (f *fakeNode) Drivers(_ context.Context) ([]store.Record, error) {
	return f.records, f.driversErr
}

func (f *fakeNode) Dispatch(_ context.Context, command string) error {
	if !strings.EqualFold(command, "QUERY") {
		return fmt.Errorf("%w: %q", node.ErrUnknownCommand, command)
	}
	f.dispatched = append(f.dispatched, command)
	return nil
}

func (f *fakeNode) ProcessConfig(params map[string]string) (bool, error) {
	if f.configErr != nil {
		return false, f.configErr
	}
	f.params = params
	return len(params) > 0, nil
}

func newTestApp(n Node) *fiber.App {
	return NewApp(n, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestSchema(t *testing.T) {
	app := newTestApp(&fakeNode{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/schema", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got []domain.DriverSpec
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, domain.Schema(), got)
}

func TestNodeInfo(t *testing.T) {
	status, body := do(t, newTestApp(&fakeNode{}), http.MethodGet, "/api/v1/node", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "weather", body["address"])
	assert.Equal(t, "95762,us", body["location"])
	assert.NotContains(t, body, "apikey")
}

func TestDrivers(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := &fakeNode{records: []store.Record{
		{Driver: domain.DriverTemperature, Value: domain.Float(22.03), UOM: domain.UOMCelsius, UpdatedAt: at},
		{Driver: domain.DriverConditions, Value: domain.Int(800), UOM: domain.UOMIndex, UpdatedAt: at},
	}}
	app := newTestApp(n)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/drivers", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got []store.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "22.03", got[0].Value.String())
	assert.Equal(t, "800", got[1].Value.String())
}

func TestDriversNotFound(t *testing.T) {
	status, body := do(t, newTestApp(&fakeNode{driversErr: store.ErrNotFound}), http.MethodGet, "/api/v1/drivers", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, true, body["error"])
}

func TestDriversStoreFailure(t *testing.T) {
	status, _ := do(t, newTestApp(&fakeNode{driversErr: fmt.Errorf("disk I/O error")}), http.MethodGet, "/api/v1/drivers", "")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestConditions(t *testing.T) {
	app := newTestApp(&fakeNode{})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"known code", "/api/v1/conditions/800", http.StatusOK},
		{"unknown code", "/api/v1/conditions/999", http.StatusNotFound},
		{"not a number", "/api/v1/conditions/clear", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := do(t, app, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.status, status)
		})
	}

	_, body := do(t, app, http.MethodGet, "/api/v1/conditions/800", "")
	assert.Equal(t, "clear sky", body["description"])
	assert.InDelta(t, 800, body["code"], 0)
}

func TestCommands(t *testing.T) {
	n := &fakeNode{}
	app := newTestApp(n)

	status, body := do(t, app, http.MethodPost, "/api/v1/commands/query", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, []string{"query"}, n.dispatched)

	status, _ = do(t, app, http.MethodPost, "/api/v1/commands/REBOOT", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestParams(t *testing.T) {
	n := &fakeNode{}
	app := newTestApp(n)

	status, body := do(t, app, http.MethodPut, "/api/v1/params", `{"location":"London,uk","units":"imperial"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, map[string]string{"location": "London,uk", "units": "imperial"}, n.params)
}

func TestParamsValidation(t *testing.T) {
	tests := []struct {
		name string
		node *fakeNode
		body string
	}{
		{"bad units", &fakeNode{}, `{"units":"kelvin"}`},
		{"empty location", &fakeNode{}, `{"location":""}`},
		{"malformed body", &fakeNode{}, `{"location":`},
		{"rejected by node", &fakeNode{configErr: fmt.Errorf("%w: apikey", node.ErrInvalidParams)}, `{"apikey":"k"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, newTestApp(tt.node), http.MethodPut, "/api/v1/params", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, true, body["error"])
		})
	}
}
