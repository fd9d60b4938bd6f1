package mcp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil ports returns error", func(t *testing.T) {
		server, err := NewServer(nil)
		require.ErrorIs(t, err, ErrMissingReportService)
		assert.Nil(t, server)
	})

	t.Run("nil report service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.ErrorIs(t, err, ErrMissingReportService)
		assert.Nil(t, server)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Reports: &mockReportService{}})
		require.NoError(t, err)
		assert.Equal(t, "dev", server.Version())
	})

	t.Run("version option", func(t *testing.T) {
		server, err := NewServer(&Ports{Reports: &mockReportService{}}, WithVersion("1.2.3"))
		require.NoError(t, err)
		assert.Equal(t, "1.2.3", server.Version())

		server, err = NewServer(&Ports{Reports: &mockReportService{}}, WithVersion(""))
		require.NoError(t, err)
		assert.Equal(t, "dev", server.Version())
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil report service returns error", func(t *testing.T) {
		ports := &Ports{Context: &mockContextService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingReportService)
	})

	t.Run("reports only is valid", func(t *testing.T) {
		ports := &Ports{Reports: &mockReportService{}}
		assert.NoError(t, ports.Validate())
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{Reports: &mockReportService{}, Context: &mockContextService{}}
		assert.NoError(t, ports.Validate())
	})
}

func TestServer_HealthEndpoint(t *testing.T) {
	server, err := NewServer(&Ports{Reports: &mockReportService{}})
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))
}

func TestServer_UnknownPath(t *testing.T) {
	server, err := NewServer(&Ports{Reports: &mockReportService{}})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInstructionsCarryDisclaimer(t *testing.T) {
	assert.Contains(t, Instructions, "not medical advice")
}
