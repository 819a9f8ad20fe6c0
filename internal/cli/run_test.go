package cli

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wesleyorama2/breakwater/internal/config"
	"github.com/wesleyorama2/breakwater/internal/mockapi"
)

func runConfigYAML(baseURL, surface, scenario string, requests int) []byte {
	return []byte(fmt.Sprintf(`
name: cli-test
target:
  baseUrl: %s
  surface: %s
  scenario: "%s"
run:
  requests: %d
  maxWait: 10s
  stagger: 1ms
capacity:
  kind: fixed
  limit: %d
`, baseURL, surface, scenario, requests, requests))
}

func TestExecuteRunProducts(t *testing.T) {
	backend := httptest.NewServer(mockapi.NewServer(zap.NewNop()).Handler())
	defer backend.Close()

	cfg, err := config.Parse(runConfigYAML(backend.URL, "products", "500-ok-ok-ok", 4))
	require.NoError(t, err)

	rep, err := executeRun(context.Background(), cfg, false, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 4, rep.Requested)
	assert.Equal(t, 4, rep.TotalRequests)
	// One scripted 500 somewhere in the burst, the rest succeed.
	assert.Equal(t, 3, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, "cli-test", rep.Kind)
}

func TestExecuteRunPaymentDeferred(t *testing.T) {
	backend := httptest.NewServer(mockapi.NewServer(zap.NewNop()).Handler())
	defer backend.Close()

	cfg, err := config.Parse(runConfigYAML(backend.URL, "payment", "ok", 3))
	require.NoError(t, err)

	rep, err := executeRun(context.Background(), cfg, true, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Succeeded)
	for _, rec := range rep.Executions {
		assert.NotEmpty(t, rec.Submitter)
		assert.NotEmpty(t, rec.Executor)
	}
}

func TestBuildOperationUnknownSurface(t *testing.T) {
	cfg, err := config.Parse(runConfigYAML("http://localhost:1", "products", "ok", 1))
	require.NoError(t, err)
	cfg.Target.Surface = "orders"

	_, err = buildOperation(cfg)
	assert.ErrorContains(t, err, "unknown surface")
}

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range RootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["run"])
}
