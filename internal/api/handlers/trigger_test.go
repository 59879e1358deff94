package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/api/handlers"
	domain "stockwatch/pkg/types"
)

type fakeCycleRunner struct {
	result domain.CycleResult
	calls  int
}

func (f *fakeCycleRunner) RunCycle(context.Context) domain.CycleResult {
	f.calls++
	return f.result
}

func TestTriggerCycle_Success(t *testing.T) {
	t.Parallel()

	fr := &fakeCycleRunner{result: domain.CycleResult{Found: 48, AlertsSent: 2}}

	h := handlers.NewTriggerHandler(fr)

	_, api := humatest.New(t)
	handlers.RegisterTriggerRoutes(api, h)

	resp := api.Post("/api/v1/cycle/trigger")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"found":48`)
	assert.Contains(t, resp.Body.String(), `"alerts_sent":2`)
	assert.Contains(t, resp.Body.String(), `"failed":false`)
	assert.Equal(t, 1, fr.calls)
}

func TestTriggerCycle_FailedCycleStillReports(t *testing.T) {
	t.Parallel()

	fr := &fakeCycleRunner{result: domain.CycleResult{Failed: true}}

	h := handlers.NewTriggerHandler(fr)

	_, api := humatest.New(t)
	handlers.RegisterTriggerRoutes(api, h)

	resp := api.Post("/api/v1/cycle/trigger")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"failed":true`)
}
