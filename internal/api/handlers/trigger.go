package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "stockwatch/pkg/types"
)

// CycleRunner runs one poll cycle on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context) domain.CycleResult
}

// TriggerHandler handles manual cycle trigger requests.
type TriggerHandler struct {
	runner CycleRunner
}

// NewTriggerHandler creates a new TriggerHandler.
func NewTriggerHandler(r CycleRunner) *TriggerHandler {
	return &TriggerHandler{runner: r}
}

// TriggerOutput is the response body for the cycle trigger endpoint.
type TriggerOutput struct {
	Body struct {
		Found      int  `json:"found" example:"48" doc:"Products observed on the listing"`
		AlertsSent int  `json:"alerts_sent" example:"2" doc:"Alerts delivered this cycle"`
		Failed     bool `json:"failed" example:"false" doc:"Whether the cycle failed"`
	}
}

// Trigger runs one poll cycle synchronously and reports the result.
func (h *TriggerHandler) Trigger(ctx context.Context, _ *struct{}) (*TriggerOutput, error) {
	result := h.runner.RunCycle(ctx)

	resp := &TriggerOutput{}
	resp.Body.Found = result.Found
	resp.Body.AlertsSent = result.AlertsSent
	resp.Body.Failed = result.Failed
	return resp, nil
}

// RegisterTriggerRoutes registers trigger endpoints with the Huma API.
func RegisterTriggerRoutes(api huma.API, h *TriggerHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-cycle",
		Method:      http.MethodPost,
		Path:        "/api/v1/cycle/trigger",
		Summary:     "Trigger a poll cycle",
		Description: "Runs one full poll cycle: fetch the listing, classify, alert, and persist.",
		Tags:        []string{"cycle"},
	}, h.Trigger)
}
