package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domain "stockwatch/pkg/types"
)

// StatsProvider queries aggregate monitoring statistics.
type StatsProvider interface {
	Stats(ctx context.Context) (*domain.Stats, error)
}

// StatsHandler handles statistics requests.
type StatsHandler struct {
	store StatsProvider
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(s StatsProvider) *StatsHandler {
	return &StatsHandler{store: s}
}

// StatsOutput is the response for the stats endpoint.
type StatsOutput struct {
	Body struct {
		TotalActiveProducts int        `json:"total_active_products" example:"142" doc:"Products currently active in the store"`
		NewToday            int        `json:"new_today" example:"3" doc:"New product alerts since local midnight"`
		RestocksToday       int        `json:"restocks_today" example:"1" doc:"Restock alerts since local midnight"`
		TotalAlertsSent     int        `json:"total_alerts_sent" example:"857" doc:"All alerts ever sent"`
		LastCheckAt         *time.Time `json:"last_check_at,omitempty" doc:"When the last poll cycle ran"`
	}
}

// Stats returns aggregate monitoring statistics.
func (h *StatsHandler) Stats(ctx context.Context, _ *struct{}) (*StatsOutput, error) {
	stats, err := h.store.Stats(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to get stats: " + err.Error())
	}

	resp := &StatsOutput{}
	resp.Body.TotalActiveProducts = stats.TotalActiveProducts
	resp.Body.NewToday = stats.NewToday
	resp.Body.RestocksToday = stats.RestocksToday
	resp.Body.TotalAlertsSent = stats.TotalAlertsSent
	resp.Body.LastCheckAt = stats.LastCheckAt
	return resp, nil
}

// RegisterStatsRoutes registers stats endpoints with the Huma API.
func RegisterStatsRoutes(api huma.API, h *StatsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Get monitoring statistics",
		Description: "Returns active product counts, today's alert activity, and the last check time.",
		Tags:        []string{"stats"},
	}, h.Stats)
}
