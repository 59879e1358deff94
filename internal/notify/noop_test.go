package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	domain "stockwatch/pkg/types"
)

func TestNoOpNotifier(t *testing.T) {
	t.Parallel()

	n := NewNoOpNotifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	require.NoError(t, n.SendAlert(ctx, AlertPayload{
		Product:        domain.Product{ID: "sw1001", Name: "Oversized Hoodie"},
		Classification: domain.ClassificationNew,
	}))
	require.NoError(t, n.SendSummary(ctx, domain.Stats{TotalActiveProducts: 5}))
	require.NoError(t, n.SendStartup(ctx))
	require.NoError(t, n.SendShutdown(ctx, domain.Stats{}))
	require.NoError(t, n.SendError(ctx, "listing fetch failed"))
}
