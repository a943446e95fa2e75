package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
)

func TestSerializeLink(t *testing.T) {
	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	link := domain.GatewayLink{
		GatewayName:   "hilltop",
		GatewayCoords: [2]float64{45.704, 13.72},
		StationID:     "ITM00016044",
		StationCoords: [2]float64{46.034, 13.186},
		Midpoint:      [2]float64{45.87, 13.45},
		Graphs:        map[string]string{"2026-02-11": "profiles/gw-1_2026-02-11.json"},
		UpdatedAt:     now,
	}

	msg, err := serializeLink("gw-1", link)
	require.NoError(t, err)

	assert.Equal(t, []byte("gw-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"station_id":"ITM00016044"`)
	assert.Contains(t, string(msg.Value), `"gateway_name":"hilltop"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "station_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("ITM00016044"), msg.Headers[0].Value)
	assert.Equal(t, "updated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestPublishLinks_EmptyIndexIsNoop(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "gateway-links", slog.Default())
	defer w.Close()

	// No messages to write means no broker round-trip at all.
	assert.NoError(t, w.PublishLinks(context.Background(), nil))
}
