package export

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EduPulseAI/engagement-service/internal/models"
)

func TestRenderProducesHeaderAndRows(t *testing.T) {
	exporter := NewCSVExporter()

	rows := []models.EngagementScoreRow{
		{
			EventID:       "evt-1",
			StudentID:     "student-1",
			SessionID:     "session-1",
			Score:         0.83,
			AccuracyScore: 0.8,
			DwellScore:    1.0,
			PacingScore:   0.7,
			Trend:         "RISING",
			Alert:         false,
			WindowStart:   60000,
			WindowEnd:     120000,
			EmittedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}

	payload, err := exporter.Render(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, scoreHistoryHeaders, records[0])
	require.Equal(t, "evt-1", records[1][0])
	require.Equal(t, "0.8300", records[1][3])
	require.Equal(t, "false", records[1][8])
	require.Equal(t, "2026-03-01T10:00:00Z", records[1][11])
}

func TestRenderEmptyHistoryKeepsHeader(t *testing.T) {
	exporter := NewCSVExporter()

	payload, err := exporter.Render(nil)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}
