// Package export renders score history into downloadable formats for the
// ops API.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/EduPulseAI/engagement-service/internal/models"
)

var scoreHistoryHeaders = []string{
	"event_id", "student_id", "session_id", "score",
	"accuracy_score", "dwell_score", "pacing_score",
	"trend", "alert", "window_start", "window_end", "emitted_at",
}

// CSVExporter renders score history rows into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the rows, newest first as given.
func (e *CSVExporter) Render(rows []models.EngagementScoreRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	if err := writer.Write(scoreHistoryHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.EventID,
			row.StudentID,
			row.SessionID,
			formatFloat(row.Score),
			formatFloat(row.AccuracyScore),
			formatFloat(row.DwellScore),
			formatFloat(row.PacingScore),
			row.Trend,
			strconv.FormatBool(row.Alert),
			strconv.FormatInt(row.WindowStart, 10),
			strconv.FormatInt(row.WindowEnd, 10),
			row.EmittedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
