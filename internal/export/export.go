// Package export serializes stored queries into downloadable formats.
// All functions are pure: they read records and produce bytes.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/store"
)

// Format identifies an export serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatPDF  Format = "pdf"
)

// ErrUnsupportedFormat is returned for format values Export does not know.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV, FormatPDF:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Export serializes records into the requested format.
func Export(records []store.StoredQuery, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return exportJSON(records)
	case FormatCSV:
		return exportCSV(records)
	case FormatPDF:
		return exportPDF(records)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Import parses records previously produced by the JSON export. Only JSON
// round-trips losslessly; the tabular formats are one-way.
func Import(data []byte, format Format) ([]store.StoredQuery, error) {
	if format != FormatJSON {
		return nil, fmt.Errorf("%w: import supports json only, got %q", ErrUnsupportedFormat, format)
	}
	var records []store.StoredQuery
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing exported json: %w", err)
	}
	return records, nil
}

func exportJSON(records []store.StoredQuery) ([]byte, error) {
	if records == nil {
		records = []store.StoredQuery{}
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json export: %w", err)
	}
	return out, nil
}

// csvHeader lists the tabular report columns, record id first.
var csvHeader = []string{
	"ID", "Location", "Date",
	"Temperature (°C)", "Description", "Humidity (%)", "Wind Speed (m/s)",
}

func csvRow(q store.StoredQuery) []string {
	return []string{
		q.ID,
		q.Location.Label(),
		q.CreatedAt.UTC().Format(time.DateTime),
		strconv.FormatFloat(q.Conditions.Temperature, 'f', 1, 64),
		q.Conditions.Description,
		strconv.FormatFloat(q.Conditions.Humidity, 'f', 0, 64),
		strconv.FormatFloat(q.Conditions.WindSpeed, 'f', 1, 64),
	}
}

func exportCSV(records []store.StoredQuery) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, q := range records {
		if err := w.Write(csvRow(q)); err != nil {
			return nil, fmt.Errorf("writing csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing csv: %w", err)
	}
	return buf.Bytes(), nil
}

func exportPDF(records []store.StoredQuery) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Weather Query History", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, "Weather Query History")
	pdf.Ln(12)

	widths := []float64{58, 62, 38, 28, 50, 22, 26}
	header := []string{"ID", "Location", "Date", "Temp (C)", "Description", "Hum (%)", "Wind (m/s)"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, q := range records {
		row := csvRow(q)
		for i, v := range row {
			pdf.CellFormat(widths[i], 7, truncate(v, 40), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate shortens s to at most max runes, ending with an ellipsis.
// Cutting on runes rather than bytes keeps multi-byte text intact.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
