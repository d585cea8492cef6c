// Package pdf renders inspection certificates using maroto/v2.
package pdf

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ── Colour palette ──────────────────────────────────────────────────────

var (
	colorPrimary   = &props.Color{Red: 17, Green: 24, Blue: 39}    // near-black
	colorSecondary = &props.Color{Red: 107, Green: 114, Blue: 128} // gray-500
	colorAccent    = &props.Color{Red: 37, Green: 99, Blue: 235}   // blue-600
	colorTableHead = &props.Color{Red: 241, Green: 245, Blue: 249} // slate-100
	colorTableAlt  = &props.Color{Red: 249, Green: 250, Blue: 251} // gray-50
	colorGreen     = &props.Color{Red: 22, Green: 163, Blue: 74}   // green-600
	colorAmber     = &props.Color{Red: 217, Green: 119, Blue: 6}   // amber-600
	colorRed       = &props.Color{Red: 220, Green: 38, Blue: 38}   // red-600
	colorBorder    = &props.Color{Red: 226, Green: 232, Blue: 240} // slate-200
)

// ── Data struct ─────────────────────────────────────────────────────────

// CheckLine is one row of the checklist table.
type CheckLine struct {
	Name   string
	Status string
	Note   string
}

// CertificateData holds everything printed on an inspection certificate.
type CertificateData struct {
	CertificateNumber string
	InspectionID      string
	InspectedAt       time.Time
	IssuedAt          time.Time

	CustomerName string

	VehicleRegistration string
	VehicleBrand        string
	VehicleModel        string
	VehicleType         string

	FinalStatus string
	Checks      []CheckLine
	Notes       *string

	InvoiceNumber *string
}

// GenerateCertificate creates the certificate PDF and returns its bytes.
func GenerateCertificate(data CertificateData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(12).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	if err := m.RegisterFooter(buildFooter(data)); err != nil {
		return nil, fmt.Errorf("register footer: %w", err)
	}

	m.AddRows(buildHeader(data)...)
	m.AddRows(row.New(1).WithStyle(&props.Cell{
		BorderType:  border.Bottom,
		BorderColor: colorBorder,
	}))
	m.AddRows(row.New(6))

	m.AddRows(buildVehicleBlock(data)...)
	m.AddRows(row.New(6))

	m.AddRows(buildVerdictBanner(data.FinalStatus))
	m.AddRows(row.New(4))

	m.AddRows(buildChecksTable(data.Checks)...)

	if data.Notes != nil && strings.TrimSpace(*data.Notes) != "" {
		m.AddRows(row.New(6))
		m.AddRows(buildNotesBlock(*data.Notes)...)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

// ── Header ──────────────────────────────────────────────────────────────

func buildHeader(data CertificateData) []core.Row {
	return []core.Row{
		row.New(20).Add(
			col.New(6).Add(text.New("Vehicle Inspection Centre", props.Text{
				Size:  14,
				Style: fontstyle.Bold,
				Color: colorPrimary,
				Top:   4,
			})),
			col.New(6).Add(
				text.New("INSPECTION CERTIFICATE", props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Right,
					Color: colorAccent,
				}),
				text.New(data.CertificateNumber, props.Text{
					Size:  10,
					Align: align.Right,
					Color: colorSecondary,
					Top:   10,
				}),
			),
		),
	}
}

// ── Vehicle block ───────────────────────────────────────────────────────

func buildVehicleBlock(data CertificateData) []core.Row {
	label := props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent}
	value := props.Text{Size: 9, Color: colorPrimary}
	right := props.Text{Size: 8, Color: colorSecondary, Align: align.Right}

	vehicle := strings.TrimSpace(data.VehicleBrand + " " + data.VehicleModel)
	if data.VehicleType != "" {
		vehicle += " (" + data.VehicleType + ")"
	}

	return []core.Row{
		row.New(5).Add(
			col.New(4).Add(text.New("VEHICLE", label)),
			col.New(4).Add(text.New("OWNER", label)),
			col.New(4).Add(text.New("DETAILS", props.Text{Size: 7, Style: fontstyle.Bold, Color: colorAccent, Align: align.Right})),
		),
		row.New(5).Add(
			col.New(4).Add(text.New(data.VehicleRegistration, props.Text{Size: 11, Style: fontstyle.Bold, Color: colorPrimary})),
			col.New(4).Add(text.New(data.CustomerName, value)),
			col.New(4).Add(text.New("Inspected: "+data.InspectedAt.Format("02-01-2006 15:04"), right)),
		),
		row.New(5).Add(
			col.New(4).Add(text.New(vehicle, value)),
			col.New(4),
			col.New(4).Add(text.New("Issued: "+data.IssuedAt.Format("02-01-2006"), right)),
		),
		row.New(5).Add(
			col.New(8),
			col.New(4).Add(text.New(invoiceLabel(data.InvoiceNumber), right)),
		),
	}
}

func invoiceLabel(number *string) string {
	if number == nil || *number == "" {
		return ""
	}
	return "Invoice: " + *number
}

// ── Verdict banner ──────────────────────────────────────────────────────

func buildVerdictBanner(status string) core.Row {
	return row.New(12).Add(
		col.New(12).Add(text.New(VerdictLabel(status), props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Center,
			Color: verdictColor(status),
			Top:   3,
		})),
	).WithStyle(&props.Cell{BackgroundColor: colorTableHead})
}

// VerdictLabel returns the printed form of a final status.
func VerdictLabel(status string) string {
	switch status {
	case "passed":
		return "PASSED"
	case "passed_with_minor_issues":
		return "PASSED WITH MINOR ISSUES"
	case "failed":
		return "FAILED"
	default:
		return strings.ToUpper(status)
	}
}

func verdictColor(status string) *props.Color {
	switch status {
	case "passed":
		return colorGreen
	case "passed_with_minor_issues":
		return colorAmber
	default:
		return colorRed
	}
}

// ── Checklist table ─────────────────────────────────────────────────────

func buildChecksTable(checks []CheckLine) []core.Row {
	rows := []core.Row{
		row.New(7).Add(
			col.New(12).Add(text.New("CHECKLIST", props.Text{
				Size:  8,
				Style: fontstyle.Bold,
				Color: colorAccent,
			})),
		),
	}

	headerStyle := props.Text{Size: 7.5, Style: fontstyle.Bold, Color: colorPrimary, Top: 1.5}
	rows = append(rows, row.New(7).Add(
		col.New(4).Add(text.New("Check", headerStyle)),
		col.New(2).Add(text.New("Result", headerStyle)),
		col.New(6).Add(text.New("Note", headerStyle)),
	).WithStyle(&props.Cell{
		BackgroundColor: colorTableHead,
		BorderType:      border.Bottom,
		BorderColor:     colorBorder,
	}))

	sorted := append([]CheckLine(nil), checks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for i, check := range sorted {
		resultColor := colorGreen
		if check.Status != "pass" {
			resultColor = colorRed
		}
		r := row.New(7).Add(
			col.New(4).Add(text.New(humanize(check.Name), props.Text{Size: 8, Color: colorPrimary, Top: 1})),
			col.New(2).Add(text.New(strings.ToUpper(check.Status), props.Text{Size: 8, Style: fontstyle.Bold, Color: resultColor, Top: 1})),
			col.New(6).Add(text.New(check.Note, props.Text{Size: 8, Color: colorSecondary, Top: 1})),
		)
		if i%2 == 0 {
			r.WithStyle(&props.Cell{BackgroundColor: colorTableAlt})
		}
		rows = append(rows, r)
	}
	return rows
}

func humanize(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// ── Notes ───────────────────────────────────────────────────────────────

func buildNotesBlock(notes string) []core.Row {
	return []core.Row{
		row.New(7).Add(
			col.New(12).Add(text.New("TECHNICIAN NOTES", props.Text{
				Size:  8,
				Style: fontstyle.Bold,
				Color: colorAccent,
			})),
		),
		row.New(14).Add(
			col.New(12).Add(text.New(notes, props.Text{
				Size:  8,
				Color: colorPrimary,
			})),
		),
	}
}

// ── Footer ──────────────────────────────────────────────────────────────

func buildFooter(data CertificateData) core.Row {
	return row.New(10).Add(
		col.New(12).Add(text.New(
			fmt.Sprintf("Certificate %s  |  Inspection %s", data.CertificateNumber, data.InspectionID),
			props.Text{Size: 7, Color: colorSecondary, Align: align.Center, Top: 3},
		)),
	)
}

// CertificateNumber derives a stable certificate number from the inspection time and id.
func CertificateNumber(inspectedAt time.Time, inspectionID string) string {
	short := strings.ToUpper(strings.ReplaceAll(inspectionID, "-", ""))
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("CERT-%s-%s", inspectedAt.UTC().Format("20060102"), short)
}
