package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"grants-management-api/utils"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ExportFormat selects the serialization of an export.
type ExportFormat string

const (
	ExportCSV   ExportFormat = "csv"
	ExportPDF   ExportFormat = "pdf"
	ExportExcel ExportFormat = "excel"
)

const (
	ContentTypeCSV   = "text/csv"
	ContentTypePDF   = "application/pdf"
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ErrUnknownExportFormat = errors.New("unknown export format")

// ParseExportFormat accepts csv, pdf, excel and xlsx (case-insensitive).
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return ExportCSV, nil
	case "pdf":
		return ExportPDF, nil
	case "excel", "xlsx":
		return ExportExcel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExportFormat, raw)
}

func (f ExportFormat) extension() string {
	if f == ExportExcel {
		return "xlsx"
	}
	return string(f)
}

func (f ExportFormat) contentType() string {
	switch f {
	case ExportPDF:
		return ContentTypePDF
	case ExportExcel:
		return ContentTypeExcel
	}
	return ContentTypeCSV
}

// Field is one named value of an exported record.
type Field struct {
	Key   string
	Value interface{}
}

// Row is an exported record with a stable column order.
type Row []Field

// Keys returns the column names in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the value under key, or nil.
func (r Row) Get(key string) interface{} {
	for _, f := range r {
		if f.Key == key {
			return f.Value
		}
	}
	return nil
}

// Sheet is a titled table of rows; multi-sheet exports carry one per
// record kind.
type Sheet struct {
	Name  string
	Title string
	Rows  []Row
}

// Payload is a downloadable export.
type Payload struct {
	Filename    string
	ContentType string
	Body        []byte
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case decimal.Decimal:
		return val.String()
	case time.Time:
		return utils.FormatDate(val)
	case *time.Time:
		return utils.FormatDatePtr(val)
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case bool:
		return strconv.FormatBool(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func excelCell(v interface{}) interface{} {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.InexactFloat64()
	case int, int64, uint, float64, bool:
		return val
	default:
		return formatCell(v)
	}
}

// WriteCSV writes a header row taken from the keys of the first row, then
// one line per row. Fields with commas, quotes or newlines are quoted and
// embedded quotes doubled. No rows writes nothing.
func WriteCSV(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	header := rows[0].Keys()
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, key := range header {
			record[i] = formatCell(row.Get(key))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeExcel(sheets []Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return nil, err
		}
		if len(sh.Rows) == 0 {
			if err := f.SetCellValue(sh.Name, "A1", "No records"); err != nil {
				return nil, err
			}
			continue
		}

		header := sh.Rows[0].Keys()
		for c, h := range header {
			cell, err := excelize.CoordinatesToCellName(c+1, 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sh.Name, cell, h); err != nil {
				return nil, err
			}
		}
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := f.SetCellStyle(sh.Name, "A1", last, headerStyle); err != nil {
			return nil, err
		}

		for r, row := range sh.Rows {
			for c, key := range header {
				cell, err := excelize.CoordinatesToCellName(c+1, r+2)
				if err != nil {
					return nil, err
				}
				if err := f.SetCellValue(sh.Name, cell, excelCell(row.Get(key))); err != nil {
					return nil, err
				}
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fitText(pdf *fpdf.Fpdf, text string, width float64) string {
	const ellipsis = "..."
	if pdf.GetStringWidth(text) <= width-2 {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+ellipsis) > width-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + ellipsis
}

func writePDF(title string, sheets []Sheet, now time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreationDate(now)
	pdf.SetFillColor(230, 230, 230)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, "Generated "+now.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	for _, sh := range sheets {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, tr(sh.Title), "", 1, "L", false, 0, "")
		if len(sh.Rows) == 0 {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 6, "No records.", "", 1, "L", false, 0, "")
			pdf.Ln(3)
			continue
		}

		header := sh.Rows[0].Keys()
		colWidth := usable / float64(len(header))

		pdf.SetFont("Helvetica", "B", 7)
		for _, h := range header {
			pdf.CellFormat(colWidth, 7, fitText(pdf, tr(h), colWidth), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 7)
		for _, row := range sh.Rows {
			for _, key := range header {
				pdf.CellFormat(colWidth, 6, fitText(pdf, tr(formatCell(row.Get(key))), colWidth), "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportSheets serializes sheets in the given format. CSV carries only the
// first sheet. When the first sheet is empty nothing is produced and
// (nil, nil) is returned.
func ExportSheets(format ExportFormat, baseName, title string, sheets []Sheet, now time.Time) (*Payload, error) {
	if len(sheets) == 0 || len(sheets[0].Rows) == 0 {
		return nil, nil
	}

	var (
		body []byte
		err  error
	)
	switch format {
	case ExportCSV:
		var buf bytes.Buffer
		err = WriteCSV(&buf, sheets[0].Rows)
		body = buf.Bytes()
	case ExportExcel:
		body, err = writeExcel(sheets)
	case ExportPDF:
		body, err = writePDF(title, sheets, now)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExportFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}

	return &Payload{
		Filename:    fmt.Sprintf("%s-%s.%s", baseName, now.Format("20060102"), format.extension()),
		ContentType: format.contentType(),
		Body:        body,
	}, nil
}

// GrantRows flattens grants with stats into export rows.
func GrantRows(grants []GrantWithStats) []Row {
	rows := make([]Row, 0, len(grants))
	for _, g := range grants {
		rows = append(rows, Row{
			{"grant_id", g.GrantID},
			{"name", g.Name},
			{"donor", g.DonorName},
			{"status", string(g.Status)},
			{"region", g.Region},
			{"program_area", g.ProgramArea},
			{"amount", g.Amount},
			{"currency", g.Currency},
			{"compliance_rate", g.ComplianceRate},
			{"disbursement_rate", g.DisbursementRate},
			{"reporting_status", g.ReportingStatus},
			{"start_date", g.StartDate},
			{"end_date", g.EndDate},
		})
	}
	return rows
}

func complianceRows(items []ComplianceItem) []Row {
	rows := make([]Row, 0, len(items))
	for _, c := range items {
		rows = append(rows, Row{
			{"compliance_id", c.ComplianceID},
			{"requirement", c.Requirement},
			{"due_date", c.DueDate},
			{"status", string(c.Status)},
			{"urgency", urgencyLabel(c.Urgency)},
			{"evidence", c.EvidencePath},
		})
	}
	return rows
}

func disbursementRows(items []DisbursementItem) []Row {
	rows := make([]Row, 0, len(items))
	for _, d := range items {
		rows = append(rows, Row{
			{"disbursement_id", d.DisbursementID},
			{"milestone", d.Milestone},
			{"amount", d.Amount},
			{"currency", d.Currency},
			{"due_date", d.DueDate},
			{"disbursed_on", d.DisbursedOn},
			{"status", string(d.Status)},
			{"urgency", urgencyLabel(d.Urgency)},
		})
	}
	return rows
}

func reportRows(items []ReportItem) []Row {
	rows := make([]Row, 0, len(items))
	for _, r := range items {
		rows = append(rows, Row{
			{"report_id", r.ReportID},
			{"report_type", r.ReportType},
			{"due_date", r.DueDate},
			{"submitted", r.Submitted},
			{"status", string(r.Status)},
			{"submitted_date", r.SubmittedDate},
			{"urgency", urgencyLabel(r.Urgency)},
		})
	}
	return rows
}

func urgencyLabel(u *Urgency) string {
	if u == nil {
		return ""
	}
	return string(u.Tier)
}

// ExportGrants serializes a filtered grant listing.
func ExportGrants(format ExportFormat, grants []GrantWithStats, now time.Time) (*Payload, error) {
	return ExportSheets(format, "grants", "Grants Portfolio", []Sheet{
		{Name: "Grants", Title: "Grants", Rows: GrantRows(grants)},
	}, now)
}

// ExportGrantDetail serializes one grant with its compliance,
// disbursement and report records.
func ExportGrantDetail(format ExportFormat, detail *GrantDetail, now time.Time) (*Payload, error) {
	if detail == nil {
		return nil, nil
	}
	sheets := []Sheet{
		{Name: "Grant", Title: "Grant", Rows: GrantRows([]GrantWithStats{detail.GrantWithStats})},
		{Name: "Compliance", Title: "Compliance Requirements", Rows: complianceRows(detail.Compliance)},
		{Name: "Disbursements", Title: "Disbursements", Rows: disbursementRows(detail.Disbursements)},
		{Name: "Reports", Title: "Reports", Rows: reportRows(detail.Reports)},
	}
	return ExportSheets(format, fmt.Sprintf("grant-%d", detail.GrantID), detail.Name, sheets, now)
}
