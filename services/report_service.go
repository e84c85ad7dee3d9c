package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ReportFormat представляет формат экспорта отчета
type ReportFormat string

const (
	ReportFormatExcel ReportFormat = "xlsx"
	ReportFormatPDF   ReportFormat = "pdf"
)

// ParseReportFormat разбирает формат из запроса; пустое значение - Excel
func ParseReportFormat(raw string) (ReportFormat, error) {
	switch strings.ToLower(raw) {
	case "", "xlsx", "excel":
		return ReportFormatExcel, nil
	case "pdf":
		return ReportFormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, raw)
	}
}

// ReportData представляет табличные данные отчета
type ReportData struct {
	Title   string
	Headers []string
	Rows    [][]interface{}
	Totals  []interface{}
}

// ReportFile - готовый файл отчета
type ReportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReportService выгружает сводку статистики по локациям в Excel и PDF
type ReportService struct {
	stats    *StatsService
	fontPath string
}

// NewReportService создает новый экземпляр ReportService
func NewReportService(stats *StatsService, fontPath string) *ReportService {
	return &ReportService{stats: stats, fontPath: fontPath}
}

// Export строит сводку за окно и кодирует ее в нужный формат
func (rs *ReportService) Export(ctx context.Context, format ReportFormat, window Window, scope Scope) (*ReportFile, error) {
	summary, err := rs.stats.Summary(ctx, window, scope)
	if err != nil {
		return nil, err
	}
	data := BuildReportData(summary, rs.stats.Location())

	fileName := fmt.Sprintf("location_stats_%s_%s", window.Key(), summary.GeneratedAt.In(rs.stats.Location()).Format("20060102_150405"))

	switch format {
	case ReportFormatExcel:
		content, err := rs.generateExcelReport(data)
		if err != nil {
			return nil, err
		}
		return &ReportFile{
			Name:        fileName + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        content,
		}, nil
	case ReportFormatPDF:
		content, err := rs.generatePDFReport(data)
		if err != nil {
			return nil, err
		}
		return &ReportFile{Name: fileName + ".pdf", ContentType: "application/pdf", Data: content}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// BuildReportData превращает сводку в таблицу отчета
func BuildReportData(summary *Summary, loc *time.Location) *ReportData {
	data := &ReportData{
		Title: fmt.Sprintf("Статистика по локациям %s (на %s)",
			summary.Window.Title(), summary.GeneratedAt.In(loc).Format("02.01.2006 15:04")),
		Headers: []string{"Локация", "Сканирования", "Доля сканирований, %", "Клики", "Доля кликов, %", "Конверсия, %"},
	}
	for _, row := range summary.Rows {
		data.Rows = append(data.Rows, []interface{}{
			row.Name,
			row.Scans,
			round2(row.ScanShare),
			row.Clicks,
			round2(row.ClickShare),
			round2(row.Conversion),
		})
	}
	data.Totals = []interface{}{"Итого", summary.TotalScans, 100.0, summary.TotalClicks, 100.0, round2(summary.Conversion)}
	if summary.TotalScans == 0 {
		data.Totals[2] = 0.0
	}
	if summary.TotalClicks == 0 {
		data.Totals[4] = 0.0
	}
	return data
}

// generateExcelReport генерирует Excel файл отчета
func (rs *ReportService) generateExcelReport(data *ReportData) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			zap.L().Warn("failed to close excel file", zap.Error(err))
		}
	}()

	sheetName := "Статистика"
	f.SetSheetName("Sheet1", sheetName)

	f.SetCellValue(sheetName, "A1", data.Title)

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	// Записываем заголовки
	for i, header := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		f.SetCellValue(sheetName, cell, header)
	}
	firstHeader, _ := excelize.CoordinatesToCellName(1, 3)
	lastHeader, _ := excelize.CoordinatesToCellName(len(data.Headers), 3)
	f.SetCellStyle(sheetName, firstHeader, lastHeader, headerStyle)

	// Записываем данные
	for rowIdx, row := range data.Rows {
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+4)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	// Итоговая строка
	totalsRow := len(data.Rows) + 4
	for colIdx, value := range data.Totals {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, totalsRow)
		f.SetCellValue(sheetName, cell, value)
	}
	firstTotal, _ := excelize.CoordinatesToCellName(1, totalsRow)
	lastTotal, _ := excelize.CoordinatesToCellName(len(data.Totals), totalsRow)
	f.SetCellStyle(sheetName, firstTotal, lastTotal, headerStyle)

	f.SetColWidth(sheetName, "A", "A", 36)
	f.SetColWidth(sheetName, "B", "F", 20)

	// Добавляем автофильтр по таблице без итогов
	if len(data.Rows) > 0 {
		endCell, _ := excelize.CoordinatesToCellName(len(data.Headers), len(data.Rows)+3)
		f.AutoFilter(sheetName, firstHeader+":"+endCell, []excelize.AutoFilterOptions{})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// generatePDFReport генерирует PDF файл отчета
func (rs *ReportService) generatePDFReport(data *ReportData) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")

	family := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if rs.fontPath != "" {
		// UTF-8 шрифт выводит кириллицу без перекодирования
		pdf.AddUTF8Font("Report", "", rs.fontPath)
		pdf.AddUTF8Font("Report", "B", rs.fontPath)
		family = "Report"
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 14)
	pdf.CellFormat(0, 10, tr(data.Title), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{90, 32, 40, 28, 36, 32}

	pdf.SetFont(family, "B", 9)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, row := range data.Rows {
		writePDFRow(pdf, tr, widths, row)
	}

	pdf.SetFont(family, "B", 9)
	writePDFRow(pdf, tr, widths, data.Totals)

	if pdf.Err() {
		return nil, fmt.Errorf("ошибка генерации PDF: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePDFRow(pdf *gofpdf.Fpdf, tr func(string) string, widths []float64, row []interface{}) {
	for i, value := range row {
		align := "R"
		if i == 0 {
			align = "L"
		}
		text := fmt.Sprintf("%v", value)
		if f, ok := value.(float64); ok {
			text = fmt.Sprintf("%.2f", f)
		}
		pdf.CellFormat(widths[i], 7, tr(text), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
