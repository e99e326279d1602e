package export

import (
	"fmt"
	"os"
	"path/filepath"

	"roombook/internal/models"
	"roombook/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter пишет расписание в Excel файл: комнаты по строкам,
// получасовые слоты по колонкам.
type Exporter struct {
	path   string
	logger *zerolog.Logger
}

func NewExporter(path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{path: path, logger: logger}
}

// ExportDay renders one schedule grid into an xlsx workbook and returns the
// saved file path. Multi-slot bookings become merged cells, mirroring the
// on-screen grid.
func (e *Exporter) ExportDay(grid *schedule.Grid) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeGridSheet(f, "Расписание", grid); err != nil {
		return "", err
	}
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s.xlsx", grid.Date)
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Schedule exported to Excel")
	return filePath, nil
}

// ExportWeek writes one sheet per day. Grids are expected in week order; the
// file is named after the first day.
func (e *Exporter) ExportWeek(grids []*schedule.Grid) (string, error) {
	if len(grids) == 0 {
		return "", fmt.Errorf("no grids to export")
	}

	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, grid := range grids {
		if err := e.writeGridSheet(f, grid.Date, grid); err != nil {
			return "", err
		}
	}
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_week_%s.xlsx", grids[0].Date)
	filePath := filepath.Join(e.path, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("days", len(grids)).Msg("Week schedule exported to Excel")
	return filePath, nil
}

func (e *Exporter) writeGridSheet(f *excelize.File, sheetName string, grid *schedule.Grid) error {
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Расписание переговорных на %s", grid.Date))

	e.writeSlotHeaders(f, sheetName, grid.Slots)
	e.writeRows(f, sheetName, grid)

	// Ширина колонок: названия комнат шире, слоты узкие
	_ = f.SetColWidth(sheetName, "A", "A", 25)
	lastCol, _ := excelize.ColumnNumberToName(len(grid.Slots) + 1)
	_ = f.SetColWidth(sheetName, "B", lastCol, 12)

	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	return nil
}

func (e *Exporter) writeSlotHeaders(f *excelize.File, sheetName string, slots []string) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, slot := range slots {
		cell, _ := excelize.CoordinatesToCellName(i+2, 2)
		_ = f.SetCellValue(sheetName, cell, slot)
		_ = f.SetCellStyle(sheetName, cell, cell, style)
	}
}

func (e *Exporter) writeRows(f *excelize.File, sheetName string, grid *schedule.Grid) {
	roomStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	for rowIdx, row := range grid.Rows {
		excelRow := rowIdx + 3

		roomCell, _ := excelize.CoordinatesToCellName(1, excelRow)
		_ = f.SetCellValue(sheetName, roomCell, row.Room.Name)
		_ = f.SetCellStyle(sheetName, roomCell, roomCell, roomStyle)

		for colIdx, cell := range row.Cells {
			if cell.Booking == nil || cell.Covered {
				continue
			}

			startCell, _ := excelize.CoordinatesToCellName(colIdx+2, excelRow)
			endCell, _ := excelize.CoordinatesToCellName(colIdx+1+cell.Span, excelRow)

			value := fmt.Sprintf("%s\n%s - %s\n%s",
				cell.Booking.Title, cell.Booking.StartTime, cell.Booking.EndTime, cell.Booking.BookerName)
			_ = f.SetCellValue(sheetName, startCell, value)

			if cell.Span > 1 {
				_ = f.MergeCell(sheetName, startCell, endCell)
			}

			styleID, err := e.bookingStyle(f, cell.Booking)
			if err == nil {
				_ = f.SetCellStyle(sheetName, startCell, endCell, styleID)
			}
		}
	}
}

func (e *Exporter) bookingStyle(f *excelize.File, booking *models.Booking) (int, error) {
	color := "#FFEB9C" // неподтвержденные - желтый
	if booking.Status == models.StatusApproved {
		color = "#C6EFCE" // подтвержденные - зеленый
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}
