package export

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"roombook/internal/models"
	"roombook/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExporter_ExportDay(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	exporter := NewExporter(dir, &logger)

	rooms := []models.Room{
		{ID: 1, Name: "Blue Room", IsActive: true},
		{ID: 2, Name: "Red Room", IsActive: true},
	}
	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	bookings := []models.Booking{
		{
			ID: 1, RoomID: 1, Date: date,
			StartTime: "09:00", EndTime: "10:30",
			Status: models.StatusApproved, Title: "Planning", BookerName: "Alice",
		},
		{
			ID: 2, RoomID: 2, Date: date,
			StartTime: "14:00", EndTime: "14:30",
			Status: models.StatusPending, Title: "1:1", BookerName: "Bob",
		},
	}

	grid := schedule.BuildGrid("2024-06-10", rooms, bookings)
	path, err := exporter.ExportDay(&grid)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "schedule_2024-06-10.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Расписание", "A1")
	require.NoError(t, err)
	assert.Contains(t, title, "2024-06-10")

	// Первый слот оси - 08:00 в колонке B
	header, err := f.GetCellValue("Расписание", "B2")
	require.NoError(t, err)
	assert.Equal(t, "08:00", header)

	roomName, err := f.GetCellValue("Расписание", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Blue Room", roomName)

	// 09:00 - третий слот, колонка D; бронь на полтора часа занимает D3:F3
	booked, err := f.GetCellValue("Расписание", "D3")
	require.NoError(t, err)
	assert.Contains(t, booked, "Planning")

	merged, err := f.GetMergeCells("Расписание")
	require.NoError(t, err)

	var found bool
	for _, m := range merged {
		if m.GetStartAxis() == "D3" && m.GetEndAxis() == "F3" {
			found = true
		}
	}
	assert.True(t, found, "expected merged cell D3:F3 for the 90 minute booking")
}

func TestExporter_EmptyGrid(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	exporter := NewExporter(dir, &logger)

	grid := schedule.BuildGrid("2024-06-11", nil, nil)
	path, err := exporter.ExportDay(&grid)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestExporter_ExportWeek(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	exporter := NewExporter(dir, &logger)

	rooms := []models.Room{{ID: 1, Name: "Blue Room", IsActive: true}}
	var grids []*schedule.Grid
	for day := 9; day <= 15; day++ {
		grid := schedule.BuildGrid(fmt.Sprintf("2024-06-%02d", day), rooms, nil)
		grids = append(grids, &grid)
	}

	path, err := exporter.ExportWeek(grids)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "schedule_week_2024-06-09.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Лист на каждый день недели
	assert.Len(t, f.GetSheetList(), 7)
	assert.Contains(t, f.GetSheetList(), "2024-06-09")
	assert.Contains(t, f.GetSheetList(), "2024-06-15")
}

func TestExporter_ExportWeek_Empty(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	exporter := NewExporter(dir, &logger)

	_, err := exporter.ExportWeek(nil)
	assert.Error(t, err)
}
