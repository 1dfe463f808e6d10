// Package workbook imports two-week demand history from a spreadsheet and
// exports staffing plans back to one. The exchange format is the planning
// team's existing Excel template.
package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mawsool/insights-backend/internal/biztime"
	"github.com/mawsool/insights-backend/internal/forecast"
)

// Sheet names the import looks for. Unnamed workbooks fall back to sheet
// position: first sheet is calls, second is handle time.
const (
	callsSheet = "Calls"
	ahtSheet   = "AHT"
)

// ErrMissingSheet is returned when an uploaded workbook does not carry both
// demand sheets. Nothing is parsed in that case.
type ErrMissingSheet struct {
	Sheet string
}

func (e ErrMissingSheet) Error() string {
	return fmt.Sprintf("workbook: missing sheet %q", e.Sheet)
}

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Import parses an uploaded workbook into the demand table. Each sheet is a
// grid with the hour of day in column 0 and fourteen daily value columns:
// columns 1-7 are week one Sunday through Saturday, columns 8-14 week two.
// The two same-weekday columns are averaged. Rows for hours outside the
// operating shift are ignored; operating hours missing from the sheet read
// as zero demand.
func Import(r io.Reader) ([]forecast.DemandCell, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("workbook: open: %w", err)
	}
	defer f.Close()

	callsRows, err := sheetRows(f, callsSheet, 0)
	if err != nil {
		return nil, err
	}
	ahtRows, err := sheetRows(f, ahtSheet, 1)
	if err != nil {
		return nil, err
	}

	calls := indexByHour(callsRows)
	aht := indexByHour(ahtRows)

	cells := make([]forecast.DemandCell, 0, 7*len(biztime.OperatingHours))
	for dow := 0; dow < 7; dow++ {
		for _, hour := range biztime.OperatingHours {
			cells = append(cells, forecast.DemandCell{
				Hour:      hour,
				DayOfWeek: dow,
				AvgCalls:  weekdayAverage(calls[hour], dow),
				AvgAHT:    weekdayAverage(aht[hour], dow),
			})
		}
	}
	return cells, nil
}

// sheetRows resolves a sheet by name, falling back to position for
// workbooks that kept default sheet names.
func sheetRows(f *excelize.File, name string, index int) ([][]string, error) {
	if rows, err := f.GetRows(name); err == nil {
		return rows, nil
	}
	list := f.GetSheetList()
	if index < len(list) {
		rows, err := f.GetRows(list[index])
		if err == nil {
			return rows, nil
		}
	}
	return nil, ErrMissingSheet{Sheet: name}
}

// indexByHour maps each grid row to its hour-of-day label in column 0.
// Unparsable rows (headers, blanks) are skipped.
func indexByHour(rows [][]string) map[int][]string {
	byHour := make(map[int][]string, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		hour, ok := parseHour(row[0])
		if !ok {
			continue
		}
		byHour[hour] = row
	}
	return byHour
}

// parseHour accepts "9", "09", "9:00" and "09:30" style labels.
func parseHour(cell string) (int, bool) {
	s := strings.TrimSpace(cell)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	hour, err := strconv.Atoi(s)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// weekdayAverage averages the two same-weekday columns of a row. Missing or
// non-numeric cells read as zero.
func weekdayAverage(row []string, dow int) float64 {
	w1 := cellValue(row, dow+1)
	w2 := cellValue(row, dow+8)
	return (w1 + w2) / 2
}

func cellValue(row []string, col int) float64 {
	if col >= len(row) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0
	}
	return v
}

// Export sheet titles, in workbook order.
const (
	baselineSheet  = "Baseline Plan"
	scheduledSheet = "Capped Plan"
	capacitySheet  = "Call Capacity"
)

// Export writes the three staffing views of a planner snapshot as a
// workbook: baseline plan, capped plan and call capacity, one row per
// operating hour, one column per weekday. The capacity sheet closes with a
// DAY TOTAL row.
func Export(w io.Writer, intervals []forecast.Interval) error {
	byCell := make(map[[2]int]forecast.Interval, len(intervals))
	for _, iv := range intervals {
		byCell[[2]int{iv.DayOfWeek, iv.Hour}] = iv
	}

	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name   string
		value  func(forecast.Interval) int
		totals bool
	}{
		{baselineSheet, func(iv forecast.Interval) int { return iv.RequiredAgents }, false},
		{scheduledSheet, func(iv forecast.Interval) int { return deref(iv.ScheduledAgents) }, false},
		{capacitySheet, func(iv forecast.Interval) int { return deref(iv.Capacity) }, true},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return fmt.Errorf("workbook: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return fmt.Errorf("workbook: add sheet %s: %w", sheet.name, err)
		}
		if err := writeSheet(f, sheet.name, byCell, sheet.value, sheet.totals); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("workbook: write: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, byCell map[[2]int]forecast.Interval, value func(forecast.Interval) int, totals bool) error {
	header := append([]interface{}{"Interval"}, anySlice(dayNames[:])...)
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("workbook: %s header: %w", name, err)
	}

	dayTotals := make([]int, 7)
	for i, hour := range biztime.OperatingHours {
		row := make([]interface{}, 0, 8)
		row = append(row, fmt.Sprintf("%02d:00", hour))
		for dow := 0; dow < 7; dow++ {
			v := value(byCell[[2]int{dow, hour}])
			dayTotals[dow] += v
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("workbook: %s row %d: %w", name, i, err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("workbook: %s row %d: %w", name, i, err)
		}
	}

	if totals {
		row := make([]interface{}, 0, 8)
		row = append(row, "DAY TOTAL")
		for dow := 0; dow < 7; dow++ {
			row = append(row, dayTotals[dow])
		}
		cell, err := excelize.CoordinatesToCellName(1, len(biztime.OperatingHours)+2)
		if err != nil {
			return fmt.Errorf("workbook: %s totals: %w", name, err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("workbook: %s totals: %w", name, err)
		}
	}
	return nil
}

// ExportDemand writes a demand table back out in the import template shape:
// a Calls sheet and an AHT sheet, hour labels in column 0 and each weekday
// value repeated across both week columns. Re-importing such a file yields
// the same table.
func ExportDemand(w io.Writer, cells []forecast.DemandCell) error {
	byCell := make(map[[2]int]forecast.DemandCell, len(cells))
	for _, c := range cells {
		byCell[[2]int{c.DayOfWeek, c.Hour}] = c
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), callsSheet); err != nil {
		return fmt.Errorf("workbook: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ahtSheet); err != nil {
		return fmt.Errorf("workbook: add sheet %s: %w", ahtSheet, err)
	}

	sheets := []struct {
		name  string
		value func(forecast.DemandCell) float64
	}{
		{callsSheet, func(c forecast.DemandCell) float64 { return c.AvgCalls }},
		{ahtSheet, func(c forecast.DemandCell) float64 { return c.AvgAHT }},
	}
	for _, sheet := range sheets {
		for i, hour := range biztime.OperatingHours {
			row := make([]interface{}, 0, 15)
			row = append(row, strconv.Itoa(hour))
			for week := 0; week < 2; week++ {
				for dow := 0; dow < 7; dow++ {
					row = append(row, sheet.value(byCell[[2]int{dow, hour}]))
				}
			}
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return fmt.Errorf("workbook: %s row %d: %w", sheet.name, i, err)
			}
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				return fmt.Errorf("workbook: %s row %d: %w", sheet.name, i, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("workbook: write: %w", err)
	}
	return nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func anySlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
