package importer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"fleet-records-backend/internal/model"
)

// Spreadsheets in the wild carry dates as strings in several layouts, or as
// raw Excel serial numbers when the cell lost its date format.
var cellDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02.01.2006",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
}

func parseCellDate(value string) (model.Date, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return model.Date{}, fmt.Errorf("empty date cell")
	}

	for _, layout := range cellDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return model.DateOf(t), nil
		}
	}

	return model.Date{}, fmt.Errorf("unrecognized date value %q", s)
}

func parseCellUint(value string) (uint, error) {
	s := strings.TrimSpace(value)
	// Numeric cells sometimes come back as "2100.0".
	s = strings.TrimSuffix(s, ".0")
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", value)
	}
	return uint(n), nil
}
