// Package export renders activity rosters as spreadsheets.
package export

import (
	"fmt"
	"reflect"
	"time"

	"github.com/Shivanand-hulikatti/activity-signup/internal/model"
	"github.com/xuri/excelize/v2"
)

const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RosterSheet is the sheet name used by Roster.
const RosterSheet = "Roster"

type rosterRow struct {
	Position     int    `excel:"#"`
	Participant  string `excel:"Participant"`
	Date         string `excel:"Date"`
	Time         string `excel:"Time"`
	RegisteredAt string `excel:"Registered at"`
}

// Roster builds a workbook listing regs in registration order.
func Roster(regs []model.Registration) (*excelize.File, error) {
	rows := make([]rosterRow, 0, len(regs))
	for i, r := range regs {
		rows = append(rows, rosterRow{
			Position:     i + 1,
			Participant:  r.ParticipantIdentifier,
			Date:         r.Date,
			Time:         r.Time,
			RegisteredAt: r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	f := excelize.NewFile()
	if err := WriteSheet(f, RosterSheet, rows); err != nil {
		f.Close()
		return nil, err
	}
	idx, err := f.GetSheetIndex(RosterSheet)
	if err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// WriteSheet writes a slice of structs to sheet: one header row taken from
// `excel` field tags (field name when absent, "-" to skip), then one row
// per element. The header is written even when data is empty.
func WriteSheet(f *excelize.File, sheet string, data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		return fmt.Errorf("data %T is not a slice", data)
	}

	elemType := v.Type().Elem()
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() != reflect.Struct {
		return fmt.Errorf("data %T is not a slice of structs", data)
	}

	if sheet == "" {
		sheet = "Sheet1"
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	type fieldInfo struct {
		index  []int
		header string
	}
	var fields []fieldInfo

	var collect func(t reflect.Type, parent []int)
	collect = func(t reflect.Type, parent []int) {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous {
				continue
			}
			idx := append(append([]int(nil), parent...), i)
			if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
				collect(sf.Type, idx)
				continue
			}
			tag := sf.Tag.Get("excel")
			if tag == "-" {
				continue
			}
			if tag == "" {
				tag = sf.Name
			}
			fields = append(fields, fieldInfo{index: idx, header: tag})
		}
	}
	collect(elemType, nil)

	for i, fi := range fields {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, fi.header); err != nil {
			return err
		}
	}

	out := 2
	for row := 0; row < v.Len(); row++ {
		elem := v.Index(row)
		if elem.Kind() == reflect.Ptr {
			if elem.IsNil() {
				continue
			}
			elem = elem.Elem()
		}

		for col, fi := range fields {
			fv := elem.FieldByIndex(fi.index)
			var value any
			if fv.Kind() == reflect.Ptr {
				if fv.IsNil() {
					value = ""
				} else {
					value = fv.Elem().Interface()
				}
			} else {
				value = fv.Interface()
			}

			cell, err := excelize.CoordinatesToCellName(col+1, out)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
		out++
	}
	return nil
}
