package report

import (
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/soilph/internal/fsutil"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// ExportFormat は表の書き出し形式
type ExportFormat int

const (
	// CSV は表ごとの .csv
	CSV ExportFormat = iota
	// Excel は表ごとの .xlsx
	Excel
)

// Ext は拡張子（ドットなし）
func (f ExportFormat) Ext() string {
	if f == Excel {
		return "xlsx"
	}
	return "csv"
}

func (f ExportFormat) String() string {
	if f == Excel {
		return "excel"
	}
	return "csv"
}

// ParseExportFormat は設定値 csv / excel を解釈する
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(s) {
	case "csv", "":
		return CSV, nil
	case "excel", "xlsx":
		return Excel, nil
	}
	return CSV, errors.NewValidationError("export_format", "must be csv or excel", s)
}

// ExportTables は表ごとに {base}_{name}.{ext} を書き出し、書き出したパスを返す。
// basePath の拡張子は無視する。各ファイルは一時ファイル経由で置き換える。
func ExportTables(tables []NamedTable, basePath string, format ExportFormat) ([]string, error) {
	dir := filepath.Dir(basePath)
	base := strings.TrimSuffix(filepath.Base(basePath), filepath.Ext(basePath))
	logger := log.GetLoggerWithName("report")

	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		if t.Name == "" {
			return paths, errors.NewValueError("ExportTables", "table name is empty")
		}
		if t.Frame.Err != nil {
			return paths, errors.Wrapf(t.Frame.Err, "table %s", t.Name)
		}
		path := filepath.Join(dir, base+"_"+t.Name+"."+format.Ext())

		var err error
		switch format {
		case Excel:
			err = fsutil.AtomicWrite(path, func(w io.Writer) error { return writeXLSX(w, t) })
		default:
			err = fsutil.AtomicWrite(path, func(w io.Writer) error { return t.Frame.WriteCSV(w) })
		}
		if err != nil {
			return paths, errors.Wrapf(err, "export table %s", t.Name)
		}
		paths = append(paths, path)
		logger.Debug("Table exported",
			log.OperationKey, log.OperationExport,
			log.PathKey, path,
			log.FormatKey, format.Ext(),
			log.SamplesKey, t.Frame.Nrow(),
		)
	}
	return paths, nil
}

// writeXLSX は数値列を数値セルとして1シートに書く
func writeXLSX(w io.Writer, t NamedTable) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(t.Name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	names := t.Frame.Names()
	header := make([]interface{}, len(names))
	for j, n := range names {
		header[j] = n
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}

	for i := 0; i < t.Frame.Nrow(); i++ {
		row := make([]interface{}, len(names))
		for j := range names {
			e := t.Frame.Elem(i, j)
			switch e.Type() {
			case series.Float, series.Int:
				if v := e.Float(); e.IsNA() || math.IsNaN(v) || math.IsInf(v, 0) {
					row[j] = e.String()
				} else {
					row[j] = v
				}
			default:
				row[j] = e.String()
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// sheetName は Excel のシート名制約（31文字、一部記号不可）に合わせる
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
