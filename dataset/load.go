package dataset

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// MissingTokens are cell values read as missing.
var MissingTokens = []string{"", "NA", "NaN", "nan", "N/A", "n/a", "null", "NULL", "None"}

// LoadOptions controls how a file is read.
type LoadOptions struct {
	// Sheet selects the worksheet of an Excel workbook. Empty means the first sheet.
	Sheet string
}

// Load reads a CSV (.csv) or Excel (.xlsx, .xls) file into a Dataset.
// Columns whose non-missing cells all parse as numbers become numeric;
// everything else is categorical.
func Load(path string, opts ...LoadOptions) (*Dataset, error) {
	var opt LoadOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	logger := log.GetLoggerWithName("dataset")

	if _, err := os.Stat(path); err != nil {
		return nil, errors.NewInputError("Load", path, "file not found", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		records [][]string
		err     error
	)
	switch ext {
	case ".csv":
		return loadCSV(path, logger)
	case ".xlsx", ".xlsm":
		records, err = readXLSX(path, opt.Sheet)
	case ".xls":
		records, err = readXLS(path, opt.Sheet)
	default:
		return nil, errors.NewInputError("Load", path, "unsupported extension "+ext+" (use .csv, .xlsx or .xls)", errors.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	ds, err := FromRecords(records)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	logger.Info("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.FormatKey, strings.TrimPrefix(ext, "."),
		log.SamplesKey, ds.Nrow(),
		log.FeaturesKey, ds.Ncol(),
	)
	return ds, nil
}

func loadCSV(path string, logger log.Logger) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInputError("Load", path, "cannot open file", err)
	}
	// UTF-8 BOM written by spreadsheet tools
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	df := dataframe.ReadCSV(bytes.NewReader(raw),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(MissingTokens),
		dataframe.WithLazyQuotes(true),
	)
	if df.Err != nil {
		return nil, errors.NewInputError("Load", path, "malformed CSV", df.Err)
	}

	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		cols = append(cols, inferColumn(name, df.Col(name)))
	}
	ds, err := New(cols...)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	logger.Info("Dataset loaded",
		log.OperationKey, log.OperationLoad,
		log.PathKey, path,
		log.FormatKey, "csv",
		log.SamplesKey, ds.Nrow(),
		log.FeaturesKey, ds.Ncol(),
	)
	return ds, nil
}

// FromRecords builds a Dataset from a header row followed by data rows.
// Short rows are padded with missing cells.
func FromRecords(records [][]string) (*Dataset, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, errors.NewValueError("FromRecords", "no header row")
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	padded := make([][]string, 0, len(records))
	padded = append(padded, header)
	for _, row := range records[1:] {
		if isBlankRow(row) {
			continue
		}
		r := make([]string, len(header))
		copy(r, row)
		padded = append(padded, r)
	}
	if len(padded) == 1 {
		cols := make([]series.Series, len(header))
		for i, h := range header {
			cols[i] = series.New([]string{}, series.String, h)
		}
		return New(cols...)
	}

	df := dataframe.LoadRecords(padded,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(MissingTokens),
	)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "FromRecords")
	}
	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		cols = append(cols, inferColumn(name, df.Col(name)))
	}
	return New(cols...)
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// inferColumn converts a string column into a numeric one when every
// non-missing cell parses as a number. An all-missing column is numeric.
func inferColumn(name string, s series.Series) series.Series {
	recs := s.Records()
	values := make([]float64, len(recs))
	strs := make([]string, len(recs))
	numeric := true
	for i, r := range recs {
		r = strings.TrimSpace(r)
		if s.Elem(i).IsNA() || isMissingToken(r) {
			values[i] = math.NaN()
			strs[i] = ""
			continue
		}
		strs[i] = r
		if !numeric {
			continue
		}
		f, err := strconv.ParseFloat(r, 64)
		if err != nil {
			numeric = false
			continue
		}
		values[i] = f
	}
	if numeric {
		return FloatColumn(name, values)
	}
	return StringColumn(name, strs)
}

func isMissingToken(v string) bool {
	for _, tok := range MissingTokens {
		if v == tok {
			return true
		}
	}
	return false
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewInputError("Load", path, "cannot open workbook", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.NewInputError("Load", path, "workbook has no sheets", errors.ErrEmptyData)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.NewInputError("Load", path, "cannot read sheet "+sheet, err)
	}
	if len(rows) == 0 {
		return nil, errors.NewInputError("Load", path, "sheet "+sheet+" is empty", errors.ErrEmptyData)
	}
	return rows, nil
}

func readXLS(path, sheet string) ([][]string, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, errors.NewInputError("Load", path, "cannot open workbook", err)
	}

	var ws *xls.WorkSheet
	for i := 0; i < wb.NumSheets(); i++ {
		s := wb.GetSheet(i)
		if s == nil {
			continue
		}
		if sheet == "" || s.Name == sheet {
			ws = s
			break
		}
	}
	if ws == nil {
		return nil, errors.NewInputError("Load", path, "sheet not found", errors.ErrEmptyData)
	}

	var rows [][]string
	for i := 0; i <= int(ws.MaxRow); i++ {
		row := ws.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, errors.NewInputError("Load", path, "sheet is empty", errors.ErrEmptyData)
	}
	return rows, nil
}
