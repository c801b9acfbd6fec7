// Package plotting は回帰分析の図を gonum/plot で描き、画像として保存します。
//
// 図はすべて Figure で、複数のパネルを格子状に並べます。
// 保存時の解像度は DPI で指定し、既定は印刷向けの 300 です。
package plotting

import (
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/YuminosukeSato/soilph/internal/fsutil"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// DefaultDPI は保存時の既定解像度
const DefaultDPI = 300

// GridColumns は分布図と効果図の1行あたりのパネル数
const GridColumns = 3

// Figure はパネルを格子状に並べた1枚の図。nil のパネルは空欄になる。
type Figure struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	panels [][]*plot.Plot

	// sidebar はパネル格子の右側に置く凡例 (カラーバーなど)
	sidebar      *plot.Plot
	sidebarWidth vg.Length
}

func newFigure(title string, rows, cols int, width, height vg.Length) *Figure {
	panels := make([][]*plot.Plot, rows)
	for i := range panels {
		panels[i] = make([]*plot.Plot, cols)
	}
	return &Figure{Title: title, Width: width, Height: height, panels: panels}
}

// Dims はパネルの行数と列数
func (f *Figure) Dims() (rows, cols int) {
	if len(f.panels) == 0 {
		return 0, 0
	}
	return len(f.panels), len(f.panels[0])
}

// Panel は (row, col) のパネル。空欄なら nil。
func (f *Figure) Panel(row, col int) *plot.Plot {
	return f.panels[row][col]
}

func (f *Figure) set(i int, p *plot.Plot) {
	_, cols := f.Dims()
	f.panels[i/cols][i%cols] = p
}

// Draw は図全体をキャンバスに描く
func (f *Figure) Draw(dc draw.Canvas) {
	if f.Title != "" {
		sty := plot.New().Title.TextStyle
		sty.Font.Size = vg.Points(14)
		sty.XAlign = draw.XCenter
		sty.YAlign = draw.YTop
		pad := vg.Points(6)
		top := vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: dc.Max.Y - pad}
		dc.FillText(sty, top, f.Title)
		dc = draw.Crop(dc, 0, 0, 0, -(sty.Height(f.Title) + 2*pad))
	}

	if f.sidebar != nil {
		w := f.sidebarWidth
		f.sidebar.Draw(draw.Crop(dc, dc.Max.X-dc.Min.X-w, 0, 0, 0))
		dc = draw.Crop(dc, 0, -w, 0, 0)
	}

	rows, cols := f.Dims()
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(f.panels, tiles, dc)
	for i := range f.panels {
		for j, p := range f.panels[i] {
			if p != nil {
				p.Draw(canvases[i][j])
			}
		}
	}
}

// WriteTo は format (png, jpg, jpeg, tif, tiff) の画像を w に書く
func (f *Figure) WriteTo(w io.Writer, format string, dpi int) error {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	c := vgimg.NewWith(vgimg.UseWH(f.Width, f.Height), vgimg.UseDPI(dpi))
	f.Draw(draw.New(c))

	var wt io.WriterTo
	switch strings.ToLower(format) {
	case "png":
		wt = vgimg.PngCanvas{Canvas: c}
	case "jpg", "jpeg":
		wt = vgimg.JpegCanvas{Canvas: c}
	case "tif", "tiff":
		wt = vgimg.TiffCanvas{Canvas: c}
	default:
		return errors.NewValidationError("format", "unsupported image format", format)
	}
	_, err := wt.WriteTo(w)
	return err
}

// Save は拡張子で形式を決めて図を保存する。書き込みは一時ファイル経由。
func (f *Figure) Save(path string, dpi int) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "png", "jpg", "jpeg", "tif", "tiff":
	default:
		return errors.NewInputError("Figure.Save", path, "unsupported image extension ."+ext+" (use .png, .jpg or .tiff)", errors.ErrUnsupportedFormat)
	}
	if err := fsutil.AtomicWrite(path, func(w io.Writer) error { return f.WriteTo(w, ext, dpi) }); err != nil {
		return errors.Wrapf(err, "save figure %s", path)
	}
	log.GetLoggerWithName("plotting").Debug("Figure saved",
		log.OperationKey, log.OperationPlot,
		log.PathKey, path,
		log.FormatKey, ext,
		"dpi", dpi,
	)
	return nil
}
