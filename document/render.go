package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/go-pdf/fpdf"

	"github.com/YuminosukeSato/soilph/internal/fsutil"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// DefaultTitle は Options.Title が空のときの表題
const DefaultTitle = "Soil pH Regression Analysis"

// 寸法はすべてポイント (1/72 inch)
const (
	margin      = 54.0 // 0.75in
	bodySize    = 10.0
	bodyLeading = 14.0
	tableSize   = 8.0
	tableRow    = 14.0
	indent      = 21.6 // 0.3in
)

type rgb struct{ r, g, b int }

var (
	titleColor  = rgb{0x1f, 0x47, 0x88}
	headColors  = [...]rgb{{0x2c, 0x5a, 0xa0}, {0x3d, 0x6f, 0xb8}, {0x4a, 0x7b, 0xc3}}
	headerFill  = rgb{0xdc, 0xe6, 0xf2}
	footerColor = rgb{0x80, 0x80, 0x80}
)

// Field はメタデータページの1行
type Field struct {
	Label string
	Value string
}

// Options は PDF の表紙とメタデータ
type Options struct {
	Title    string
	Subtitle string
	Author   string
	Abstract string
	Keywords []string
	// Metadata は最終ページに載せる項目
	Metadata []Field
	// Generated は作成日時。ゼロ値なら現在時刻。
	Generated time.Time
}

// core フォント (cp1252) にない文字の置き換え
var latin = strings.NewReplacer(
	"β", "B",
	"χ", "chi",
	"≥", ">=",
	"≤", "<=",
	"→", "->",
	"✓", "OK",
)

// Render はブロック列を Letter 判の PDF として w に書く。
//
// 構成は表紙 (表題、副題、要旨、キーワード)、目次、本文、メタデータページの順。
// 本文ではレベル1の見出しの前で改ページする。目次のページ番号を確定させるため
// レイアウトは2回行う。
func Render(w io.Writer, blocks []Block, opts Options) error {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Generated.IsZero() {
		opts.Generated = time.Now()
	}
	first, err := layout(blocks, opts, nil)
	if err != nil {
		return err
	}
	final, err := layout(blocks, opts, first.pages)
	if err != nil {
		return err
	}
	if err := final.pdf.Output(w); err != nil {
		return errors.Wrap(err, "write pdf")
	}
	return nil
}

// WriteFile は Render の結果を path に原子的に書き出す
func WriteFile(path string, blocks []Block, opts Options) error {
	if err := fsutil.AtomicWrite(path, func(w io.Writer) error { return Render(w, blocks, opts) }); err != nil {
		return errors.Wrapf(err, "render %s", path)
	}
	log.GetLoggerWithName("document").Info("PDF written",
		log.OperationKey, log.OperationRenderPDF,
		log.PathKey, path,
		log.CountKey, len(blocks),
	)
	return nil
}

type renderer struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	opts  Options
	width float64
	limit float64

	// pages は見出しブロックの位置 → ページ番号
	pages map[int]int
	known map[int]int
	links map[int]int
	depth int
}

func layout(blocks []Block, opts Options, known map[int]int) (*renderer, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pageW, pageH := pdf.GetPageSize()
	r := &renderer{
		pdf:   pdf,
		tr:    pdf.UnicodeTranslatorFromDescriptor(""),
		opts:  opts,
		width: pageW - 2*margin,
		limit: pageH - margin,
		pages: make(map[int]int),
		known: known,
		links: make(map[int]int),
		depth: -1,
	}
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AliasNbPages("")
	pdf.SetTitle(opts.Title, true)
	pdf.SetSubject(opts.Subtitle, true)
	pdf.SetAuthor(opts.Author, true)
	pdf.SetKeywords(strings.Join(opts.Keywords, ", "), true)
	pdf.SetCreator("soilph", true)
	pdf.SetCreationDate(opts.Generated)
	pdf.SetFooterFunc(r.footer)

	r.titlePage()
	r.contents(blocks)
	if err := r.body(blocks); err != nil {
		return nil, err
	}
	r.metadata()
	if err := pdf.Error(); err != nil {
		return nil, errors.Wrap(err, "layout pdf")
	}
	return r, nil
}

func (r *renderer) text(s string) string { return r.tr(latin.Replace(s)) }

func (r *renderer) color(c rgb) { r.pdf.SetTextColor(c.r, c.g, c.b) }

func (r *renderer) footer() {
	if r.pdf.PageNo() == 1 {
		return
	}
	r.pdf.SetY(-36)
	r.pdf.SetFont("Helvetica", "I", 8)
	r.color(footerColor)
	r.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", r.pdf.PageNo()), "", 0, "C", false, 0, "")
}

// pageEmpty は現在のページにまだ何も書かれていないかを返す
func (r *renderer) pageEmpty() bool {
	return r.pdf.GetY() <= margin+1
}

func (r *renderer) ensure(h float64) {
	if r.pdf.GetY()+h > r.limit && !r.pageEmpty() {
		r.pdf.AddPage()
	}
}

func (r *renderer) titlePage() {
	pdf := r.pdf
	pdf.AddPage()
	pdf.Ln(indent)
	pdf.SetFont("Helvetica", "B", 18)
	r.color(titleColor)
	pdf.MultiCell(0, 22, r.text(strings.ToUpper(r.opts.Title)), "", "C", false)
	pdf.Ln(7)
	if r.opts.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 11)
		r.color(rgb{})
		pdf.MultiCell(0, 14, r.text(r.opts.Subtitle), "", "C", false)
	}
	if r.opts.Author != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		r.color(rgb{})
		pdf.MultiCell(0, 14, r.text(r.opts.Author), "", "C", false)
	}
	pdf.Ln(14)

	if r.opts.Abstract != "" {
		r.headingStyle(2)
		pdf.MultiCell(0, 18, "ABSTRACT", "", "L", false)
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", bodySize)
		r.color(rgb{})
		pdf.SetX(margin + indent)
		pdf.MultiCell(r.width-2*indent, 12, r.text(r.opts.Abstract), "", "J", false)
		pdf.Ln(14)
	}
	if len(r.opts.Keywords) > 0 {
		r.color(rgb{})
		pdf.SetFont("Helvetica", "B", bodySize)
		pdf.Write(bodyLeading, "Keywords: ")
		pdf.SetFont("Helvetica", "", bodySize)
		pdf.Write(bodyLeading, r.text(strings.Join(r.opts.Keywords, ", ")))
		pdf.Ln(bodyLeading)
	}
}

// contents はレベル1と2の見出しの目次。ページ番号は前回のレイアウトの結果を使う。
func (r *renderer) contents(blocks []Block) {
	pdf := r.pdf
	pdf.AddPage()
	r.headingStyle(2)
	pdf.MultiCell(0, 18, "TABLE OF CONTENTS", "", "L", false)
	pdf.Ln(8)

	for i, b := range blocks {
		if b.Kind != Heading || b.Level > 2 {
			continue
		}
		link := pdf.AddLink()
		r.links[i] = link
		page := ""
		if p, ok := r.known[i]; ok {
			page = fmt.Sprint(p)
		}
		left := float64(b.Level-1) * 14
		if b.Level == 1 {
			pdf.SetFont("Helvetica", "B", bodySize)
		} else {
			pdf.SetFont("Helvetica", "", bodySize)
		}
		r.color(rgb{})
		pdf.SetX(margin + left)
		pdf.CellFormat(r.width-left-40, 16, r.text(b.Text), "", 0, "L", false, link, "")
		pdf.CellFormat(40, 16, page, "", 1, "R", false, link, "")
	}
	pdf.AddPage()
}

func (r *renderer) headingStyle(level int) {
	switch level {
	case 1:
		r.pdf.SetFont("Helvetica", "B", 18)
		r.color(titleColor)
	case 2:
		r.pdf.SetFont("Helvetica", "B", 14)
		r.color(headColors[0])
	case 3:
		r.pdf.SetFont("Helvetica", "B", 12)
		r.color(headColors[1])
	default:
		r.pdf.SetFont("Helvetica", "B", 11)
		r.color(headColors[2])
	}
}

func (r *renderer) body(blocks []Block) error {
	pdf := r.pdf
	for i, b := range blocks {
		switch b.Kind {
		case Heading:
			r.heading(i, b)
		case Paragraph, Bold, Bullet:
			style := ""
			if b.Kind == Bold {
				style = "B"
			}
			pdf.SetFont("Helvetica", style, bodySize)
			r.color(rgb{})
			if b.Kind == Bullet {
				pdf.SetX(margin + 12)
				pdf.MultiCell(r.width-12, bodyLeading, r.text("• "+b.Text), "", "L", false)
			} else {
				pdf.MultiCell(0, bodyLeading, r.text(b.Text), "", "J", false)
			}
			pdf.Ln(3)
		case Table:
			r.table(b.Rows)
		case Image:
			if err := r.image(b); err != nil {
				return err
			}
		case Spacer:
			if !r.pageEmpty() {
				pdf.Ln(4)
			}
		}
		if pdf.Err() {
			return errors.Wrapf(pdf.Error(), "render block %d (%s)", i, b.Kind)
		}
	}
	return nil
}

func (r *renderer) heading(i int, b Block) {
	pdf := r.pdf
	if b.Level == 1 {
		if !r.pageEmpty() {
			pdf.AddPage()
		}
	} else {
		r.ensure(72)
		pdf.Ln(8)
	}
	r.pages[i] = pdf.PageNo()
	if link, ok := r.links[i]; ok {
		pdf.SetLink(link, -1, -1)
	}
	if b.Level <= 2 {
		// アウトラインの階層は飛ばせない
		level := b.Level - 1
		if level > r.depth+1 {
			level = r.depth + 1
		}
		r.depth = level
		pdf.Bookmark(r.text(b.Text), level, -1)
	}

	r.headingStyle(b.Level)
	text := b.Text
	align := "L"
	if b.Level == 1 {
		text = strings.ToUpper(text)
		align = "C"
	}
	size, _ := pdf.GetFontSize()
	pdf.MultiCell(0, size+4, r.text(text), "", align, false)
	if b.Level == 1 {
		pdf.Ln(11)
	} else {
		pdf.Ln(6)
	}
}

// table は罫線付きの表。幅が足りなければ列を比例縮小し、はみ出す文字は省略する。
// ページをまたぐときは見出し行を繰り返す。
func (r *renderer) table(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	pdf := r.pdf
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	widths := make([]float64, cols)
	for ri, row := range rows {
		style := ""
		if ri == 0 {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, tableSize)
		for j, cell := range row {
			widths[j] = max(widths[j], pdf.GetStringWidth(r.text(cell))+8)
		}
	}
	total := 0.0
	for _, w := range widths {
		total += w
	}
	if total > r.width {
		for j := range widths {
			widths[j] *= r.width / total
		}
		total = r.width
	}
	x0 := margin + (r.width-total)/2

	drawRow := func(row []string, header bool) {
		style := ""
		if header {
			style = "B"
			pdf.SetFillColor(headerFill.r, headerFill.g, headerFill.b)
		}
		pdf.SetFont("Helvetica", style, tableSize)
		r.color(rgb{})
		pdf.SetX(x0)
		for j := 0; j < cols; j++ {
			cell := ""
			if j < len(row) {
				cell = r.fit(r.text(row[j]), widths[j]-4)
			}
			align := "C"
			if j == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[j], tableRow, cell, "1", 0, align, header, 0, "")
		}
		pdf.Ln(tableRow)
	}

	r.ensure(2 * tableRow)
	pdf.Ln(4)
	drawRow(rows[0], true)
	for _, row := range rows[1:] {
		if pdf.GetY()+tableRow > r.limit {
			pdf.AddPage()
			drawRow(rows[0], true)
		}
		drawRow(row, false)
	}
	pdf.Ln(8)
}

// fit は幅に収まるよう末尾を "..." で省略する
func (r *renderer) fit(s string, w float64) string {
	if r.pdf.GetStringWidth(s) <= w {
		return s
	}
	for len(s) > 0 {
		s = s[:len(s)-1]
		if r.pdf.GetStringWidth(s+"...") <= w {
			return s + "..."
		}
	}
	return ""
}

func (r *renderer) image(b Block) error {
	pdf := r.pdf
	ext := strings.ToLower(filepath.Ext(b.Path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
	default:
		// PDF に埋め込めない形式はキャプションだけ残す
		pdf.SetFont("Helvetica", "I", 9)
		r.color(rgb{})
		pdf.MultiCell(0, 12, r.text("[Figure: "+b.Text+" ("+filepath.Base(b.Path)+")]"), "", "C", false)
		pdf.Ln(6)
		return nil
	}
	if _, err := os.Stat(b.Path); err != nil {
		return errors.NewInputError("Render", b.Path, "figure not found", err)
	}

	info := pdf.RegisterImageOptions(b.Path, fpdf.ImageOptions{ReadDpi: true})
	if pdf.Err() {
		return errors.NewInputError("Render", b.Path, "cannot read image", pdf.Error())
	}
	w := r.width * 0.9
	h := w * info.Height() / info.Width()
	if maxH := r.limit - margin - 40; h > maxH {
		w *= maxH / h
		h = maxH
	}
	r.ensure(h + 30)
	y := pdf.GetY()
	pdf.ImageOptions(b.Path, margin+(r.width-w)/2, y, w, h, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	pdf.SetY(y + h + 4)
	if b.Text != "" {
		pdf.SetFont("Helvetica", "I", 9)
		r.color(rgb{})
		pdf.MultiCell(0, 12, r.text(b.Text), "", "C", false)
	}
	pdf.Ln(8)
	return nil
}

func (r *renderer) metadata() {
	pdf := r.pdf
	pdf.AddPage()
	pdf.Ln(indent)
	r.headingStyle(3)
	pdf.MultiCell(0, 16, "DOCUMENT METADATA", "", "L", false)
	pdf.Ln(6)

	fields := append([]Field{{Label: "Generated", Value: r.opts.Generated.Format("January 02, 2006")}}, r.opts.Metadata...)
	fields = append(fields, Field{Label: "Page Count", Value: "{nb}"})
	r.color(rgb{})
	for _, f := range fields {
		pdf.SetFont("Helvetica", "B", bodySize)
		pdf.Write(bodyLeading, r.text(f.Label+": "))
		pdf.SetFont("Helvetica", "", bodySize)
		pdf.Write(bodyLeading, r.text(f.Value))
		pdf.Ln(bodyLeading + 2)
	}
}
