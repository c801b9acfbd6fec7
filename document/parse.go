// Package document は分析報告の markdown を PDF に組版します。
//
// markdown は goldmark (GFM の表拡張付き) で構文木にしてから、組版の単位である
// ブロックの列に平坦化します。見出しは # から #### まで、それより深い見出しと
// 太字だけの段落は太字の行、番号付きリストは番号付きの段落になります。
// インラインの強調は文字だけを残します。
package document

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// BlockKind は組版の単位となるブロックの種類
type BlockKind int

const (
	Spacer BlockKind = iota
	Heading
	Bullet
	Bold
	Paragraph
	Table
	Image
)

func (k BlockKind) String() string {
	switch k {
	case Heading:
		return "heading"
	case Bullet:
		return "bullet"
	case Bold:
		return "bold"
	case Paragraph:
		return "paragraph"
	case Table:
		return "table"
	case Image:
		return "image"
	default:
		return "spacer"
	}
}

// Block は markdown の1要素
type Block struct {
	Kind BlockKind
	// Level は見出しの深さ (1-4)
	Level int
	// Text は見出し、箇条書き、段落の本文と画像のキャプション
	Text string
	// Rows は表のセル。先頭行が見出し行。
	Rows [][]string
	// Path は画像ファイルのパス
	Path string
}

var gfm = goldmark.New(goldmark.WithExtensions(extension.Table))

// maxHeading より深い見出しは太字の行として扱う
const maxHeading = 4

// Parse は markdown をブロックの列に分解する。
// 最上位のブロックの間には Spacer が1つ入る。末尾に Spacer は付かない。
func Parse(markdown string) []Block {
	src := []byte(strings.ReplaceAll(markdown, "\r\n", "\n"))
	doc := gfm.Parser().Parse(text.NewReader(src))

	p := &parser{src: src}
	var blocks []Block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		group := p.block(n)
		if len(group) == 0 {
			continue
		}
		if len(blocks) > 0 {
			blocks = append(blocks, Block{Kind: Spacer})
		}
		blocks = append(blocks, group...)
	}
	return blocks
}

type parser struct {
	src []byte
}

func (p *parser) block(n ast.Node) []Block {
	switch n := n.(type) {
	case *ast.Heading:
		t := p.inline(n)
		if t == "" {
			return nil
		}
		if n.Level > maxHeading {
			return []Block{{Kind: Bold, Text: t}}
		}
		return []Block{{Kind: Heading, Level: n.Level, Text: t}}
	case *ast.Paragraph, *ast.TextBlock:
		return p.paragraph(n)
	case *ast.List:
		return p.list(n)
	case *east.Table:
		return p.table(n)
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		t := strings.TrimRight(p.lines(n), "\n")
		if t == "" {
			return nil
		}
		return []Block{{Kind: Paragraph, Text: t}}
	case *ast.Blockquote:
		var out []Block
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			out = append(out, p.block(c)...)
		}
		return out
	default:
		// 水平線と HTML ブロックは組版しない
		return nil
	}
}

// paragraph は画像だけの段落を Image に、太字だけの段落を Bold にする
func (p *parser) paragraph(n ast.Node) []Block {
	var images []Block
	onlyImages := true
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if img, ok := c.(*ast.Image); ok {
			images = append(images, Block{Kind: Image, Text: p.inline(img), Path: string(img.Destination)})
			continue
		}
		if p.text(c) != "" {
			onlyImages = false
			break
		}
	}
	if onlyImages && len(images) > 0 {
		return images
	}

	t := p.inline(n)
	if t == "" {
		return nil
	}
	if em, ok := p.soleChild(n).(*ast.Emphasis); ok && em.Level == 2 {
		return []Block{{Kind: Bold, Text: t}}
	}
	return []Block{{Kind: Paragraph, Text: t}}
}

// soleChild は空白以外の子が1つだけならそれを返す
func (p *parser) soleChild(n ast.Node) ast.Node {
	var only ast.Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*ast.Text); ok && p.text(c) == "" {
			continue
		}
		if only != nil {
			return nil
		}
		only = c
	}
	return only
}

// list は項目を平坦化する。入れ子のリストは親の項目の直後に続く。
func (p *parser) list(l *ast.List) []Block {
	var out []Block
	num := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch c := c.(type) {
			case *ast.Paragraph, *ast.TextBlock:
				t := p.inline(c)
				if t == "" {
					continue
				}
				if l.IsOrdered() {
					out = append(out, Block{Kind: Paragraph, Text: strconv.Itoa(num) + ". " + t})
				} else {
					out = append(out, Block{Kind: Bullet, Text: t})
				}
			default:
				out = append(out, p.block(c)...)
			}
		}
		num++
	}
	return out
}

func (p *parser) table(t *east.Table) []Block {
	var rows [][]string
	for r := t.FirstChild(); r != nil; r = r.NextSibling() {
		var cells []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, p.inline(c))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil
	}
	return []Block{{Kind: Table, Rows: rows}}
}

func (p *parser) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(p.src))
	}
	return b.String()
}

// inline は子孫の文字だけをつなげる。改行と <br> は空白1つになる。
func (p *parser) inline(n ast.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		p.writeNode(&b, c)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// text はノード自身を含めた文字
func (p *parser) text(n ast.Node) string {
	var b strings.Builder
	p.writeNode(&b, n)
	return strings.TrimSpace(b.String())
}

func (p *parser) writeNode(b *strings.Builder, n ast.Node) {
	switch n := n.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(p.src))
		if n.SoftLineBreak() || n.HardLineBreak() {
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.AutoLink:
		b.Write(n.Label(p.src))
	case *ast.RawHTML:
		var raw strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			raw.Write(seg.Value(p.src))
		}
		if strings.HasPrefix(strings.ToLower(raw.String()), "<br") {
			b.WriteByte(' ')
		}
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			p.writeNode(b, c)
		}
	}
}

// Headings は目次に載せる見出し (レベル 1 と 2) を返す
func Headings(blocks []Block) []Block {
	var out []Block
	for _, b := range blocks {
		if b.Kind == Heading && b.Level <= 2 {
			out = append(out, b)
		}
	}
	return out
}
