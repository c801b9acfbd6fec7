package linear

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

// Term はモデル式の右辺の1項
type Term struct {
	// Column は参照する列名
	Column string
	// Categorical は C(col) で明示的にカテゴリ扱いされた項
	Categorical bool
}

func (t Term) String() string {
	if t.Categorical {
		return "C(" + t.Column + ")"
	}
	return t.Column
}

// Formula は "response ~ term + term" 形式のモデル式
type Formula struct {
	Response  string
	Terms     []Term
	Intercept bool
}

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)
	catRe   = regexp.MustCompile(`^C\(\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\)$`)
)

// ParseFormula はモデル式を解析する。
//
// 使える項:
//   - 列名: pH_reading ~ fertilizer_kg_ha
//   - C(col): カテゴリ変数として扱う
//   - 1: 切片（既定で含まれる）
//   - 0 または -1: 切片なし
//
// 解析できない場合は SchemaError を返す。
func ParseFormula(text string) (Formula, error) {
	parts := strings.Split(text, "~")
	if len(parts) != 2 {
		return Formula{}, errors.NewSchemaError("ParseFormula", "", fmt.Sprintf("formula %q must contain exactly one '~'", text))
	}
	f := Formula{Response: strings.TrimSpace(parts[0]), Intercept: true}
	if !identRe.MatchString(f.Response) {
		return Formula{}, errors.NewSchemaError("ParseFormula", f.Response, fmt.Sprintf("invalid response in formula %q", text))
	}

	rhs := strings.TrimSpace(parts[1])
	if rhs == "" {
		return Formula{}, errors.NewSchemaError("ParseFormula", "", fmt.Sprintf("formula %q has no terms", text))
	}

	seen := make(map[string]bool)
	for _, tok := range splitTerms(rhs) {
		neg := strings.HasPrefix(tok, "-")
		body := strings.TrimSpace(strings.TrimLeft(tok, "+-"))
		switch {
		case body == "":
			return Formula{}, errors.NewSchemaError("ParseFormula", "", fmt.Sprintf("empty term in formula %q", text))
		case body == "1":
			f.Intercept = !neg
			continue
		case body == "0":
			if neg {
				return Formula{}, errors.NewSchemaError("ParseFormula", "", "'-0' is not a valid term")
			}
			f.Intercept = false
			continue
		case neg:
			return Formula{}, errors.NewSchemaError("ParseFormula", body, "only the intercept can be removed with '-'")
		}

		term := Term{Column: body}
		if m := catRe.FindStringSubmatch(body); m != nil {
			term = Term{Column: m[1], Categorical: true}
		} else if !identRe.MatchString(body) {
			return Formula{}, errors.NewSchemaError("ParseFormula", body, fmt.Sprintf("unsupported term in formula %q", text))
		}
		if term.Column == f.Response {
			return Formula{}, errors.NewSchemaError("ParseFormula", body, "response cannot appear on the right-hand side")
		}
		if seen[term.Column] {
			continue
		}
		seen[term.Column] = true
		f.Terms = append(f.Terms, term)
	}
	return f, nil
}

// splitTerms は '+' と '-' で項に分ける。'-' は後続の項に付いたまま残す。
// '+' の前後が空の場合は空文字列の項を返す。
func splitTerms(rhs string) []string {
	var (
		out   []string
		cur   strings.Builder
		depth int
	)
	flush := func(keepEmpty bool) {
		s := strings.TrimSpace(cur.String())
		if s != "" || keepEmpty {
			out = append(out, s)
		}
		cur.Reset()
	}
	for _, r := range rhs {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
		case depth == 0 && r == '+':
			flush(true)
			continue
		case depth == 0 && r == '-':
			flush(false)
		}
		cur.WriteRune(r)
	}
	flush(true)
	return out
}

// Columns はモデル式が参照する列（応答変数を含む）
func (f Formula) Columns() []string {
	cols := []string{f.Response}
	for _, t := range f.Terms {
		cols = append(cols, t.Column)
	}
	return cols
}

// String は正規化されたモデル式を返す
func (f Formula) String() string {
	terms := make([]string, 0, len(f.Terms)+1)
	for _, t := range f.Terms {
		terms = append(terms, t.String())
	}
	if !f.Intercept {
		terms = append(terms, "0")
	}
	if len(terms) == 0 {
		terms = append(terms, "1")
	}
	rhs := strings.Join(terms, " + ")
	return f.Response + " ~ " + strings.ReplaceAll(rhs, "+ 0", "- 1")
}
