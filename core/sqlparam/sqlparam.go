// Package sqlparam parses typed parameter literals into bind values.
// The syntax makes every tag in the value model reachable from a command
// line:
//
//	null
//	true, false
//	i64(42)
//	real(3.5)
//	str(hello world)
//	bin(0xDEADBEEF)
//	num(12.50,2)
//	dt(2026-01-02T15:04:05Z)
//	arr(i64: 1, 2, 3)
//
// Malformed literals fail with an InvalidOperand status.
package sqlparam

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
	"github.com/FocuswithJustin/BriarSQL/core/value"
)

// String-bodied literals capture as whole tokens so their payloads are
// free of tokenization rules.
var paramLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "StrLit", Pattern: `str\([^)]*\)`},
	{Name: "BinLit", Pattern: `bin\(\s*0[xX][0-9a-fA-F]*\s*\)`},
	{Name: "DtLit", Pattern: `dt\([^)]*\)`},
	{Name: "Number", Pattern: `[-+]?[0-9]+(\.[0-9]+)?([eE][-+]?[0-9]+)?`},
	{Name: "Ident", Pattern: `[a-z][a-z0-9]*`},
	{Name: "Punct", Pattern: `[(),:]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

//nolint:govet // participle grammar tags are not standard struct tags
type paramLit struct {
	Null bool    `  @"null"`
	Bool *string `| @("true" | "false")`
	Int  *string `| "i64" "(" @Number ")"`
	Real *string `| "real" "(" @Number ")"`
	Num  *numLit `| "num" "(" @@ ")"`
	Str  *string `| @StrLit`
	Bin  *string `| @BinLit`
	Dt   *string `| @DtLit`
	Arr  *arrLit `| "arr" "(" @@ ")"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type numLit struct {
	Value string `@Number`
	Prec  string `"," @Number`
}

//nolint:govet // participle grammar tags are not standard struct tags
type arrLit struct {
	Elem  string   `@Ident ":"`
	Items []string `@Number ("," @Number)*`
}

var paramParser = participle.MustBuild[paramLit](
	participle.Lexer(paramLexer),
	participle.Elide("Whitespace"),
)

// Parse builds a bind value from one literal. Arena-backed values land
// in a.
func Parse(a *arena.Arena, s string) (*value.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "empty parameter literal")
	}
	lit, err := paramParser.ParseString("", s)
	if err != nil {
		return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "bad literal %q: %v", s, err)
	}
	return build(a, s, lit)
}

// ParseAll parses every literal in order, for binding a full parameter
// list.
func ParseAll(a *arena.Arena, lits []string) ([]*value.Value, error) {
	if len(lits) == 0 {
		return nil, nil
	}
	out := make([]*value.Value, len(lits))
	for i, s := range lits {
		v, err := Parse(a, s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func build(a *arena.Arena, s string, lit *paramLit) (*value.Value, error) {
	switch {
	case lit.Null:
		return value.Null(), nil
	case lit.Bool != nil:
		return value.Bool(*lit.Bool == "true"), nil
	case lit.Int != nil:
		n, err := strconv.ParseInt(*lit.Int, 10, 64)
		if err != nil {
			return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "bad integer in %q: %v", s, err)
		}
		return value.NewInt(a, n)
	case lit.Real != nil:
		r, err := strconv.ParseFloat(*lit.Real, 64)
		if err != nil {
			return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "bad real in %q: %v", s, err)
		}
		return value.NewReal(a, r)
	case lit.Num != nil:
		return buildNumeric(a, s, lit.Num)
	case lit.Str != nil:
		body := strings.TrimSuffix(strings.TrimPrefix(*lit.Str, "str("), ")")
		return value.NewString(a, body)
	case lit.Bin != nil:
		return buildBinary(a, s, *lit.Bin)
	case lit.Dt != nil:
		body := strings.TrimSuffix(strings.TrimPrefix(*lit.Dt, "dt("), ")")
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(body))
		if err != nil {
			return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "bad datetime in %q: %v", s, err)
		}
		return value.NewDateTime(a, t)
	case lit.Arr != nil:
		return buildArray(a, s, lit.Arr)
	default:
		return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "unrecognized literal %q", s)
	}
}

// buildNumeric scales the decimal text to the declared precision.
// num(12.50,2) and num(12.5,2) both mean 1250 at precision 2; digits
// beyond the declared precision are rejected rather than silently
// truncated.
func buildNumeric(a *arena.Arena, s string, lit *numLit) (*value.Value, error) {
	prec, err := strconv.Atoi(lit.Prec)
	if err != nil || prec < 0 {
		return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "bad precision in %q", s)
	}
	whole, frac, _ := strings.Cut(lit.Value, ".")
	if len(frac) > prec {
		return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse",
			"%q has %d fractional digits, more than precision %d", s, len(frac), prec)
	}
	digits := whole + frac + strings.Repeat("0", prec-len(frac))
	scaled, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "bad numeric in %q: %v", s, err)
	}
	return value.NewNumeric(a, scaled, prec)
}

func buildBinary(a *arena.Arena, s, tok string) (*value.Value, error) {
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(tok, "bin("), ")"))
	body = strings.TrimPrefix(strings.TrimPrefix(body, "0x"), "0X")
	if len(body)%2 != 0 {
		return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "odd hex digit count in %q", s)
	}
	p, err := hex.DecodeString(body)
	if err != nil {
		return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "bad hex in %q: %v", s, err)
	}
	return value.NewBinary(a, p)
}

func buildArray(a *arena.Arena, s string, lit *arrLit) (*value.Value, error) {
	var elemT value.Type
	var elem func(string) (*value.Value, error)
	switch lit.Elem {
	case "i64":
		elemT = value.TypeInt8
		elem = func(item string) (*value.Value, error) {
			n, err := strconv.ParseInt(item, 10, 64)
			if err != nil {
				return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "bad integer %q in %q", item, s)
			}
			return value.NewInt(a, n)
		}
	case "real":
		elemT = value.TypeReal8
		elem = func(item string) (*value.Value, error) {
			r, err := strconv.ParseFloat(item, 64)
			if err != nil {
				return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "bad real %q in %q", item, s)
			}
			return value.NewReal(a, r)
		}
	default:
		return nil, status.Opf(status.InvalidOperand, "sqlparam.Parse", "unsupported array element type %q in %q", lit.Elem, s)
	}

	av, err := value.NewArray(a, elemT, len(lit.Items))
	if err != nil {
		return nil, err
	}
	arr, err := av.Array()
	if err != nil {
		return nil, err
	}
	for i, item := range lit.Items {
		v, err := elem(item)
		if err != nil {
			return nil, err
		}
		if err := arr.SetAt(i, v); err != nil {
			return nil, err
		}
	}
	return av, nil
}
