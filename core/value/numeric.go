package value

import (
	"strconv"
	"strings"

	"github.com/FocuswithJustin/BriarSQL/core/arena"
	"github.com/FocuswithJustin/BriarSQL/core/status"
)

// MaxNumericPrecision is the largest number of fractional digits a Numeric
// value can carry. The scaled representation is a signed 64-bit integer,
// which caps the total number of significant digits at 19.
const MaxNumericPrecision = 19

// Decimal is the Go-side shape of a fixed-point value, accepted by Of.
type Decimal struct {
	Scaled    int64 // value multiplied by 10^Precision
	Precision int   // fractional digits, 0..MaxNumericPrecision
}

// NewNumeric creates a fixed-point decimal from its scaled integer
// representation. precision counts fractional digits and must be within
// 0..MaxNumericPrecision; anything else fails with InvalidOperand.
func NewNumeric(a *arena.Arena, scaled int64, precision int) (*Value, error) {
	if precision < 0 || precision > MaxNumericPrecision {
		return nil, status.Opf(status.InvalidOperand, "value.NewNumeric", "precision %d out of range 0..%d", precision, MaxNumericPrecision)
	}
	val, err := newValue(a, TypeNumeric, 8)
	if err != nil {
		return nil, err
	}
	val.i = scaled
	val.prec = precision
	return val, nil
}

// NewNumericString parses a decimal literal such as "123.45", "-0.5", or
// "42" into a Numeric value. The precision is the number of digits after
// the point. Malformed or overflowing literals fail with InvalidOperand.
func NewNumericString(a *arena.Arena, s string) (*Value, error) {
	scaled, prec, err := parseNumeric(s)
	if err != nil {
		return nil, err
	}
	return NewNumeric(a, scaled, prec)
}

func parseNumeric(s string) (scaled int64, precision int, err error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, 0, status.Opf(status.InvalidOperand, "value.parseNumeric", "empty numeric literal")
	}
	sign := ""
	if t[0] == '+' || t[0] == '-' {
		sign = t[:1]
		t = t[1:]
	}
	intPart, fracPart, hasPoint := strings.Cut(t, ".")
	if intPart == "" && fracPart == "" {
		return 0, 0, status.Opf(status.InvalidOperand, "value.parseNumeric", "empty numeric literal %q", s)
	}
	if intPart == "" {
		intPart = "0"
	}
	if hasPoint && fracPart == "" {
		return 0, 0, status.Opf(status.InvalidOperand, "value.parseNumeric", "trailing point in numeric literal %q", s)
	}
	for _, part := range []string{intPart, fracPart} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, 0, status.Opf(status.InvalidOperand, "value.parseNumeric", "bad digit %q in numeric literal %q", c, s)
			}
		}
	}
	precision = len(fracPart)
	if precision > MaxNumericPrecision {
		return 0, 0, status.Opf(status.InvalidOperand, "value.parseNumeric", "precision %d out of range in %q", precision, s)
	}
	digits := sign + strings.TrimLeft(intPart+fracPart, "0")
	if digits == sign {
		digits = sign + "0"
	}
	scaled, perr := strconv.ParseInt(digits, 10, 64)
	if perr != nil {
		return 0, 0, status.Opf(status.InvalidOperand, "value.parseNumeric", "numeric literal %q overflows", s)
	}
	return scaled, precision, nil
}

// formatNumeric renders a scaled decimal with the point inserted at the
// given precision. Works on the string form to stay exact for any scaled
// value including the int64 extremes.
func formatNumeric(scaled int64, precision int) string {
	s := strconv.FormatInt(scaled, 10)
	if precision <= 0 {
		return s
	}
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	for len(s) <= precision {
		s = "0" + s
	}
	cut := len(s) - precision
	return sign + s[:cut] + "." + s[cut:]
}
