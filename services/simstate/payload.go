package simstate

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

// errNULCharacter is returned for strings Postgres JSONB cannot store
var errNULCharacter = errors.New("payload contains a NUL character (\\u0000), which cannot be stored")

// SerializedSize returns the length of the payload in its wide canonical
// form: ", " and ": " separators, non-ASCII escaped as \uXXXX, and numbers
// rendered in their shortest round-trip form with floats keeping a decimal
// point. This is the form the size limit applies to.
func SerializedSize(raw json.RawMessage) (int, error) {
	s, err := wideEncoding(raw)
	if err != nil {
		return 0, err
	}
	return len(s), nil
}

func wideEncoding(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", err
	}

	var b strings.Builder
	if err := writeWide(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeWide(b *strings.Builder, v interface{}) error {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case json.Number:
		b.WriteString(formatNumber(string(val)))
	case string:
		return writeString(b, val)
	case []interface{}:
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeWide(b, item); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := writeString(b, k); err != nil {
				return err
			}
			b.WriteString(": ")
			if err := writeWide(b, val[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	}
	return nil
}

func writeString(b *strings.Builder, s string) error {
	const hex = "0123456789abcdef"

	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == 0:
			return errNULCharacter
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\b':
			b.WriteString(`\b`)
		case r == '\f':
			b.WriteString(`\f`)
		case r > 0xffff:
			r1, r2 := surrogates(r)
			writeEscape(b, r1, hex)
			writeEscape(b, r2, hex)
		case r < 0x20 || r > 0x7f:
			writeEscape(b, r, hex)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return nil
}

func writeEscape(b *strings.Builder, r rune, hex string) {
	b.WriteString(`\u`)
	b.WriteByte(hex[(r>>12)&0xf])
	b.WriteByte(hex[(r>>8)&0xf])
	b.WriteByte(hex[(r>>4)&0xf])
	b.WriteByte(hex[r&0xf])
}

func surrogates(r rune) (rune, rune) {
	r -= 0x10000
	return 0xd800 + (r>>10)&0x3ff, 0xdc00 + r&0x3ff
}

// formatNumber renders a JSON number literal the way it reads back:
// integers verbatim, floats in shortest round-trip form with a decimal
// point, switching to exponent notation outside [1e-4, 1e16).
func formatNumber(lit string) string {
	if !strings.ContainsAny(lit, ".eE") {
		if lit == "-0" {
			return "0"
		}
		return lit
	}

	f, err := strconv.ParseFloat(lit, 64)
	if err != nil && !math.IsInf(f, 0) {
		return lit
	}
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	// d.ddde±XX
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	sign := ""
	if sci[0] == '-' {
		sign, sci = "-", sci[1:]
	}
	mant, expPart, _ := strings.Cut(sci, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expPart)

	if exp < -4 || exp >= 16 {
		out := digits[:1]
		if len(digits) > 1 {
			out += "." + digits[1:]
		}
		expSign := "+"
		if exp < 0 {
			expSign, exp = "-", -exp
		}
		expDigits := strconv.Itoa(exp)
		if len(expDigits) < 2 {
			expDigits = "0" + expDigits
		}
		return sign + out + "e" + expSign + expDigits
	}

	if exp < 0 {
		return sign + "0." + strings.Repeat("0", -exp-1) + digits
	}
	intPart, frac := digits, ""
	if len(digits) > exp+1 {
		intPart, frac = digits[:exp+1], digits[exp+1:]
	} else {
		intPart += strings.Repeat("0", exp+1-len(digits))
	}
	if frac == "" {
		frac = "0"
	}
	return sign + intPart + "." + frac
}
