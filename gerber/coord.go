package gerber

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// decodeAxis converts one axis's literal text (sign included, already
// stripped of the X/Y/I/J prefix letter) into internal units, per spec.md
// §4.2. Float-form literals (containing '.') are parsed directly and scaled
// by the active units; integer-form literals are zero-padded according to
// the format's digit counts and zero-omission flag before being split into
// integer/fractional parts.
func decodeAxis(lit string, axis AxisFormat, omission ZeroOmission, units Units) (int64, error) {
	if lit == "" {
		return 0, errors.New("gerber: empty coordinate literal")
	}

	negative := false
	body := lit
	switch body[0] {
	case '+':
		body = body[1:]
	case '-':
		negative = true
		body = body[1:]
	}
	if body == "" {
		return 0, errors.New("gerber: malformed coordinate literal")
	}

	if strings.ContainsRune(body, '.') {
		v, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return 0, errors.Wrap(err, "malformed decimal coordinate")
		}
		if negative {
			v = -v
		}
		return units.ToInternal(v), nil
	}

	for _, c := range body {
		if c < '0' || c > '9' {
			return 0, errors.Errorf("gerber: malformed integer coordinate %q", lit)
		}
	}

	total := axis.total()
	if len(body) < total {
		pad := strings.Repeat("0", total-len(body))
		if omission == OmitTrailing {
			body = body + pad
		} else {
			body = pad + body
		}
	} else if len(body) > total {
		// More digits than the format declares: keep the rightmost (least
		// significant) `total` digits and drop the excess leading ones, so
		// malformed-but-parseable files still decode.
		body = body[len(body)-total:]
	}

	intPart := body[:axis.IntDigits]
	fracPart := body[axis.IntDigits:]

	intVal, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "malformed integer part")
	}
	var fracVal int64
	if fracPart != "" {
		fracVal, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, errors.Wrap(err, "malformed fractional part")
		}
	}

	scale := 1.0
	for i := 0; i < axis.FracDigits; i++ {
		scale *= 10
	}
	value := float64(intVal) + float64(fracVal)/scale
	if negative {
		value = -value
	}
	return units.ToInternal(value), nil
}

// CoordField is one XYIJ field parsed from a coordinate block, each
// optional since any of X, Y, I, J may be absent from a given block.
type CoordField struct {
	X, Y   *int64
	I, J   *int64
}

// parseCoordinateBlock reads consecutive X/Y/I/J letter+number pairs from
// the scanner (already positioned at the first letter) until a non-XYIJ
// character (typically 'D') is encountered. It does not consume that
// trailing character.
func parseCoordinateBlock(s *Scanner, ic *ImageContext) (CoordField, error) {
	var cf CoordField
	for {
		c, ok := s.PeekChar()
		if !ok {
			break
		}
		var axis byte
		switch c {
		case 'X', 'Y', 'I', 'J':
			axis = c
		default:
			return cf, nil
		}
		s.ConsumeChar()
		lit, err := s.readCoordLiteral()
		if err != nil {
			return cf, err
		}
		var fmtSpec AxisFormat
		if axis == 'X' || axis == 'I' {
			fmtSpec = ic.Format.X
		} else {
			fmtSpec = ic.Format.Y
		}
		v, err := decodeAxis(lit, fmtSpec, ic.Format.ZeroOmission, ic.Units)
		if err != nil {
			return cf, err
		}
		switch axis {
		case 'X':
			cf.X = &v
		case 'Y':
			cf.Y = &v
		case 'I':
			cf.I = &v
		case 'J':
			cf.J = &v
		}
	}
	return cf, nil
}

// readCoordLiteral reads the raw text of one coordinate value: an optional
// sign followed by digits and at most one '.'.
func (s *Scanner) readCoordLiteral() (string, error) {
	var buf []byte
	c, ok := s.PeekChar()
	if ok && (c == '+' || c == '-') {
		buf = append(buf, c)
		s.ConsumeChar()
	}
	sawDigit := false
	for {
		c, ok := s.PeekChar()
		if !ok {
			break
		}
		if c >= '0' && c <= '9' {
			buf = append(buf, c)
			sawDigit = true
			s.ConsumeChar()
			continue
		}
		if c == '.' {
			buf = append(buf, c)
			s.ConsumeChar()
			continue
		}
		break
	}
	if !sawDigit {
		return "", errors.New("gerber: malformed coordinate literal")
	}
	return string(buf), nil
}

// resolvePosition computes the new current position from a parsed
// CoordField, applying absolute-vs-incremental inheritance and leaving I/J
// defaulted to 0 relative to previous_pos per spec.md §4.2.
func resolvePosition(ic *ImageContext, cf CoordField) (pos, ij Point) {
	pos = ic.CurrentPos
	if ic.Format.Incremental {
		pos = ic.PreviousPos
		if cf.X != nil {
			pos.X = ic.PreviousPos.X + *cf.X
		} else {
			pos.X = ic.PreviousPos.X
		}
		if cf.Y != nil {
			pos.Y = ic.PreviousPos.Y + *cf.Y
		} else {
			pos.Y = ic.PreviousPos.Y
		}
	} else {
		if cf.X != nil {
			pos.X = *cf.X
		}
		if cf.Y != nil {
			pos.Y = *cf.Y
		}
	}
	if cf.I != nil {
		ij.X = *cf.I
	}
	if cf.J != nil {
		ij.Y = *cf.J
	}
	return pos, ij
}
