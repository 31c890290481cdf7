package gerber

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// PrimitiveCode identifies an aperture macro primitive shape (spec.md §3
// "MacroPrimitive").
type PrimitiveCode int

const (
	PrimComment        PrimitiveCode = 0
	PrimCircle         PrimitiveCode = 1
	PrimLineVector     PrimitiveCode = 2 // also 20, legacy alias
	PrimLineVectorAlt  PrimitiveCode = 20
	PrimLineCenter     PrimitiveCode = 21
	PrimLineLowerLeft  PrimitiveCode = 22
	PrimOutline        PrimitiveCode = 4
	PrimRegularPolygon PrimitiveCode = 5
	PrimMoire          PrimitiveCode = 6
	PrimThermal        PrimitiveCode = 7
)

// itemKind tags one token of a MacroExpr.
type itemKind int

const (
	itemValue itemKind = iota
	itemParam
	itemOpAdd
	itemOpSub
	itemOpMul
	itemOpDiv
)

// ExprItem is one token of a postfix-walked arithmetic expression (spec.md
// §3 "MacroExpr"). Operand tokens (itemValue/itemParam) carry Sign, applied
// when the token is resolved, so that a unary minus parsed at the head of
// an operand is never confused with the binary Sub operator.
type ExprItem struct {
	Kind       itemKind
	Value      float64
	ParamIndex int
	Sign       float64
}

// MacroExpr is the parsed form of one macro parameter or local-assignment
// right-hand side: a flat, left-to-right, no-precedence token sequence.
type MacroExpr []ExprItem

// parseMacroExpr tokenizes one parameter's text into a MacroExpr. Per
// spec.md §4.3: a '+'/'-' encountered where an operand is expected (at the
// very start, or immediately after another operator) is that operand's
// sign; a '+'/'-' encountered immediately after an operand is the binary
// Add/Sub operator. 'x'/'X' is multiplication, '/' is division.
func parseMacroExpr(s string) (MacroExpr, error) {
	s = strings.TrimSpace(s)
	var items MacroExpr
	i, n := 0, len(s)
	expectOperand := true

	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '+' || c == '-':
			if expectOperand {
				sign := 1.0
				if c == '-' {
					sign = -1
				}
				i++
				item, ni, err := scanOperand(s, i, sign)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
				i = ni
				expectOperand = false
			} else {
				op := itemOpAdd
				if c == '-' {
					op = itemOpSub
				}
				items = append(items, ExprItem{Kind: op})
				i++
				expectOperand = true
			}
		case c == 'x' || c == 'X':
			items = append(items, ExprItem{Kind: itemOpMul})
			i++
			expectOperand = true
		case c == '/':
			items = append(items, ExprItem{Kind: itemOpDiv})
			i++
			expectOperand = true
		case c == '$' || (c >= '0' && c <= '9') || c == '.':
			item, ni, err := scanOperand(s, i, 1.0)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			i = ni
			expectOperand = false
		default:
			return nil, errors.Errorf("gerber: macro expr %q: unexpected character %q", s, c)
		}
	}
	if len(items) == 0 {
		return nil, errors.Errorf("gerber: macro expr %q: empty", s)
	}
	return items, nil
}

func scanOperand(s string, i int, sign float64) (ExprItem, int, error) {
	n := len(s)
	if i < n && s[i] == '$' {
		i++
		start := i
		for i < n && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if start == i {
			return ExprItem{}, i, errors.New("gerber: malformed $ parameter reference")
		}
		idx, _ := strconv.Atoi(s[start:i])
		return ExprItem{Kind: itemParam, ParamIndex: idx, Sign: sign}, i, nil
	}
	start := i
	for i < n && ((s[i] >= '0' && s[i] <= '9') || s[i] == '.') {
		i++
	}
	if start == i {
		return ExprItem{}, i, errors.New("gerber: expected numeric operand")
	}
	v, err := strconv.ParseFloat(s[start:i], 64)
	if err != nil {
		return ExprItem{}, i, errors.Wrap(err, "malformed numeric operand")
	}
	return ExprItem{Kind: itemValue, Value: v, Sign: sign}, i, nil
}

// immediateValue returns the literal value of expr if it is a single
// unparameterized operand (no $ reference, no operator) — required for the
// outline primitive's vertex-count parameter, which spec.md §4.3 says "must
// be immediate because it determines how many further parameters to
// parse".
func (expr MacroExpr) immediateValue() (float64, bool) {
	if len(expr) != 1 || expr[0].Kind != itemValue {
		return 0, false
	}
	return expr[0].Value * expr[0].Sign, true
}

// evalContext is the per-invocation binding of actuals and local slots used
// to evaluate a macro's expressions.
type evalContext struct {
	actuals []float64
	locals  map[int]float64
}

// eval walks expr left to right maintaining an accumulator and a pending
// operator, per spec.md §4.3. Division by zero and out-of-range $ indices
// are reported through warn and evaluate to 0, matching spec.md's "produce
// a concrete value of 0 for that parameter and continue".
func (expr MacroExpr) eval(ec *evalContext, warn func(string)) float64 {
	var acc float64
	haveAcc := false
	pending := itemOpAdd

	resolve := func(it ExprItem) float64 {
		var v float64
		switch it.Kind {
		case itemValue:
			v = it.Value
		case itemParam:
			if it.ParamIndex >= 1 && it.ParamIndex <= len(ec.actuals) {
				v = ec.actuals[it.ParamIndex-1]
			} else if lv, ok := ec.locals[it.ParamIndex]; ok {
				v = lv
			} else {
				warn("macro: $" + strconv.Itoa(it.ParamIndex) + " referenced before assignment")
				v = 0
			}
		}
		return v * it.Sign
	}

	for _, it := range expr {
		switch it.Kind {
		case itemValue, itemParam:
			v := resolve(it)
			if !haveAcc {
				acc = v
				haveAcc = true
				continue
			}
			switch pending {
			case itemOpAdd:
				acc += v
			case itemOpSub:
				acc -= v
			case itemOpMul:
				acc *= v
			case itemOpDiv:
				if v == 0 {
					warn("macro: division by zero")
					acc = 0
				} else {
					acc /= v
				}
			}
		default:
			pending = it.Kind
		}
	}
	return acc
}

// MacroPrimitive is one decomposed element of an aperture macro definition:
// either a real drawable primitive or a local-assignment pseudo-primitive
// (IsAssignment true, AssignIndex the target slot).
type MacroPrimitive struct {
	Code          PrimitiveCode
	Params        []MacroExpr
	IsAssignment  bool
	AssignIndex   int
	AssignExpr    MacroExpr
	UnitsMetric   bool // the MO in effect when the macro was *defined*
}

// ApertureMacro is a named, parametric composite shape (spec.md §3
// "ApertureMacro"). It is owned by the Image; D-codes reference it weakly
// by name.
type ApertureMacro struct {
	Name       string
	Primitives []MacroPrimitive
}

// parseMacroBody parses the lines of a %AM<name>*...*% block (the name has
// already been consumed by the caller) into an ordered primitive list.
// Each line is either `$N=<expr>*` (a local assignment) or
// `id,param1,param2,...*` (a primitive). id=0 (comment) discards the
// remainder of the line; an id outside the primitive set is reported and
// skipped. id=4 (outline) requires its vertex-count parameter to be
// immediate; all of its comma-separated parameters are kept, and their
// number is not checked against the vertex count.
func parseMacroBody(lines []string, unitsMetric bool, warn func(string)) []MacroPrimitive {
	var out []MacroPrimitive
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx := strings.IndexByte(line, '='); idx > 0 && line[0] == '$' {
			target := line[1:idx]
			n, err := strconv.Atoi(target)
			if err != nil {
				warn("macro: malformed assignment target $" + target)
				continue
			}
			expr, err := parseMacroExpr(line[idx+1:])
			if err != nil {
				warn(err.Error())
				continue
			}
			out = append(out, MacroPrimitive{IsAssignment: true, AssignIndex: n, AssignExpr: expr, UnitsMetric: unitsMetric})
			continue
		}

		fields := strings.Split(line, ",")
		idText := strings.TrimSpace(fields[0])
		if f := strings.Fields(idText); len(f) > 1 && f[0] == "0" {
			// comment primitive written as "0 <text>", with no comma after the id
			idText = f[0]
		}
		codeNum, err := strconv.Atoi(idText)
		if err != nil {
			warn("macro: malformed primitive id " + fields[0])
			continue
		}
		code := PrimitiveCode(codeNum)
		if code == PrimComment {
			continue
		}
		switch code {
		case PrimCircle, PrimLineVector, PrimLineVectorAlt, PrimLineCenter, PrimLineLowerLeft,
			PrimOutline, PrimRegularPolygon, PrimMoire, PrimThermal:
		default:
			warn("macro: unsupported primitive id " + strconv.Itoa(codeNum))
			continue
		}

		var exprs []MacroExpr
		malformed := false
		for _, f := range fields[1:] {
			e, err := parseMacroExpr(f)
			if err != nil {
				warn(err.Error())
				malformed = true
				continue
			}
			exprs = append(exprs, e)
		}
		if code == PrimOutline {
			if len(exprs) < 2 {
				warn("macro: outline primitive missing vertex count")
				continue
			}
			if _, ok := exprs[1].immediateValue(); !ok {
				warn("macro: outline vertex count must be immediate (no $ reference)")
				continue
			}
		}
		if malformed {
			continue
		}
		out = append(out, MacroPrimitive{Code: code, Params: exprs, UnitsMetric: unitsMetric})
	}
	return out
}

// EvaluatedPrimitive is a macro primitive with every parameter resolved to
// a concrete float64 against one invocation's actuals, ready for a renderer
// to turn into geometry.
type EvaluatedPrimitive struct {
	Code        PrimitiveCode
	Values      []float64
	UnitsMetric bool
}

// Evaluate runs a macro invocation: assignment primitives are applied in
// order (overwriting any earlier value for the same local slot), and every
// real primitive's parameters are evaluated as they are reached. $n resolves
// to actuals[n-1] when n <= len(actuals), and otherwise to the most recent
// assignment to local slot n; an assignment to a slot that an actual covers
// is stored but does not change what $n evaluates to.
func (m *ApertureMacro) Evaluate(actuals []float64, warn func(string)) []EvaluatedPrimitive {
	ec := &evalContext{actuals: actuals, locals: map[int]float64{}}
	var out []EvaluatedPrimitive
	for _, prim := range m.Primitives {
		if prim.IsAssignment {
			ec.locals[prim.AssignIndex] = prim.AssignExpr.eval(ec, warn)
			continue
		}
		values := make([]float64, len(prim.Params))
		for i, p := range prim.Params {
			values[i] = p.eval(ec, warn)
		}
		out = append(out, EvaluatedPrimitive{Code: prim.Code, Values: values, UnitsMetric: prim.UnitsMetric})
	}
	return out
}
