package gerber

import (
	"math"
	"strconv"
	"strings"
)

// Interpreter is the command-interpreter state machine of spec.md §4.5. It
// consumes '*'-terminated blocks from a Scanner, dispatches G-codes,
// D-codes, and RS-274X extended commands, and emits DrawItems through an
// Emitter. All parser state lives on the Image's ImageContext; there is no
// process-wide mutable state (DESIGN NOTES).
type Interpreter struct {
	scanner *Scanner
	image   *Image
	emitter *Emitter

	pendingCoord    CoordField
	regionVertices  []Point
	done            bool
	segsPerTurn     int
}

// NewInterpreter builds an Interpreter over an already-open Scanner,
// accumulating into image.
func NewInterpreter(scanner *Scanner, image *Image) *Interpreter {
	return &Interpreter{
		scanner:     scanner,
		image:       image,
		emitter:     newEmitter(image),
		segsPerTurn: defaultSegsPerTurn,
	}
}

func (ip *Interpreter) warn(kind Kind, format string, args ...any) {
	ip.image.warn(kind, ip.scanner.Line(), format, args...)
}

func (ip *Interpreter) skipToStar() {
	ip.scanner.ReadBlockUntil()
}

// Run drives the main block loop until EOF or an M00/M02 end-of-program
// marker. It returns a non-nil error only for a fatal condition (file
// truncated inside an %AM block or before the closing '%' of any other
// extended command, or an extended-command code that is not two letters) —
// every other malformed construct becomes
// a warning Message and parsing continues, per spec.md §4.5 "Failure
// semantics".
func (ip *Interpreter) Run() error {
	for !ip.done {
		ip.scanner.SkipWhitespace()
		if ip.scanner.AtEOF() {
			return nil
		}
		c, ok := ip.scanner.PeekChar()
		if !ok {
			return nil
		}
		switch {
		case c == '%':
			ip.scanner.ConsumeChar()
			if err := ip.handleExtendedCommand(); err != nil {
				return err
			}
		case c == '*':
			ip.scanner.ConsumeChar()
		case c == 'G':
			ip.scanner.ConsumeChar()
			n, err := ip.scanner.ReadInt(false)
			if err != nil {
				ip.warn(KindSyntactic, "malformed G-code: %v", err)
				ip.skipToStar()
				continue
			}
			ip.handleGCode(n)
		case c == 'D':
			ip.scanner.ConsumeChar()
			n, err := ip.scanner.ReadInt(false)
			if err != nil {
				ip.warn(KindSyntactic, "malformed D-code: %v", err)
				ip.skipToStar()
				continue
			}
			ip.handleDCode(n)
		case c == 'X' || c == 'Y' || c == 'I' || c == 'J':
			cf, err := parseCoordinateBlock(ip.scanner, ip.image.Context)
			if err != nil {
				ip.warn(KindSyntactic, "malformed coordinate block: %v", err)
				ip.skipToStar()
				continue
			}
			ip.pendingCoord = cf
		case c == 'M':
			ip.scanner.ConsumeChar()
			n, _ := ip.scanner.ReadInt(false)
			if n == 0 || n == 2 {
				ip.done = true
			}
			ip.skipToStar()
		default:
			ip.scanner.ConsumeChar()
		}
	}
	return nil
}

// handleGCode applies the effect table of spec.md §4.5.
func (ip *Interpreter) handleGCode(n int) {
	ctx := ip.image.Context
	switch n {
	case 1:
		ctx.Interpolation = InterpLinear
	case 2:
		ctx.Interpolation = InterpArcCW
	case 3:
		ctx.Interpolation = InterpArcCCW
	case 4:
		ip.skipToStar() // comment, rest of block discarded
	case 10, 11, 12:
		// Non-standard linear scale modes. spec.md §9 DESIGN NOTES: treat as
		// aliases for linear x1 with a logged warning, matching observed
		// behavior rather than exercising the (rarely used) scale table.
		ctx.Interpolation = InterpLinear
		ip.warn(KindSemantic, "G%02d non-standard linear interpolation treated as G01", n)
	case 36:
		ctx.PolygonRegion = true
		ip.regionVertices = nil
	case 37:
		ip.closeRegion()
	case 54:
		// "select tool" — legacy, equivalent to a bare Dn that follows.
	case 55:
		// "photo mode" — no-op, one flash follows (spec.md §9 Open Question 2).
	case 70:
		ctx.Units = UnitsInch
	case 71:
		ctx.Units = UnitsMM
	case 74:
		ctx.QuadrantMode = QuadrantSingle
		ctx.Interpolation = InterpLinear
	case 75:
		ctx.QuadrantMode = QuadrantMulti
	case 90:
		ctx.Format.Incremental = false
	case 91:
		ctx.Format.Incremental = true
	default:
		ip.warn(KindSyntactic, "unknown G-code G%02d ignored", n)
	}
}

// handleDCode applies the effect table of spec.md §4.5's "D-code effects".
func (ip *Interpreter) handleDCode(n int) {
	ctx := ip.image.Context
	cf := ip.pendingCoord
	ip.pendingCoord = CoordField{}
	pos, ij := resolvePosition(ctx, cf)

	switch {
	case n >= 10:
		ap := ip.image.Apertures.GetOrCreate(n, true)
		if ap == nil {
			ip.warn(KindSemantic, "D%d out of range, cannot select", n)
			return
		}
		ctx.CurrentAperture = n
		ap.InUse = true

	case n == 1:
		ap := ip.image.Apertures.Get(ctx.CurrentAperture)
		if ctx.PolygonRegion {
			ip.appendRegionVertex(ctx, pos, ij)
		} else if ap == nil {
			ip.warn(KindSemantic, "D01 with no aperture selected, draw skipped")
		} else {
			ip.emitDraw(ctx, ap, ctx.PreviousPos, pos, ij)
		}
		ctx.CurrentPos = pos
		ctx.PreviousPos = pos
		ctx.ExposureOn = true

	case n == 2:
		if ctx.PolygonRegion && len(ip.regionVertices) == 0 {
			ip.regionVertices = append(ip.regionVertices, pos)
		}
		ctx.CurrentPos = pos
		ctx.PreviousPos = pos
		ctx.ExposureOn = false

	case n == 3:
		ap := ip.image.Apertures.Get(ctx.CurrentAperture)
		if ap == nil {
			ip.warn(KindSemantic, "D03 flash with no aperture selected, skipped")
		} else {
			ip.emitter.EmitFlash(pos, ctx.CurrentAperture, shapeTagFor(ap), ctx.LayerName, ctx.Polarity(), ctx.Units == UnitsMM)
		}
		ctx.CurrentPos = pos
		ctx.PreviousPos = pos

	case n >= 4 && n <= 9:
		ip.warn(KindSyntactic, "reserved D-code D%02d ignored", n)

	default:
		ip.warn(KindSyntactic, "D-code out of range: D%d", n)
	}
}

func (ip *Interpreter) emitDraw(ctx *ImageContext, ap *Aperture, start, end, ij Point) {
	width := ap.Size.X
	if ctx.Interpolation == InterpArcCW || ctx.Interpolation == InterpArcCCW {
		center := resolveArcCenter(ctx, start, end, ij)
		cw := ctx.Interpolation == InterpArcCW
		if ctx.QuadrantMode == QuadrantMulti && start == end && ij != (Point{}) {
			radius := int64(math.Hypot(float64(ij.X), float64(ij.Y)))
			ip.emitter.EmitCircle(center, radius, width, ctx.LayerName, ctx.CurrentAperture, ctx.Polarity(), ctx.Units == UnitsMM)
			return
		}
		ip.emitter.EmitArc(start, end, center, width, cw, ctx.QuadrantMode == QuadrantMulti, ctx.LayerName, ctx.CurrentAperture, ctx.Polarity(), ctx.Units == UnitsMM)
		return
	}
	ip.emitter.EmitSegment(start, end, width, ctx.LayerName, ctx.CurrentAperture, ctx.Polarity(), ctx.Units == UnitsMM)
}

func (ip *Interpreter) appendRegionVertex(ctx *ImageContext, pos, ij Point) {
	if len(ip.regionVertices) == 0 {
		ip.regionVertices = append(ip.regionVertices, ctx.PreviousPos)
	}
	if ctx.Interpolation == InterpArcCW || ctx.Interpolation == InterpArcCCW {
		center := resolveArcCenter(ctx, ctx.PreviousPos, pos, ij)
		pts := arcPoints(ctx.PreviousPos, pos, center, ctx.Interpolation == InterpArcCW, ctx.QuadrantMode == QuadrantMulti, ip.segsPerTurn)
		ip.regionVertices = append(ip.regionVertices, pts...)
		return
	}
	ip.regionVertices = append(ip.regionVertices, pos)
}

func (ip *Interpreter) closeRegion() {
	ctx := ip.image.Context
	if !ctx.PolygonRegion {
		ip.warn(KindSemantic, "G37 without matching G36 ignored")
		return
	}
	if len(ip.regionVertices) > 0 {
		ip.emitter.EmitRegion(ip.regionVertices, ctx.LayerName, ctx.Polarity(), ctx.Units == UnitsMM)
	}
	ctx.PolygonRegion = false
	ip.regionVertices = nil
}

// resolveArcCenter computes the arc center from the I/J reading per
// spec.md §4.5 "Arc semantics": in multi-quadrant mode I/J are signed
// offsets from start to center; in single-quadrant mode I/J are unsigned
// magnitudes whose signs are recovered by picking the sign combination that
// makes start and end equidistant from the candidate center (the classic
// four-quadrant sign table), since the arc must lie within one quadrant.
func resolveArcCenter(ctx *ImageContext, start, end, ij Point) Point {
	if ctx.QuadrantMode == QuadrantMulti {
		return start.Add(ij)
	}
	absI, absJ := abs64(ij.X), abs64(ij.Y)
	signs := [4][2]int64{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	best := Point{start.X + absI, start.Y + absJ}
	bestDiff := int64(math.MaxInt64)
	for _, s := range signs {
		cand := Point{start.X + s[0]*absI, start.Y + s[1]*absJ}
		d1 := distSq(cand, start)
		d2 := distSq(cand, end)
		diff := abs64(d1 - d2)
		if diff < bestDiff {
			bestDiff = diff
			best = cand
		}
	}
	return best
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func distSq(a, b Point) int64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// arcPoints flattens the arc from start to end around center into a slice
// of intermediate points (excluding start, including end), stepping at
// roughly segsPerTurn points per full revolution.
func arcPoints(start, end, center Point, cw, multi bool, segsPerTurn int) []Point {
	radius := math.Hypot(float64(start.X-center.X), float64(start.Y-center.Y))
	startAngle := math.Atan2(float64(start.Y-center.Y), float64(start.X-center.X))
	endAngle := math.Atan2(float64(end.Y-center.Y), float64(end.X-center.X))
	sweep := endAngle - startAngle
	if cw {
		for sweep > 0 {
			sweep -= 2 * math.Pi
		}
	} else {
		for sweep < 0 {
			sweep += 2 * math.Pi
		}
	}
	if sweep == 0 && multi {
		// start==end: treat as a full circle.
		if cw {
			sweep = -2 * math.Pi
		} else {
			sweep = 2 * math.Pi
		}
	}
	steps := int(math.Round(float64(segsPerTurn) * math.Abs(sweep) / (2 * math.Pi)))
	if steps < 1 {
		steps = 1
	}
	pts := make([]Point, 0, steps)
	for i := 1; i <= steps; i++ {
		a := startAngle + sweep*float64(i)/float64(steps)
		pts = append(pts, Point{
			X: center.X + int64(radius*math.Cos(a)),
			Y: center.Y + int64(radius*math.Sin(a)),
		})
	}
	pts[len(pts)-1] = end
	return pts
}

// --- Extended commands (RS-274X), spec.md §6.1 ---

func (ip *Interpreter) handleExtendedCommand() error {
	code, err := ip.scanner.ReadXCommand()
	if err != nil {
		return newFatalError(ip.image, err, "reading extended command code")
	}

	switch code {
	case "AM":
		return ip.handleAM()
	case "FS":
		ip.handleFS()
	case "MO":
		ip.handleMO()
	case "AD":
		ip.handleAD()
	case "OF":
		ip.handleOF()
	case "IN":
		s, _ := ip.scanner.ReadBlockUntil()
		ip.image.Context.Name = s
	case "IP":
		s, _ := ip.scanner.ReadBlockUntil()
		ip.image.Context.ImageNegative = strings.Contains(s, "NEG")
	case "IR":
		s, _ := ip.scanner.ReadBlockUntil()
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			ip.image.Context.RotationTenths = v * 10
		} else {
			ip.warn(KindSyntactic, "malformed IR value %q", s)
		}
	case "IO":
		ip.handleIO()
	case "IJ":
		ip.handleIJ()
	case "MI":
		ip.handleMI()
	case "AS":
		s, _ := ip.scanner.ReadBlockUntil()
		ip.image.Context.SwapAxes = strings.EqualFold(strings.TrimSpace(s), "AYBX")
	case "SF":
		ip.handleSF()
	case "LN":
		s, _ := ip.scanner.ReadBlockUntil()
		ip.image.Context.LayerName = s
	case "LP":
		s, _ := ip.scanner.ReadBlockUntil()
		ip.image.Context.LayerNegative = strings.HasPrefix(strings.TrimSpace(s), "C")
	case "IF":
		// The closing '%' must be consumed from the including file before
		// PushInclude switches the scanner's top-of-stack, or it would be
		// read from the included file instead (and swallow its own leading
		// '%' of its first extended command).
		s, _ := ip.scanner.ReadBlockUntil()
		if err := ip.expectCloseExtended(); err != nil {
			return err
		}
		if err := ip.scanner.PushInclude(strings.TrimSpace(s)); err != nil {
			ip.warn(KindIO, "include %q: %v", s, err)
		}
		return nil
	case "KO", "SR", "RO", "PM":
		s, _ := ip.scanner.ReadBlockUntil()
		ip.warn(KindSemantic, "%s ignored: %s", code, s)
	default:
		s, _ := ip.scanner.ReadBlockUntil()
		ip.warn(KindSyntactic, "unknown extended command %%%s%s ignored", code, s)
	}

	return ip.expectCloseExtended()
}

// expectCloseExtended consumes the '%' that closes an extended command,
// resyncing by skipping ahead if a handler left the scanner short of it.
func (ip *Interpreter) expectCloseExtended() error {
	for {
		c, ok := ip.scanner.ConsumeChar()
		if !ok {
			return newFatalError(ip.image, ErrUnexpectedEOF, "closing extended command")
		}
		if c == '%' {
			return nil
		}
	}
}

func (ip *Interpreter) handleFS() {
	s, _ := ip.scanner.ReadBlockUntil()
	ctx := ip.image.Context
	if len(s) < 2 {
		ip.warn(KindSyntactic, "malformed FS command %q", s)
		return
	}
	switch s[0] {
	case 'L':
		ctx.Format.ZeroOmission = OmitLeading
	case 'T':
		ctx.Format.ZeroOmission = OmitTrailing
	default:
		ip.warn(KindSyntactic, "unknown FS zero-omission flag %q", s[0])
	}
	switch s[1] {
	case 'A':
		ctx.Format.Incremental = false
	case 'I':
		ctx.Format.Incremental = true
	default:
		ip.warn(KindSyntactic, "unknown FS coordinate mode flag %q", s[1])
	}
	i := 2
	for i < len(s) {
		switch s[i] {
		case 'N':
			i++
			start := i
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				i++
			}
			if n, err := strconv.Atoi(s[start:i]); err == nil {
				ctx.Format.SeqNumDigits = n
			}
		case 'X':
			i++
			if i+1 < len(s) {
				ctx.Format.X = AxisFormat{IntDigits: int(s[i] - '0'), FracDigits: int(s[i+1] - '0')}
				i += 2
			}
		case 'Y':
			i++
			if i+1 < len(s) {
				ctx.Format.Y = AxisFormat{IntDigits: int(s[i] - '0'), FracDigits: int(s[i+1] - '0')}
				i += 2
			}
		default:
			i++
		}
	}
	ctx.Format.set = true
}

func (ip *Interpreter) handleMO() {
	s, _ := ip.scanner.ReadBlockUntil()
	if strings.Contains(s, "MM") {
		ip.image.Context.Units = UnitsMM
	} else if strings.Contains(s, "IN") {
		ip.image.Context.Units = UnitsInch
	} else {
		ip.warn(KindSyntactic, "malformed MO value %q", s)
	}
}

func splitActuals(s string) []float64 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "X")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err == nil {
			out = append(out, v)
		}
	}
	return out
}

func (ip *Interpreter) handleAD() {
	c, ok := ip.scanner.ConsumeChar()
	if !ok || c != 'D' {
		ip.warn(KindSyntactic, "malformed AD command, expected D")
		ip.skipToStar()
		return
	}
	dcode, err := ip.scanner.ReadInt(false)
	if err != nil {
		ip.warn(KindSyntactic, "malformed AD D-code: %v", err)
		ip.skipToStar()
		return
	}
	rest, _ := ip.scanner.ReadBlockUntil()
	nameAndParams := strings.SplitN(rest, ",", 2)
	name := nameAndParams[0]
	paramStr := ""
	if len(nameAndParams) > 1 {
		paramStr = nameAndParams[1]
	}
	mods := splitActuals(paramStr)

	if dcode >= 1000 {
		ip.warn(KindSemantic, "AD D%d out of range, definition dropped", dcode)
		return
	}

	a := &Aperture{DCode: dcode}
	units := ip.image.Context.Units
	switch name {
	case "C":
		a.Shape = ShapeCircle
		a.Size.X = modToInternal(mods, 0, units)
		a.Size.Y = a.Size.X
		if len(mods) > 1 {
			a.Drill.X = modToInternal(mods, 1, units)
			a.Drill.Y = a.Drill.X
			a.DrillShape = DrillRound
		}
	case "R":
		a.Shape = ShapeRect
		a.Size.X = modToInternal(mods, 0, units)
		a.Size.Y = modToInternal(mods, 1, units)
		if len(mods) > 3 {
			a.Drill.X = modToInternal(mods, 2, units)
			a.Drill.Y = modToInternal(mods, 3, units)
			a.DrillShape = DrillRect
		} else if len(mods) > 2 {
			a.Drill.X = modToInternal(mods, 2, units)
			a.Drill.Y = a.Drill.X
			a.DrillShape = DrillRound
		}
	case "O":
		a.Shape = ShapeOval
		a.Size.X = modToInternal(mods, 0, units)
		a.Size.Y = modToInternal(mods, 1, units)
		if len(mods) > 2 {
			a.Drill.X = modToInternal(mods, 2, units)
			a.Drill.Y = a.Drill.X
			a.DrillShape = DrillRound
		}
	case "P":
		a.Shape = ShapePolygon
		a.Size.X = modToInternal(mods, 0, units)
		a.Size.Y = a.Size.X
		if len(mods) > 1 {
			a.EdgeCount = int(mods[1])
		}
		if len(mods) > 2 {
			a.Rotation = int(mods[2] * 10)
		}
		if len(mods) > 3 {
			a.Drill.X = modToInternal(mods, 3, units)
			a.Drill.Y = a.Drill.X
			a.DrillShape = DrillRound
		}
	default:
		a.Shape = ShapeMacro
		a.MacroName = name
		a.Actuals = mods
	}

	if !ip.image.Apertures.Define(a) {
		ip.warn(KindSemantic, "AD D%d out of range, definition dropped", dcode)
	}
}

func modToInternal(mods []float64, idx int, units Units) int64 {
	if idx >= len(mods) {
		return 0
	}
	return units.ToInternal(mods[idx])
}

func (ip *Interpreter) handleAM() error {
	name, _ := ip.scanner.ReadBlockUntil()
	name = strings.TrimSpace(name)

	var lines []string
	for {
		ip.scanner.SkipWhitespace()
		c, ok := ip.scanner.PeekChar()
		if !ok {
			return newFatalError(ip.image, ErrUnexpectedEOF, "truncated aperture macro "+name)
		}
		if c == '%' {
			ip.scanner.ConsumeChar()
			break
		}
		line, sawStar := ip.scanner.ReadBlockUntil()
		if !sawStar {
			return newFatalError(ip.image, ErrUnexpectedEOF, "truncated aperture macro "+name)
		}
		lines = append(lines, line)
	}

	unitsMetric := ip.image.Context.Units == UnitsMM
	prims := parseMacroBody(lines, unitsMetric, func(msg string) {
		ip.warn(KindSemantic, "%s", msg)
	})
	ip.image.Macros[name] = &ApertureMacro{Name: name, Primitives: prims}
	return nil
}

func (ip *Interpreter) handleOF() {
	s, _ := ip.scanner.ReadBlockUntil()
	vals := parseLetterFloats(s)
	ip.image.Context.OffsetA = vals['A']
	ip.image.Context.OffsetB = vals['B']
}

func (ip *Interpreter) handleIO() {
	s, _ := ip.scanner.ReadBlockUntil()
	vals := parseLetterFloats(s)
	units := ip.image.Context.Units
	ip.image.Context.ImageOffsetX = units.ToInternal(vals['A'])
	ip.image.Context.ImageOffsetY = units.ToInternal(vals['B'])
}

func (ip *Interpreter) handleSF() {
	s, _ := ip.scanner.ReadBlockUntil()
	vals := parseLetterFloats(s)
	ip.image.Context.ScaleX = vals['A']
	ip.image.Context.ScaleY = vals['B']
	if ip.image.Context.ScaleX == 0 {
		ip.image.Context.ScaleX = 1
	}
	if ip.image.Context.ScaleY == 0 {
		ip.image.Context.ScaleY = 1
	}
}

func (ip *Interpreter) handleMI() {
	s, _ := ip.scanner.ReadBlockUntil()
	vals := parseLetterFloats(s)
	ip.image.Context.MirrorA = vals['A'] != 0
	ip.image.Context.MirrorB = vals['B'] != 0
}

func (ip *Interpreter) handleIJ() {
	s, _ := ip.scanner.ReadBlockUntil()
	j := &ip.image.Context.ImageJustify
	i := 0
	for i < len(s) {
		letter := s[i]
		if letter != 'A' && letter != 'B' {
			i++
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		mode := string(s[i])
		i++
		start := i
		for i < len(s) && (s[i] == '+' || s[i] == '-' || s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
			i++
		}
		var off float64
		if start < i {
			off, _ = strconv.ParseFloat(s[start:i], 64)
		}
		if letter == 'A' {
			j.JustifyA, j.OffsetA = mode, off
		} else {
			j.JustifyB, j.OffsetB = mode, off
		}
	}
}

// parseLetterFloats scans a string of `<letter><signed-decimal>` pairs (as
// used by OF, IO, SF) into a map keyed by letter.
func parseLetterFloats(s string) map[byte]float64 {
	out := map[byte]float64{}
	i := 0
	for i < len(s) {
		letter := s[i]
		i++
		start := i
		for i < len(s) && (s[i] == '+' || s[i] == '-' || s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
			i++
		}
		if start < i {
			if v, err := strconv.ParseFloat(s[start:i], 64); err == nil {
				out[letter] = v
			}
		}
	}
	return out
}
