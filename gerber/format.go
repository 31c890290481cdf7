package gerber

// Interpolation selects the geometry the next D01 produces.
type Interpolation int

const (
	InterpLinear Interpolation = iota
	InterpLinear10
	InterpLinear01
	InterpLinear001
	InterpArcCW
	InterpArcCCW
)

// QuadrantMode controls how I/J are interpreted for an arc (spec.md §4.5
// "Arc semantics").
type QuadrantMode int

const (
	QuadrantSingle QuadrantMode = iota
	QuadrantMulti
)

// ZeroOmission records which end of an integer-form coordinate literal had
// zeros stripped by the writer, per the FS command's L/T flag.
type ZeroOmission int

const (
	OmitLeading ZeroOmission = iota
	OmitTrailing
)

// AxisFormat is the (integer-digits, fractional-digits) pair for one axis,
// set by the FS command and frozen for every coordinate literal that
// follows until the next FS (there normally is only one FS per file).
type AxisFormat struct {
	IntDigits, FracDigits int
}

func (a AxisFormat) total() int { return a.IntDigits + a.FracDigits }

// Format is the full FS-derived decode context (spec.md §3 "format").
type Format struct {
	X, Y          AxisFormat
	ZeroOmission  ZeroOmission
	Incremental   bool // false = absolute (A), true = incremental (I)
	SeqNumDigits  int  // Nn, parsed and ignored per spec.md §6.1
	set           bool
}

// DefaultFormat matches spec.md §3's documented default of 2/3 both axes,
// absolute coordinates, leading-zero omission.
func DefaultFormat() Format {
	return Format{
		X:            AxisFormat{2, 3},
		Y:            AxisFormat{2, 3},
		ZeroOmission: OmitLeading,
	}
}

// ImageJustify holds the parsed (but per spec.md §6.1, optionally ignored)
// %IJ command: axis justify mode plus the offset used when justify is
// "center".
type ImageJustify struct {
	JustifyA, JustifyB string // "L"(eft)/"C"(enter) or "" if unset
	OffsetA, OffsetB   float64
}

// ImageContext is the per-file/per-layer parser state that persists across
// blocks (spec.md §3). It is mutated in place by the Interpreter and frozen
// (read-only) once parsing finishes.
type ImageContext struct {
	Units  Units
	Format Format

	OffsetA, OffsetB   float64 // OF
	ImageOffsetX       int64   // IO, internal units
	ImageOffsetY       int64

	RotationTenths int // IR, multiple of 90 degrees, stored in tenths of a degree
	FineAngle      int // OR, tenths of a degree

	MirrorA, MirrorB bool // MI
	SwapAxes         bool // AS

	ScaleX, ScaleY float64 // SF

	ImageNegative bool // IP
	LayerNegative bool // LP, may flip repeatedly within one file

	PolygonRegion bool
	QuadrantMode  QuadrantMode
	Interpolation Interpolation

	CurrentPos, PreviousPos Point
	IJ                      Point

	CurrentAperture int // D-code, 0 = none selected
	ExposureOn      bool

	Name, LayerName string

	ImageJustify ImageJustify

	// AbsoluteXYSeen is a per-axis diagnostics flag. The interpreter neither
	// sets nor reads it, so it stays false; an X/Y-less D-code before any
	// coordinate literal silently uses current_pos==(0,0).
	AbsoluteXYSeen [2]bool
}

// NewImageContext returns the state documented as the file's initial
// condition in spec.md §3: inch units, default format, dark/positive
// polarity, linear interpolation, absolute coordinates.
func NewImageContext() *ImageContext {
	return &ImageContext{
		Units:         UnitsInch,
		Format:        DefaultFormat(),
		ScaleX:        1,
		ScaleY:        1,
		LayerNegative: false,
		ImageNegative: false,
	}
}

// Polarity computes layer_negative XOR image_negative at the moment it is
// called — spec.md §3 invariant "a later LP does not retroactively change
// earlier items", so the Interpreter calls this once per emitted DrawItem,
// never reads it back off the item later.
func (ic *ImageContext) Polarity() bool {
	return ic.LayerNegative != ic.ImageNegative
}
