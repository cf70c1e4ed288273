package ir

// Reserved signature ids.
const (
	// SidNone marks "no signature" (lookup miss).
	SidNone uint32 = 0

	// SidZero is the signature of the constant false. No placeholders.
	SidZero uint32 = 1

	// SidSelf is the signature of a group used as an opaque endpoint, and of
	// group headers and entry points. One placeholder.
	SidSelf uint32 = 2

	// SidFirst is the first signature id that describes an operator shape.
	SidFirst uint32 = 3
)

// MaxPlaceholders is the largest placeholder count of any signature the
// reference database describes.
const MaxPlaceholders = 5

// Signature describes a canonical shape: a small fixed pattern of operators
// over named placeholders.
type Signature struct {
	// ID is the signature id.
	ID uint32

	// Name is the postfix pattern, placeholders in first-seen order.
	// Examples: "ab+", "abc!", "ab^c&".
	Name string

	// NumPlaceholder is the number of distinct placeholders.
	NumPlaceholder int

	// Size is the number of operator nodes in the pattern.
	Size int

	// Table is the truth table of the pattern over its placeholders.
	// Bit x holds the value for the assignment where placeholder i
	// takes bit i of x.
	Table uint32

	// SwapRules lists the placeholder permutations that leave the function
	// unchanged (the identity excluded). Applying any rule to a slot vector
	// yields an equivalent node; the lexicographically smallest result is
	// canonical.
	SwapRules [][]uint8
}

// PatternResult is the outcome of a two-stage pattern lookup.
type PatternResult struct {
	// Sid is the signature of the whole triple. SidZero means the triple is
	// constant false; SidSelf means it equals a single endpoint.
	Sid uint32

	// Extract is the transform id selecting, for every placeholder of Sid,
	// the merged endpoint position that feeds it.
	Extract uint32

	// Power is the size reduction against the naive composition.
	Power uint32
}

// Form is one of the six canonical level-2 shapes of "Q ? T : F".
type Form uint8

const (
	// FormNone marks a triple that folded away.
	FormNone Form = iota
	// FormOR is "Q ? !0 : F".
	FormOR
	// FormGT is "Q ? !T : 0".
	FormGT
	// FormNE is "Q ? !F : F".
	FormNE
	// FormAND is "Q ? T : 0".
	FormAND
	// FormQnTF is "Q ? !T : F".
	FormQnTF
	// FormQTF is "Q ? T : F".
	FormQTF
)

var formOps = [...]byte{FormNone: 0, FormOR: '+', FormGT: '>', FormNE: '^', FormAND: '&', FormQnTF: '!', FormQTF: '?'}

// Op returns the postfix operator character of the form.
func (f Form) Op() byte {
	return formOps[f]
}

// Arity returns the number of operands the postfix operator consumes.
func (f Form) Arity() int {
	switch f {
	case FormOR, FormGT, FormNE, FormAND:
		return 2
	case FormQnTF, FormQTF:
		return 3
	}
	return 0
}

// String returns the form name.
func (f Form) String() string {
	switch f {
	case FormOR:
		return "OR"
	case FormGT:
		return "GT"
	case FormNE:
		return "NE"
	case FormAND:
		return "AND"
	case FormQnTF:
		return "QnTF"
	case FormQTF:
		return "QTF"
	}
	return "NONE"
}

// FormFromOp maps a postfix operator character to its form.
func FormFromOp(op byte) Form {
	for f, c := range formOps {
		if c != 0 && c == op {
			return Form(f)
		}
	}
	return FormNone
}
