package prober

// byteClass partitions an incoming byte into the categories the CPR
// validator cares about, per the table-driven design note in spec.md §9.
type byteClass int

const (
	classESC byteClass = iota
	classLBracket
	classDigit
	classSemicolon
	classR
	classOtherControl
	classOtherNonControl
)

// isControl reports whether b is an ASCII control character (the C
// original's ISCONTROL macro: DEL, C0 controls, and C1 controls).
func isControl(b byte) bool {
	return b == 0x7f || b <= 0x1f || (b >= 0x80 && b <= 0x9f)
}

func classify(b byte) byteClass {
	switch {
	case b == 0x1b:
		return classESC
	case b == '[':
		return classLBracket
	case b >= '0' && b <= '9':
		return classDigit
	case b == ';':
		return classSemicolon
	case b == 'R':
		return classR
	case isControl(b):
		return classOtherControl
	default:
		return classOtherNonControl
	}
}

// validatorStep tracks the CPR parser position, 0 through 9, as described
// in spec.md §3 ("ValidatorStep"): 0=ESC, 1=`[`, 2-4=row digits, 5=`;`,
// 6-8=column digits, 9=`R`.
type validatorStep int

// expected returns the byte class accepted at a given step.
func (s validatorStep) expected() byteClass {
	switch s {
	case 0:
		return classESC
	case 1:
		return classLBracket
	case 2, 3, 4:
		return classDigit
	case 5:
		return classSemicolon
	case 6, 7, 8:
		return classDigit
	case 9:
		return classR
	default:
		return classOtherNonControl // unreachable
	}
}

// shortFieldAdvance implements the "step += step%2 + 1" shortcut from
// spec.md §4.1: when a `;` arrives while still in the row-digit field (step
// 3 or 4) or an `R` arrives while still in the column-digit field (step 7 or
// 8), the parser treats the field as having ended early and jumps directly
// to the next field's first position instead of rejecting the byte.
func shortFieldAdvance(step validatorStep, b byte) validatorStep {
	if b == ';' && (step == 3 || step == 4) {
		return step + validatorStep(int(step)%2+1)
	}
	if b == 'R' && (step == 7 || step == 8) {
		return step + validatorStep(int(step)%2+1)
	}
	return step
}

// feed advances the validator by one non-control byte (ESC included).
// It returns the resulting step, whether b was valid at that position, and
// whether the sequence is now complete (step reached 9 on a valid 'R').
func feed(step validatorStep, b byte) (next validatorStep, valid bool, complete bool) {
	step = shortFieldAdvance(step, b)

	class := classify(b)
	expected := step.expected()

	// classESC/classLBracket/classSemicolon/classR are each a single
	// concrete byte value, already guaranteed by classify(); classDigit
	// covers any of '0'-'9'.
	valid = class == expected

	if !valid {
		return step, false, false
	}

	if step == 9 {
		return step, true, true
	}

	return step + 1, true, false
}
