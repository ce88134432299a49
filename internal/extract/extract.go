// Package extract recovers video metadata from page markup.
package extract

// Outcome reports whether a strategy wrote anything into the record.
type Outcome int

const (
	Unfilled Outcome = iota
	Filled
)

func (o Outcome) String() string {
	if o == Filled {
		return "filled"
	}
	return "unfilled"
}

func outcomeOf(filled bool) Outcome {
	if filled {
		return Filled
	}
	return Unfilled
}
