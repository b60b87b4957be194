package domain

// Direction is the sign of the next-day sleep index.
// There is no neutral value: a zero index resolves to DirectionDown.
type Direction int

// Direction constants.
const (
	DirectionDown Direction = -1
	DirectionUp   Direction = 1
)

// DirectionOf maps a numeric sleep index to its direction class.
func DirectionOf(v float64) Direction {
	if v > 0 {
		return DirectionUp
	}
	return DirectionDown
}

// String returns "UP" or "DOWN".
func (d Direction) String() string {
	if d == DirectionUp {
		return "UP"
	}
	return "DOWN"
}
