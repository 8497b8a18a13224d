package entity

type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionAhead Direction = "ahead"
	DirectionRight Direction = "right"
)

var directionPhrases = map[Direction]string{
	DirectionLeft:  "to your left",
	DirectionAhead: "ahead",
	DirectionRight: "to your right",
}

func (d Direction) String() string {
	return string(d)
}

// Phrase is the spoken form of the direction.
func (d Direction) Phrase() string {
	if p, ok := directionPhrases[d]; ok {
		return p
	}
	return string(d)
}

type FrameResult struct {
	Class      string
	Confidence float64
	Distance   float64
	Direction  Direction
	BBox       [4]int
}
