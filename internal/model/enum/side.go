package enum

// Side is the direction of an order or position.
type Side uint8

const (
	_side_beg Side = iota
	SideLong
	SideShort
	_side_end
)

func (s Side) IsAvailable() bool {
	return s > _side_beg && s < _side_end
}

// Opposite returns the other direction.
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	default:
		return s
	}
}

// Direction returns +1 for long, -1 for short.
func (s Side) Direction() int64 {
	if s == SideShort {
		return -1
	}
	return 1
}

func (s Side) String() string {
	switch s {
	case SideLong:
		return "Long"
	case SideShort:
		return "Short"
	default:
		return "Unknown"
	}
}
