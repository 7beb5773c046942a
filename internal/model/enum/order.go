package enum

// OrderType defines how an order triggers.
type OrderType uint8

const (
	_order_type_beg OrderType = iota
	OrderTypeMarket
	OrderTypeLimit
	OrderTypeStop
	OrderTypeStopLimit
	_order_type_end
)

func (t OrderType) IsAvailable() bool {
	return t > _order_type_beg && t < _order_type_end
}

// RequiresPrice reports whether the type needs a trigger price.
func (t OrderType) RequiresPrice() bool {
	return t != OrderTypeMarket
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "Market"
	case OrderTypeLimit:
		return "Limit"
	case OrderTypeStop:
		return "Stop"
	case OrderTypeStopLimit:
		return "StopLimit"
	default:
		return "Unknown"
	}
}

// Instruction defines how a request expands into orders.
type Instruction uint8

const (
	_instruction_beg Instruction = iota
	InstructionSide
	InstructionBrace
	InstructionGroup
	_instruction_end
)

func (i Instruction) IsAvailable() bool {
	return i > _instruction_beg && i < _instruction_end
}

func (i Instruction) String() string {
	switch i {
	case InstructionSide:
		return "Side"
	case InstructionBrace:
		return "Brace"
	case InstructionGroup:
		return "Group"
	default:
		return "Unknown"
	}
}

// TimeInForce defines how long an order stays live.
type TimeInForce uint8

const (
	_tif_beg TimeInForce = iota
	TimeInForceGTC
	TimeInForceDay
	_tif_end
)

func (t TimeInForce) IsAvailable() bool {
	return t > _tif_beg && t < _tif_end
}

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceGTC:
		return "GTC"
	case TimeInForceDay:
		return "Day"
	default:
		return "Unknown"
	}
}

// Status is the lifecycle stage of an order record.
type Status uint8

const (
	_status_beg Status = iota
	StatusPending
	StatusPosition
	StatusTransaction
	_status_end
)

func (s Status) IsAvailable() bool {
	return s > _status_beg && s < _status_end
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusPosition:
		return "Position"
	case StatusTransaction:
		return "Transaction"
	default:
		return "Unknown"
	}
}
