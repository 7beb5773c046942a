package schema

// SchemaVersion is the current event schema version.
const SchemaVersion uint16 = 1

// EventType defines the category of an event carried on the bus and in
// the tick journal.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventTick
	EventPoint
	EventOrderRequest
	EventOrderFill
	EventTransaction
	EventPositionUpdate
	EventOrderUpdate
)

func (t EventType) String() string {
	switch t {
	case EventTick:
		return "Tick"
	case EventPoint:
		return "Point"
	case EventOrderRequest:
		return "OrderRequest"
	case EventOrderFill:
		return "OrderFill"
	case EventTransaction:
		return "Transaction"
	case EventPositionUpdate:
		return "PositionUpdate"
	case EventOrderUpdate:
		return "OrderUpdate"
	default:
		return "Unknown"
	}
}

// EventHeader is the common metadata attached to every event.
type EventHeader struct {
	Type    EventType
	Version uint16
	Seq     uint64
	TsEvent int64
	TsRecv  int64
}

// NewHeader builds a header with the current schema version.
func NewHeader(eventType EventType, seq uint64, tsEvent, tsRecv int64) EventHeader {
	return EventHeader{
		Type:    eventType,
		Version: SchemaVersion,
		Seq:     seq,
		TsEvent: tsEvent,
		TsRecv:  tsRecv,
	}
}
