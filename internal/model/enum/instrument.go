package enum

// InstrumentType classifies a tradable instrument.
type InstrumentType uint8

const (
	_instrument_type_beg InstrumentType = iota
	InstrumentShare
	InstrumentFuture
	InstrumentOption
	InstrumentCoin
	_instrument_type_end
)

func (t InstrumentType) IsAvailable() bool {
	return t > _instrument_type_beg && t < _instrument_type_end
}

func (t InstrumentType) String() string {
	switch t {
	case InstrumentShare:
		return "Share"
	case InstrumentFuture:
		return "Future"
	case InstrumentOption:
		return "Option"
	case InstrumentCoin:
		return "Coin"
	default:
		return "Unknown"
	}
}
