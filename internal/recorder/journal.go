package recorder

import (
	"encoding/json"
	"time"

	"main/internal/model"
	"main/internal/schema"
)

// RecordTick journals an inbound tick. seq is the engine-assigned
// sequence; TsEvent comes from the venue timestamp, TsRecv from receipt.
func (w *Writer) RecordTick(tick model.Tick, seq uint64) error {
	payload, err := json.Marshal(tick)
	if err != nil {
		return err
	}
	header := schema.NewHeader(schema.EventTick, seq, tick.Time.UnixNano(), time.Now().UTC().UnixNano())
	return w.Append(header, payload)
}

// RecordOrder journals an inbound order request for an account.
func (w *Writer) RecordOrder(account string, order model.Order, seq uint64) error {
	payload, err := json.Marshal(orderEnvelope{Account: account, Order: order})
	if err != nil {
		return err
	}
	now := time.Now().UTC().UnixNano()
	header := schema.NewHeader(schema.EventOrderRequest, seq, now, now)
	return w.Append(header, payload)
}

type orderEnvelope struct {
	Account string      `json:"account"`
	Order   model.Order `json:"order"`
}

// DecodeTick parses a journal payload written by RecordTick.
func DecodeTick(payload []byte) (model.Tick, error) {
	var tick model.Tick
	if err := json.Unmarshal(payload, &tick); err != nil {
		return model.Tick{}, err
	}
	return tick, nil
}

// DecodeOrder parses a journal payload written by RecordOrder.
func DecodeOrder(payload []byte) (string, model.Order, error) {
	var env orderEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", model.Order{}, err
	}
	return env.Account, env.Order, nil
}
