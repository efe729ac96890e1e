package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"market_dashboard/models"
	"market_dashboard/utils"
)

var (
	ErrSubscriptionRejected = errors.New("subscription rejected")
	ErrUnexpectedMessage    = errors.New("unexpected stream message")
)

// MiniTicker is one element of the !miniTicker@arr stream payload.
// Both "e" and "E" are declared so the decoder matches them exactly. Values are
// left loosely typed so one odd field degrades to 0 instead of failing the batch.
type MiniTicker struct {
	EventType   json.RawMessage `json:"e"`
	EventTime   interface{}     `json:"E"`
	Symbol      interface{}     `json:"s"`
	Close       interface{}     `json:"c"`
	Open        interface{}     `json:"o"`
	High        interface{}     `json:"h"`
	Low         interface{}     `json:"l"`
	Volume      interface{}     `json:"v"`
	QuoteVolume interface{}     `json:"q"`
}

// controlReply is the exchange's answer to a SUBSCRIBE request.
type controlReply struct {
	Result json.RawMessage `json:"result"`
	ID     *int64          `json:"id"`
	Error  *struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error"`
}

// ParseMiniTickers decodes one stream message. A subscription acknowledgement
// yields no snapshots and no error. Entries without a symbol are skipped;
// non-numeric fields become 0.
func ParseMiniTickers(message []byte) ([]models.TickerSnapshot, error) {
	trimmed := bytes.TrimSpace(message)
	if len(trimmed) == 0 {
		return nil, ErrUnexpectedMessage
	}

	if trimmed[0] == '{' {
		return nil, parseControl(trimmed)
	}

	var raw []MiniTicker
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode ticker batch: %w", err)
	}

	snapshots := make([]models.TickerSnapshot, 0, len(raw))
	for _, t := range raw {
		if t.symbol() == "" {
			continue
		}
		snapshots = append(snapshots, t.Snapshot())
	}
	return snapshots, nil
}

func (t MiniTicker) symbol() string {
	s, _ := t.Symbol.(string)
	return s
}

// Snapshot converts the wire record into a cache value.
func (t MiniTicker) Snapshot() models.TickerSnapshot {
	var eventTime time.Time
	if ms := int64(utils.SafeFloat(t.EventTime)); ms > 0 {
		eventTime = time.UnixMilli(ms)
	}
	return models.NewTickerSnapshot(t.symbol(), t.Open, t.High, t.Low, t.Close, t.Volume, t.QuoteVolume, eventTime)
}

func parseControl(message []byte) error {
	var reply controlReply
	if err := json.Unmarshal(message, &reply); err != nil {
		return fmt.Errorf("decode control message: %w", err)
	}
	if reply.Error != nil {
		return fmt.Errorf("%w: code %d: %s", ErrSubscriptionRejected, reply.Error.Code, reply.Error.Msg)
	}
	if reply.ID != nil {
		return nil
	}
	return ErrUnexpectedMessage
}
