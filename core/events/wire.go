package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Wire errors.
var (
	ErrUnsupportedVersion = errors.New("unsupported event version")
	ErrInvalidPayload     = errors.New("invalid event payload")
)

// Envelope is the JSON form of an event crossing a process boundary.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

type transferSuccessOut struct {
	Amount        json.Number `json:"amount"`
	Timestamp     time.Time   `json:"timestamp"`
	TransactionID string      `json:"transactionId"`
}

type transferSuccessIn struct {
	Amount        *decimal.Decimal `json:"amount"`
	Timestamp     time.Time        `json:"timestamp"`
	TransactionID string           `json:"transactionId"`
}

// Encode renders payload as an envelope.
func Encode(payload Payload) ([]byte, error) {
	var body any
	switch p := payload.(type) {
	case TransferSuccess:
		body = transferSuccessOut{
			Amount:        json.Number(p.Amount.String()),
			Timestamp:     p.Timestamp.UTC(),
			TransactionID: p.TransactionID,
		}
	case nil:
		return nil, ErrNilPayload
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, payload.Kind())
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(Envelope{Kind: payload.Kind(), Version: payload.Version(), Payload: raw})
}

// Decode parses an envelope into its typed payload.
func Decode(data []byte) (Payload, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !Known(env.Kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
	if env.Version != CurrentVersion(env.Kind) {
		return nil, fmt.Errorf("%w: %s v%d", ErrUnsupportedVersion, env.Kind, env.Version)
	}

	switch env.Kind {
	case KindTransferSuccess:
		var in transferSuccessIn
		if err := json.Unmarshal(env.Payload, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if in.Amount == nil {
			return nil, fmt.Errorf("%w: amount is required", ErrInvalidPayload)
		}
		if in.TransactionID == "" {
			return nil, fmt.Errorf("%w: transactionId is required", ErrInvalidPayload)
		}
		return TransferSuccess{
			Amount:        *in.Amount,
			Timestamp:     in.Timestamp,
			TransactionID: in.TransactionID,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
}
