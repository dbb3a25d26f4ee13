package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind names an event. The set of kinds is closed: only the constants
// below are accepted by the channel and the wire codec.
type Kind string

// Known event kinds.
const (
	KindTransferSuccess Kind = "transfer-success"
)

var knownKinds = map[Kind]int{
	KindTransferSuccess: 1,
}

// Known reports whether kind is part of the closed set.
func Known(kind Kind) bool {
	_, ok := knownKinds[kind]
	return ok
}

// CurrentVersion returns the payload version the host speaks for kind.
func CurrentVersion(kind Kind) int {
	return knownKinds[kind]
}

// Payload is implemented by every event variant.
type Payload interface {
	Kind() Kind
	Version() int
}

// TransferSuccess is announced by a remote once it judges a transfer complete.
type TransferSuccess struct {
	Amount        decimal.Decimal
	Timestamp     time.Time
	TransactionID string
}

// Kind implements Payload.
func (TransferSuccess) Kind() Kind { return KindTransferSuccess }

// Version implements Payload.
func (TransferSuccess) Version() int { return 1 }
