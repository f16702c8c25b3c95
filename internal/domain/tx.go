// Package domain defines the persisted row types shared by every pipeline
// stage. All timestamps are UTC instants; prices and amounts are quote/base
// quantities as inferred by the parsers.
package domain

import (
	"encoding/json"
	"time"
)

// TxStatus is the lifecycle state of a queued signature.
type TxStatus string

const (
	TxQueued    TxStatus = "queued"
	TxResolving TxStatus = "resolving"
	TxResolved  TxStatus = "resolved"
	TxError     TxStatus = "error"
)

// MaxResolveRetries is the per-signature retry budget before a queue row is
// moved to the error state.
const MaxResolveRetries = 5

// QueuedSignature is one row of tx_queue: a transaction signature observed on
// the log feed, waiting to be resolved into a full payload.
type QueuedSignature struct {
	Signature  string
	ProgramID  *string
	Slot       int64
	Status     TxStatus
	Retries    int
	LastError  *string
	EnqueuedAt time.Time
}

// RawTransaction is one row of tx_raw: the verbatim getTransaction payload.
type RawTransaction struct {
	Signature string
	Slot      int64
	Payload   json.RawMessage
}

// ParserKind identifies which parser marked a signature as processed.
type ParserKind string

const (
	ParserSwap      ParserKind = "swap"
	ParserLP        ParserKind = "lp"
	ParserAuthority ParserKind = "auth"
)

// ParsedSignature is the per-signature parsing watermark. A parser sets its
// flag even when it emits nothing, so a signature is never revisited.
type ParsedSignature struct {
	Signature string
	HasSwap   bool
	HasLP     bool
	HasAuth   bool
}
