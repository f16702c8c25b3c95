package solana

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrTransactionNotFound indicates the node returned a null result for a
// signature, either because the transaction is not yet confirmed at the
// requested commitment or has been pruned.
var ErrTransactionNotFound = errors.New("transaction not found")

// RPCClient defines the Solana JSON-RPC HTTP interface the resolver needs.
type RPCClient interface {
	// GetTransactionRaw retrieves a transaction by signature and returns
	// the node's result object verbatim, plus the slot extracted from it.
	// Returns ErrTransactionNotFound on a null result.
	GetTransactionRaw(ctx context.Context, signature string) (*TransactionEnvelope, error)
}

// TransactionEnvelope carries one resolved transaction: the slot and the
// untouched result body. Downstream parsers read the payload directly;
// nothing is decoded here beyond the slot.
type TransactionEnvelope struct {
	Signature string
	Slot      int64
	Payload   json.RawMessage
}
