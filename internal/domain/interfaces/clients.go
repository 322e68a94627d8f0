package interfaces

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/solsight/paygate/internal/domain"
)

// LedgerClient is the narrow surface the engine needs from a blockchain RPC
// node. Any conforming client satisfies it; the production implementation
// lives in internal/infrastructure/rpc.
type LedgerClient interface {
	// GetBalance returns the current lamport balance of an address.
	GetBalance(ctx context.Context, address string) (uint64, error)

	// GetRecentIncomingRef returns the most recent transaction signature that
	// touched the address, used as proof of an inbound deposit.
	GetRecentIncomingRef(ctx context.Context, address string) (string, error)

	// EstimateFee returns the network fee in lamports for a transfer of
	// lamports from -> to, computed against the exact prospective message.
	EstimateFee(ctx context.Context, from, to string, lamports uint64) (uint64, error)

	// Transfer signs and submits a transfer of lamports from the custodial
	// key to the destination address, returning the transaction signature.
	Transfer(ctx context.Context, from solana.PrivateKey, to string, lamports uint64) (string, error)

	// Confirm blocks until the signature reaches the configured commitment or
	// the confirmation window elapses.
	Confirm(ctx context.Context, signature string) error
}

// StatusBroadcaster pushes session transitions to connected front-end
// listeners so they need not poll checkPayment.
type StatusBroadcaster interface {
	BroadcastSession(view domain.SessionView)
}
