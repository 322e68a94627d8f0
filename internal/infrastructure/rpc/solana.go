package rpc

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/solsight/paygate/pkg/config"
)

// SolanaClient implements interfaces.LedgerClient over a Solana JSON-RPC
// node. Every call runs under the configured per-call timeout.
type SolanaClient struct {
	client          *solrpc.Client
	commitment      solrpc.CommitmentType
	timeout         time.Duration
	confirmTimeout  time.Duration
	confirmInterval time.Duration
	logger          zerolog.Logger
}

func NewSolanaClient(cfg *config.LedgerConfig, logger zerolog.Logger) (*SolanaClient, error) {
	url, err := cfg.RPCURL()
	if err != nil {
		return nil, err
	}

	return &SolanaClient{
		client:          solrpc.New(url),
		commitment:      solrpc.CommitmentType(cfg.Commitment),
		timeout:         cfg.Timeout,
		confirmTimeout:  cfg.ConfirmTimeout,
		confirmInterval: cfg.ConfirmInterval,
		logger:          logger,
	}, nil
}

func (c *SolanaClient) GetBalance(ctx context.Context, address string) (uint64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address %s: %w", address, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.GetBalance(callCtx, pubkey, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch balance: %w", err)
	}

	c.logger.Debug().
		Str("address", address).
		Uint64("lamports", result.Value).
		Msg("Fetched balance")
	return result.Value, nil
}

func (c *SolanaClient) GetRecentIncomingRef(ctx context.Context, address string) (string, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return "", fmt.Errorf("invalid address %s: %w", address, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	signatures, err := c.client.GetSignaturesForAddress(callCtx, pubkey)
	if err != nil {
		return "", fmt.Errorf("failed to fetch signatures: %w", err)
	}

	for _, sig := range signatures {
		if sig.Err != nil {
			continue
		}
		c.logger.Info().
			Str("address", address).
			Str("signature", sig.Signature.String()).
			Msg("Found recent inbound transaction")
		return sig.Signature.String(), nil
	}

	return "", fmt.Errorf("no successful transaction found for address %s", address)
}

func (c *SolanaClient) EstimateFee(ctx context.Context, from, to string, lamports uint64) (uint64, error) {
	fromKey, err := solana.PublicKeyFromBase58(from)
	if err != nil {
		return 0, fmt.Errorf("invalid source address: %w", err)
	}
	toKey, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return 0, fmt.Errorf("invalid destination address: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	latest, err := c.client.GetLatestBlockhash(callCtx, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch blockhash: %w", err)
	}

	// Fee is asked for the exact message shape that Transfer will submit.
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, fromKey, toKey).Build(),
		},
		latest.Value.Blockhash,
		solana.TransactionPayer(fromKey),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to build fee probe transaction: %w", err)
	}

	messageBytes, err := tx.Message.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := c.client.GetFeeForMessage(callCtx, base64.StdEncoding.EncodeToString(messageBytes), c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate fee: %w", err)
	}
	if result.Value == nil {
		return 0, fmt.Errorf("fee estimate unavailable for message")
	}

	c.logger.Debug().
		Str("from", from).
		Str("to", to).
		Uint64("lamports", lamports).
		Uint64("fee", *result.Value).
		Msg("Estimated transfer fee")
	return *result.Value, nil
}

func (c *SolanaClient) Transfer(ctx context.Context, from solana.PrivateKey, to string, lamports uint64) (string, error) {
	toKey, err := solana.PublicKeyFromBase58(to)
	if err != nil {
		return "", fmt.Errorf("invalid destination address: %w", err)
	}
	fromKey := from.PublicKey()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	latest, err := c.client.GetLatestBlockhash(callCtx, c.commitment)
	if err != nil {
		return "", fmt.Errorf("failed to fetch blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, fromKey, toKey).Build(),
		},
		latest.Value.Blockhash,
		solana.TransactionPayer(fromKey),
	)
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(fromKey) {
			return &from
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	signature, err := c.client.SendTransactionWithOpts(callCtx, tx, solrpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return "", fmt.Errorf("failed to submit transaction: %w", err)
	}

	c.logger.Info().
		Str("from", fromKey.String()).
		Str("to", to).
		Uint64("lamports", lamports).
		Str("signature", signature.String()).
		Msg("Submitted transfer")
	return signature.String(), nil
}

// Confirm polls signature status until the configured commitment is reached.
// A transaction that never confirms surfaces as an error once the confirm
// window elapses instead of hanging the caller.
func (c *SolanaClient) Confirm(ctx context.Context, signature string) error {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return fmt.Errorf("invalid signature %s: %w", signature, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for {
		result, err := c.client.GetSignatureStatuses(waitCtx, true, sig)
		if err == nil && len(result.Value) > 0 && result.Value[0] != nil {
			status := result.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed on chain: %v", signature, status.Err)
			}
			if c.reached(status.ConfirmationStatus) {
				c.logger.Info().
					Str("signature", signature).
					Str("confirmation_status", string(status.ConfirmationStatus)).
					Msg("Transaction confirmed")
				return nil
			}
		} else if err != nil {
			c.logger.Warn().
				Err(err).
				Str("signature", signature).
				Msg("Signature status poll failed")
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			return fmt.Errorf("confirmation of %s timed out: %w", signature, waitCtx.Err())
		}
	}
}

func (c *SolanaClient) reached(status solrpc.ConfirmationStatusType) bool {
	if status == solrpc.ConfirmationStatusFinalized {
		return true
	}
	// "confirmed" commitment accepts both confirmed and finalized.
	return c.commitment == solrpc.CommitmentConfirmed && status == solrpc.ConfirmationStatusConfirmed
}
