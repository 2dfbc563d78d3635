package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// signatureToReference converts an RPC TransactionSignature to our domain Reference.
func signatureToReference(sig *rpc.TransactionSignature) Reference {
	ref := Reference{
		Signature: sig.Signature,
		Slot:      sig.Slot,
	}

	if sig.BlockTime != nil {
		t := sig.BlockTime.Time()
		ref.BlockTime = &t
	}

	if sig.Err != nil {
		errMsg := fmt.Sprintf("transaction failed: %v", sig.Err)
		ref.Err = &errMsg
	}

	return ref
}

// parseTransactionDetail extracts balances, account keys and token mints from a
// GetTransaction result.
func parseTransactionDetail(signature solana.Signature, result *rpc.GetTransactionResult) (*TransactionDetail, error) {
	if result == nil {
		return nil, ErrTransactionNotFound
	}
	if result.Meta == nil {
		return nil, fmt.Errorf("transaction has no meta")
	}

	detail := &TransactionDetail{
		Signature:    signature,
		Slot:         result.Slot,
		PreBalances:  result.Meta.PreBalances,
		PostBalances: result.Meta.PostBalances,
	}

	if result.BlockTime != nil {
		detail.BlockTime = result.BlockTime.Time()
	}

	if result.Meta.Err != nil {
		detail.Failed = true
		errMsg := fmt.Sprintf("%v", result.Meta.Err)
		detail.Err = &errMsg
	}

	for _, balance := range result.Meta.PostTokenBalances {
		detail.PostTokenMints = append(detail.PostTokenMints, balance.Mint)
	}

	if result.Transaction == nil {
		return nil, fmt.Errorf("transaction envelope missing")
	}
	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	detail.AccountKeys = append([]solana.PublicKey(nil), tx.Message.AccountKeys...)

	loaded := result.Meta.LoadedAddresses
	if n := len(loaded.Writable) + len(loaded.ReadOnly); n > 0 {
		detail.LoadedKeys = make([]solana.PublicKey, 0, n)
		detail.LoadedKeys = append(detail.LoadedKeys, loaded.Writable...)
		detail.LoadedKeys = append(detail.LoadedKeys, loaded.ReadOnly...)
	}

	return detail, nil
}
