package entity

import "math/big"

// NativeBalanceRequestItem asks an RPC node for the native balance of one wallet.
type NativeBalanceRequestItem struct {
	ID            string
	WalletAddress string
}

// NativeBalanceResultItem is the outcome of one item of a batched balance call.
type NativeBalanceResultItem struct {
	RequestID     string
	WalletAddress string
	Balance       *big.Int
	Error         error
}
