package testutil

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.ChainClient = (*MockChainClient)(nil)

// MockChainClient implements outbound.ChainClient with overridable functions.
// Unset functions return sensible defaults for a healthy chain at block 100.
type MockChainClient struct {
	mu sync.Mutex

	ChainIDFn            func(ctx context.Context) (*big.Int, error)
	BlockNumberFn        func(ctx context.Context) (uint64, error)
	HeaderByNumberFn     func(ctx context.Context, number *big.Int) (*types.Header, error)
	BalanceAtFn          func(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContractFn       func(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAtFn     func(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCapFn   func(ctx context.Context) (*big.Int, error)
	EstimateGasFn        func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransactionFn    func(ctx context.Context, tx *types.Transaction) error
	TransactionReceiptFn func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)

	Calls   []ethereum.CallMsg
	SentTxs []*types.Transaction
}

func (m *MockChainClient) ChainID(ctx context.Context) (*big.Int, error) {
	if m.ChainIDFn != nil {
		return m.ChainIDFn(ctx)
	}
	return big.NewInt(1), nil
}

func (m *MockChainClient) BlockNumber(ctx context.Context) (uint64, error) {
	if m.BlockNumberFn != nil {
		return m.BlockNumberFn(ctx)
	}
	return 100, nil
}

func (m *MockChainClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if m.HeaderByNumberFn != nil {
		return m.HeaderByNumberFn(ctx, number)
	}
	return &types.Header{Number: big.NewInt(100), Time: 1_700_000_000, BaseFee: big.NewInt(10_000_000_000)}, nil
}

func (m *MockChainClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if m.BalanceAtFn != nil {
		return m.BalanceAtFn(ctx, account, blockNumber)
	}
	return big.NewInt(0), nil
}

func (m *MockChainClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, msg)
	m.mu.Unlock()
	if m.CallContractFn != nil {
		return m.CallContractFn(ctx, msg, blockNumber)
	}
	return nil, errors.New("CallContract not mocked")
}

func (m *MockChainClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if m.PendingNonceAtFn != nil {
		return m.PendingNonceAtFn(ctx, account)
	}
	return 0, nil
}

func (m *MockChainClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if m.SuggestGasTipCapFn != nil {
		return m.SuggestGasTipCapFn(ctx)
	}
	return big.NewInt(1_000_000_000), nil
}

func (m *MockChainClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if m.EstimateGasFn != nil {
		return m.EstimateGasFn(ctx, msg)
	}
	return 100_000, nil
}

func (m *MockChainClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	m.SentTxs = append(m.SentTxs, tx)
	m.mu.Unlock()
	if m.SendTransactionFn != nil {
		return m.SendTransactionFn(ctx, tx)
	}
	return nil
}

func (m *MockChainClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if m.TransactionReceiptFn != nil {
		return m.TransactionReceiptFn(ctx, txHash)
	}
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      txHash,
		BlockNumber: big.NewInt(100),
		GasUsed:     21_000,
	}, nil
}

// Sent returns a snapshot of the transactions passed to SendTransaction.
func (m *MockChainClient) Sent() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Transaction(nil), m.SentTxs...)
}
