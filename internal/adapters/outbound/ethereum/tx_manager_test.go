package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/archon-research/aave-borrow/internal/testutil"
)

func newTestKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return key
}

func newTestTxManager(t *testing.T, client *testutil.MockChainClient, cfg TxManagerConfig) *TxManager {
	t.Helper()
	if cfg.ChainID == nil {
		cfg.ChainID = big.NewInt(1)
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Millisecond
	}
	if cfg.ReceiptTimeout == 0 {
		cfg.ReceiptTimeout = time.Second
	}
	m, err := NewTxManager(client, newTestKey(t), cfg)
	if err != nil {
		t.Fatalf("NewTxManager: %v", err)
	}
	return m
}

func TestNewTxManager_Validation(t *testing.T) {
	key := newTestKey(t)
	client := &testutil.MockChainClient{}

	tests := []struct {
		name   string
		client *testutil.MockChainClient
		key    *ecdsa.PrivateKey
		cfg    TxManagerConfig
	}{
		{"nil client", nil, key, TxManagerConfig{ChainID: big.NewInt(1)}},
		{"nil key", client, nil, TxManagerConfig{ChainID: big.NewInt(1)}},
		{"missing chain ID", client, key, TxManagerConfig{}},
		{"zero chain ID", client, key, TxManagerConfig{ChainID: big.NewInt(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.client == nil {
				_, err = NewTxManager(nil, tt.key, tt.cfg)
			} else {
				_, err = NewTxManager(tt.client, tt.key, tt.cfg)
			}
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewTxManager_Defaults(t *testing.T) {
	m, err := NewTxManager(&testutil.MockChainClient{}, newTestKey(t), TxManagerConfig{ChainID: big.NewInt(1)})
	if err != nil {
		t.Fatalf("NewTxManager: %v", err)
	}
	defaults := TxManagerConfigDefaults()
	if m.config.Confirmations != defaults.Confirmations {
		t.Errorf("Confirmations = %d, want %d", m.config.Confirmations, defaults.Confirmations)
	}
	if m.config.PollInterval != defaults.PollInterval {
		t.Errorf("PollInterval = %v, want %v", m.config.PollInterval, defaults.PollInterval)
	}
	if m.config.ReceiptTimeout != defaults.ReceiptTimeout {
		t.Errorf("ReceiptTimeout = %v, want %v", m.config.ReceiptTimeout, defaults.ReceiptTimeout)
	}
}

func TestParsePrivateKey(t *testing.T) {
	key := newTestKey(t)
	hexKey := common.Bytes2Hex(crypto.FromECDSA(key))

	for _, input := range []string{hexKey, "0x" + hexKey, "  0x" + hexKey + "\n"} {
		parsed, err := ParsePrivateKey(input)
		if err != nil {
			t.Fatalf("ParsePrivateKey(%q): %v", input, err)
		}
		if crypto.PubkeyToAddress(parsed.PublicKey) != crypto.PubkeyToAddress(key.PublicKey) {
			t.Errorf("ParsePrivateKey(%q) returned a different key", input)
		}
	}

	for _, input := range []string{"", "0x", "not-hex", "0x1234"} {
		if _, err := ParsePrivateKey(input); err == nil {
			t.Errorf("ParsePrivateKey(%q): expected error", input)
		}
	}
}

func TestTxManager_SendAndConfirm(t *testing.T) {
	client := &testutil.MockChainClient{
		PendingNonceAtFn: func(ctx context.Context, account common.Address) (uint64, error) {
			return 7, nil
		},
	}
	m := newTestTxManager(t, client, TxManagerConfig{ChainID: big.NewInt(31337), GasBufferPercent: 20})

	to := common.HexToAddress("0x1000000000000000000000000000000000000001")
	value := big.NewInt(12345)
	receipt, err := m.SendAndConfirm(context.Background(), to, []byte{0xde, 0xad}, value)
	if err != nil {
		t.Fatalf("SendAndConfirm: %v", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.Errorf("receipt status = %d", receipt.Status)
	}

	sent := client.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(sent))
	}
	tx := sent[0]

	if tx.Type() != types.DynamicFeeTxType {
		t.Errorf("tx type = %d, want %d", tx.Type(), types.DynamicFeeTxType)
	}
	if tx.Nonce() != 7 {
		t.Errorf("nonce = %d, want 7", tx.Nonce())
	}
	if tx.Gas() != 120_000 {
		t.Errorf("gas = %d, want 120000", tx.Gas())
	}
	if tx.GasTipCap().Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Errorf("tip cap = %s", tx.GasTipCap())
	}
	// tip + 2 * baseFee
	if tx.GasFeeCap().Cmp(big.NewInt(21_000_000_000)) != 0 {
		t.Errorf("fee cap = %s, want 21000000000", tx.GasFeeCap())
	}
	if tx.ChainId().Cmp(big.NewInt(31337)) != 0 {
		t.Errorf("chain ID = %s", tx.ChainId())
	}
	if *tx.To() != to || tx.Value().Cmp(value) != 0 {
		t.Errorf("to/value = %s/%s", tx.To().Hex(), tx.Value())
	}
	if receipt.TxHash != tx.Hash() {
		t.Errorf("receipt hash %s != tx hash %s", receipt.TxHash.Hex(), tx.Hash().Hex())
	}

	signer := types.LatestSignerForChainID(big.NewInt(31337))
	from, err := types.Sender(signer, tx)
	if err != nil {
		t.Fatalf("recovering sender: %v", err)
	}
	if from != m.From() {
		t.Errorf("sender = %s, want %s", from.Hex(), m.From().Hex())
	}
}

func TestTxManager_NilValueSendsZero(t *testing.T) {
	client := &testutil.MockChainClient{}
	m := newTestTxManager(t, client, TxManagerConfig{})

	if _, err := m.SendAndConfirm(context.Background(), common.Address{1}, nil, nil); err != nil {
		t.Fatalf("SendAndConfirm: %v", err)
	}
	if v := client.Sent()[0].Value(); v.Sign() != 0 {
		t.Errorf("value = %s, want 0", v)
	}
}

func TestTxManager_Reverted(t *testing.T) {
	client := &testutil.MockChainClient{
		TransactionReceiptFn: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			return &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: txHash, BlockNumber: big.NewInt(100)}, nil
		},
	}
	m := newTestTxManager(t, client, TxManagerConfig{})

	receipt, err := m.SendAndConfirm(context.Background(), common.Address{1}, nil, nil)
	if !errors.Is(err, ErrTxReverted) {
		t.Fatalf("expected ErrTxReverted, got %v", err)
	}
	if receipt == nil {
		t.Fatal("expected the failed receipt to be returned")
	}
}

func TestTxManager_EstimateGasFailureSendsNothing(t *testing.T) {
	client := &testutil.MockChainClient{
		EstimateGasFn: func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
			return 0, errors.New("execution reverted")
		},
	}
	m := newTestTxManager(t, client, TxManagerConfig{})

	if _, err := m.SendAndConfirm(context.Background(), common.Address{1}, nil, nil); err == nil {
		t.Fatal("expected error")
	}
	if n := len(client.Sent()); n != 0 {
		t.Errorf("sent %d transactions, want 0", n)
	}
}

func TestTxManager_PollsUntilMined(t *testing.T) {
	var polls atomic.Int32
	client := &testutil.MockChainClient{
		TransactionReceiptFn: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			if polls.Add(1) < 3 {
				return nil, ethereum.NotFound
			}
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: txHash, BlockNumber: big.NewInt(5)}, nil
		},
	}
	m := newTestTxManager(t, client, TxManagerConfig{})

	receipt, err := m.SendAndConfirm(context.Background(), common.Address{1}, nil, nil)
	if err != nil {
		t.Fatalf("SendAndConfirm: %v", err)
	}
	if polls.Load() != 3 {
		t.Errorf("polled %d times, want 3", polls.Load())
	}
	if receipt.BlockNumber.Int64() != 5 {
		t.Errorf("block = %s, want 5", receipt.BlockNumber)
	}
}

func TestTxManager_ReceiptErrorIsFatal(t *testing.T) {
	var polls atomic.Int32
	client := &testutil.MockChainClient{
		TransactionReceiptFn: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			polls.Add(1)
			return nil, errors.New("connection refused")
		},
	}
	m := newTestTxManager(t, client, TxManagerConfig{})

	if _, err := m.SendAndConfirm(context.Background(), common.Address{1}, nil, nil); err == nil {
		t.Fatal("expected error")
	}
	if polls.Load() != 1 {
		t.Errorf("polled %d times, want 1", polls.Load())
	}
}

func TestTxManager_ReceiptTimeout(t *testing.T) {
	client := &testutil.MockChainClient{
		TransactionReceiptFn: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			return nil, ethereum.NotFound
		},
	}
	m := newTestTxManager(t, client, TxManagerConfig{PollInterval: time.Millisecond, ReceiptTimeout: 5 * time.Millisecond})

	_, err := m.SendAndConfirm(context.Background(), common.Address{1}, nil, nil)
	if !errors.Is(err, ethereum.NotFound) {
		t.Fatalf("expected NotFound in error chain, got %v", err)
	}
}

func TestTxManager_WaitsForConfirmations(t *testing.T) {
	var head atomic.Uint64
	head.Store(100)
	client := &testutil.MockChainClient{
		BlockNumberFn: func(ctx context.Context) (uint64, error) {
			return head.Add(1) - 1, nil
		},
	}
	m := newTestTxManager(t, client, TxManagerConfig{Confirmations: 3})

	if _, err := m.SendAndConfirm(context.Background(), common.Address{1}, nil, nil); err != nil {
		t.Fatalf("SendAndConfirm: %v", err)
	}
	// Receipt at block 100 needs head 102: polls see 100, 101, 102.
	if got := head.Load(); got != 103 {
		t.Errorf("BlockNumber called %d times, want 3", got-100)
	}
}
