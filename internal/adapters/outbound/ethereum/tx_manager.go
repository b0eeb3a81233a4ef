package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/pkg/retry"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.TxSender = (*TxManager)(nil)

// ErrTxReverted is returned when a mined transaction has a failed status.
// The revert reason is not inspected.
var ErrTxReverted = errors.New("transaction reverted")

var errNotConfirmed = errors.New("confirmation depth not reached")

// TxManagerConfig holds configuration for the transaction manager.
type TxManagerConfig struct {
	// ChainID is used for EIP-155 replay protection.
	ChainID *big.Int

	// Confirmations is the number of blocks, including the inclusion block,
	// a receipt needs before SendAndConfirm returns.
	Confirmations uint64

	// PollInterval is the delay between receipt and block-number polls.
	PollInterval time.Duration

	// ReceiptTimeout bounds the wait for inclusion and confirmations.
	ReceiptTimeout time.Duration

	// GasBufferPercent is added on top of the node's gas estimate.
	GasBufferPercent uint64

	// Logger is the structured logger.
	Logger *slog.Logger
}

// TxManagerConfigDefaults returns a config with default values.
func TxManagerConfigDefaults() TxManagerConfig {
	return TxManagerConfig{
		Confirmations:    1,
		PollInterval:     2 * time.Second,
		ReceiptTimeout:   5 * time.Minute,
		GasBufferPercent: 20,
		Logger:           slog.Default(),
	}
}

// TxManager signs EIP-1559 transactions with a single key and waits for them
// to be mined. It is not safe for concurrent use: nonces come from the node's
// pending count, which is only correct when one transaction is in flight.
type TxManager struct {
	client outbound.ChainClient
	key    *ecdsa.PrivateKey
	from   common.Address
	signer types.Signer
	config TxManagerConfig
	logger *slog.Logger
}

// NewTxManager creates a transaction manager for the account owning key.
func NewTxManager(client outbound.ChainClient, key *ecdsa.PrivateKey, config TxManagerConfig) (*TxManager, error) {
	if client == nil {
		return nil, errors.New("chain client is required")
	}
	if key == nil {
		return nil, errors.New("private key is required")
	}
	if config.ChainID == nil || config.ChainID.Sign() <= 0 {
		return nil, errors.New("chain ID must be positive")
	}

	defaults := TxManagerConfigDefaults()
	if config.Confirmations == 0 {
		config.Confirmations = defaults.Confirmations
	}
	if config.PollInterval == 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.ReceiptTimeout == 0 {
		config.ReceiptTimeout = defaults.ReceiptTimeout
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	return &TxManager{
		client: client,
		key:    key,
		from:   crypto.PubkeyToAddress(key.PublicKey),
		signer: types.LatestSignerForChainID(config.ChainID),
		config: config,
		logger: config.Logger.With("component", "tx-manager"),
	}, nil
}

// ParsePrivateKey parses a hex private key with or without the 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("private key is empty")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}

// From returns the signing account.
func (m *TxManager) From() common.Address {
	return m.from
}

// SendAndConfirm builds, signs and submits a transaction, then waits for the
// configured confirmation depth.
func (m *TxManager) SendAndConfirm(ctx context.Context, to common.Address, data []byte, value *big.Int) (*types.Receipt, error) {
	if value == nil {
		value = new(big.Int)
	}

	tx, err := m.buildTx(ctx, to, data, value)
	if err != nil {
		return nil, err
	}

	signed, err := types.SignTx(tx, m.signer, m.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}

	if err := m.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("sending transaction: %w", err)
	}
	m.logger.Debug("transaction sent",
		"txHash", signed.Hash().Hex(),
		"to", to.Hex(),
		"nonce", signed.Nonce(),
		"gas", signed.Gas())

	receipt, err := m.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: tx %s in block %s", ErrTxReverted, signed.Hash().Hex(), receipt.BlockNumber)
	}

	if err := m.waitConfirmations(ctx, receipt); err != nil {
		return receipt, err
	}
	return receipt, nil
}

func (m *TxManager) buildTx(ctx context.Context, to common.Address, data []byte, value *big.Int) (*types.Transaction, error) {
	nonce, err := m.client.PendingNonceAt(ctx, m.from)
	if err != nil {
		return nil, fmt.Errorf("fetching nonce: %w", err)
	}

	tip, err := m.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching gas tip: %w", err)
	}

	head, err := m.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching head header: %w", err)
	}
	baseFee := new(big.Int)
	if head != nil && head.BaseFee != nil {
		baseFee.Set(head.BaseFee)
	}
	// Room for the base fee to double before the tx is priced out.
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))

	gas, err := m.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  m.from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimating gas: %w", err)
	}
	gas += gas * m.config.GasBufferPercent / 100

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   m.config.ChainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      data,
	}), nil
}

func (m *TxManager) pollConfig() retry.Config {
	return retry.Polling(m.config.PollInterval, m.config.ReceiptTimeout)
}

func (m *TxManager) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	isPending := func(err error) bool { return errors.Is(err, ethereum.NotFound) }

	receipt, err := retry.Do(ctx, m.pollConfig(), isPending, nil, func() (*types.Receipt, error) {
		r, err := m.client.TransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, ethereum.NotFound
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for receipt of %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}

func (m *TxManager) waitConfirmations(ctx context.Context, receipt *types.Receipt) error {
	if m.config.Confirmations <= 1 || receipt.BlockNumber == nil {
		return nil
	}
	target := receipt.BlockNumber.Uint64() + m.config.Confirmations - 1
	isPending := func(err error) bool { return errors.Is(err, errNotConfirmed) }

	err := retry.DoVoid(ctx, m.pollConfig(), isPending, nil, func() error {
		head, err := m.client.BlockNumber(ctx)
		if err != nil {
			return err
		}
		if head < target {
			return errNotConfirmed
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("waiting for %d confirmations of %s: %w", m.config.Confirmations, receipt.TxHash.Hex(), err)
	}
	return nil
}

// recordFromReceipt converts a receipt into the workflow's TxRecord.
func recordFromReceipt(receipt *types.Receipt) *entity.TxRecord {
	rec := &entity.TxRecord{
		Hash:    receipt.TxHash,
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		rec.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return rec
}
