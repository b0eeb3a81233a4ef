package multicall

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/pkg/blockchain"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
	"github.com/archon-research/aave-borrow/internal/testutil"
)

var (
	wethAddr = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	daiAddr  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
)

func TestClient_Execute(t *testing.T) {
	multicallABI, err := abis.GetMulticall3ABI()
	if err != nil {
		t.Fatalf("loading ABI: %v", err)
	}

	chain := &testutil.MockChainClient{
		CallContractFn: func(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
			if msg.To == nil || *msg.To != blockchain.Multicall3 {
				t.Errorf("call sent to %v, want multicall3", msg.To)
			}
			if block == nil || block.Int64() != 42 {
				t.Errorf("block = %v, want 42", block)
			}

			args, err := multicallABI.Methods["aggregate3"].Inputs.Unpack(msg.Data[4:])
			if err != nil {
				t.Fatalf("unpacking aggregate3 input: %v", err)
			}
			calls := args[0].([]struct {
				Target       common.Address `json:"target"`
				AllowFailure bool           `json:"allowFailure"`
				CallData     []byte         `json:"callData"`
			})
			if len(calls) != 2 || calls[0].Target != wethAddr || !calls[1].AllowFailure {
				t.Errorf("unexpected packed calls: %+v", calls)
			}

			return testutil.PackMulticallAggregate3(t, []testutil.MulticallResult{
				{Success: true, ReturnData: []byte{0x01}},
				{Success: false, ReturnData: []byte{}},
			}), nil
		},
	}

	client, err := NewClient(chain, blockchain.Multicall3)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.Address() != blockchain.Multicall3 {
		t.Errorf("Address = %s", client.Address().Hex())
	}

	results, err := client.Execute(context.Background(), []outbound.Call{
		{Target: wethAddr, CallData: []byte{0xaa}},
		{Target: daiAddr, AllowFailure: true, CallData: []byte{0xbb}},
	}, big.NewInt(42))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !results[0].Success || results[0].ReturnData[0] != 0x01 {
		t.Errorf("result 0 = %+v", results[0])
	}
	if results[1].Success {
		t.Errorf("result 1 should have failed")
	}
}

func TestClient_ExecuteEmpty(t *testing.T) {
	chain := &testutil.MockChainClient{}
	client, err := NewClient(chain, blockchain.Multicall3)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	results, err := client.Execute(context.Background(), nil, nil)
	if err != nil || len(results) != 0 {
		t.Errorf("empty Execute = %v, %v", results, err)
	}
	if len(chain.Calls) != 0 {
		t.Errorf("empty batch must not hit the node, got %d calls", len(chain.Calls))
	}
}

func TestClient_ExecuteRPCError(t *testing.T) {
	chain := &testutil.MockChainClient{
		CallContractFn: func(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
			return nil, errors.New("execution reverted")
		},
	}
	client, _ := NewClient(chain, blockchain.Multicall3)

	_, err := client.Execute(context.Background(), []outbound.Call{{Target: wethAddr}}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "block=latest") || !strings.Contains(err.Error(), "execution reverted") {
		t.Errorf("error should carry block label and cause: %v", err)
	}
}
