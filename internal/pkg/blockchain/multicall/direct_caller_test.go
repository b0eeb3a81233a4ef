package multicall

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/archon-research/aave-borrow/internal/ports/outbound"
	"github.com/archon-research/aave-borrow/internal/testutil"
)

func TestDirectCaller_Execute(t *testing.T) {
	node := testutil.StartMockEthRPC(t, map[string]testutil.RPCHandler{
		"eth_call": func(params json.RawMessage) (any, error) {
			call, block, err := testutil.ParseEthCall(params)
			if err != nil {
				return nil, err
			}
			if block != "latest" {
				return nil, errors.New("unexpected block " + block)
			}
			if strings.EqualFold(call.To, daiAddr.Hex()) {
				return nil, errors.New("execution reverted")
			}
			return "0x" + strings.TrimPrefix(call.CallData(), "0x") + "ff", nil
		},
	})

	client, err := rpc.DialContext(context.Background(), node.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	caller := NewDirectCaller(client)
	results, err := caller.Execute(context.Background(), []outbound.Call{
		{Target: wethAddr, CallData: []byte{0x31, 0x3c}},
		{Target: daiAddr, AllowFailure: true, CallData: []byte{0x01}},
	}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if node.Batches() != 1 {
		t.Errorf("expected one batch request, got %d", node.Batches())
	}
	if !results[0].Success || len(results[0].ReturnData) != 3 || results[0].ReturnData[2] != 0xff {
		t.Errorf("result 0 = %+v", results[0])
	}
	if results[1].Success {
		t.Error("reverted call with AllowFailure should report failure")
	}
}

func TestDirectCaller_FailureNotAllowed(t *testing.T) {
	node := testutil.StartMockEthRPC(t, map[string]testutil.RPCHandler{
		"eth_call": func(json.RawMessage) (any, error) {
			return nil, errors.New("execution reverted")
		},
	})
	client, err := rpc.DialContext(context.Background(), node.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	_, err = NewDirectCaller(client).Execute(context.Background(), []outbound.Call{{Target: wethAddr}}, nil)
	if err == nil || !strings.Contains(err.Error(), "direct call to") {
		t.Fatalf("expected direct call failure, got %v", err)
	}
}

func TestToBlockNumArg(t *testing.T) {
	if got := toBlockNumArg(nil); got != "latest" {
		t.Errorf("nil = %q", got)
	}
}
