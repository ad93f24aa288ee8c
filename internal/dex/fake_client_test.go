package dex

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/stretchr/testify/require"
)

// fakeChainClient implements ChainClient against canned data.
type fakeChainClient struct {
	head    uint64
	headErr error

	logs        []types.Log
	filterErr   error
	filterCalls []ethereum.FilterQuery

	pair    common.Address
	token0  common.Address
	metaErr bool // decimals/symbol calls fail when set

	decimals map[common.Address]uint8
	symbols  map[common.Address]string
}

func (f *fakeChainClient) BlockNumber(_ context.Context) (uint64, error) {
	return f.head, f.headErr
}

func (f *fakeChainClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.filterCalls = append(f.filterCalls, q)
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	var out []types.Log
	for _, lg := range f.logs {
		if lg.BlockNumber >= q.FromBlock.Uint64() && lg.BlockNumber <= q.ToBlock.Uint64() {
			out = append(out, lg)
		}
	}
	return out, nil
}

func (f *fakeChainClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	selector := msg.Data[:4]

	switch {
	case bytes.Equal(selector, factoryABI.Methods["getPair"].ID):
		return factoryABI.Methods["getPair"].Outputs.Pack(f.pair)
	case bytes.Equal(selector, VariantStandard.abi.Methods["token0"].ID):
		return VariantStandard.abi.Methods["token0"].Outputs.Pack(f.token0)
	case bytes.Equal(selector, erc20ABI.Methods["decimals"].ID):
		if f.metaErr {
			return nil, errors.New("execution reverted")
		}
		return erc20ABI.Methods["decimals"].Outputs.Pack(f.decimals[*msg.To])
	case bytes.Equal(selector, erc20ABI.Methods["symbol"].ID):
		if f.metaErr {
			return nil, errors.New("execution reverted")
		}
		return erc20ABI.Methods["symbol"].Outputs.Pack(f.symbols[*msg.To])
	default:
		return nil, errors.New("unexpected contract call")
	}
}

// swapLog builds a raw log for the given variant and amounts.
func swapLog(t *testing.T, v EventVariant, block uint64, txHash common.Hash, index uint, a *SwapAmounts) types.Log {
	t.Helper()
	data, err := v.EncodeSwapData(a, false)
	require.NoError(t, err)
	return types.Log{
		Address: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Topics: []common.Hash{
			v.Topic(),
			common.HexToHash("0x01"), // sender (indexed)
			common.HexToHash("0x02"), // to (indexed)
		},
		Data:        data,
		BlockNumber: block,
		TxHash:      txHash,
		Index:       index,
	}
}
