// Package dex implements the on-chain side of the watcher: one-time pair
// resolution against a UniswapV2-style factory, incremental block-range
// scanning for swap logs, and decode/classification of those logs into
// buy/sell trade events.
package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const factoryABIJSON = `[
	{"type":"function","name":"getPair","stateMutability":"view",
	 "inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],
	 "outputs":[{"name":"pair","type":"address"}]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"string"}]}
]`

// Standard UniswapV2 pair: Swap(address,uint256,uint256,uint256,uint256,address).
const pairStandardABIJSON = `[
	{"type":"function","name":"token0","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"token1","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"Swap","anonymous":false,"inputs":[
	 {"name":"sender","type":"address","indexed":true},
	 {"name":"amount0In","type":"uint256","indexed":false},
	 {"name":"amount1In","type":"uint256","indexed":false},
	 {"name":"amount0Out","type":"uint256","indexed":false},
	 {"name":"amount1Out","type":"uint256","indexed":false},
	 {"name":"to","type":"address","indexed":true}]}
]`

// Extended shape with a trailing bool:
// Swap(address,uint256,uint256,uint256,uint256,address,bool).
const pairExtendedABIJSON = `[
	{"type":"function","name":"token0","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"token1","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"Swap","anonymous":false,"inputs":[
	 {"name":"sender","type":"address","indexed":true},
	 {"name":"amount0In","type":"uint256","indexed":false},
	 {"name":"amount1In","type":"uint256","indexed":false},
	 {"name":"amount0Out","type":"uint256","indexed":false},
	 {"name":"amount1Out","type":"uint256","indexed":false},
	 {"name":"to","type":"address","indexed":true},
	 {"name":"isDiscountEligible","type":"bool","indexed":false}]}
]`

var (
	factoryABI = mustABI(factoryABIJSON)
	erc20ABI   = mustABI(erc20ABIJSON)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// EventVariant is one of the two known swap-event shapes. A variant decodes
// only logs carrying its own topic signature.
type EventVariant struct {
	name string
	abi  abi.ABI
}

var (
	// VariantStandard is the canonical UniswapV2 Swap event.
	VariantStandard = EventVariant{name: "standard", abi: mustABI(pairStandardABIJSON)}

	// VariantExtended carries a trailing bool after the recipient.
	VariantExtended = EventVariant{name: "extended", abi: mustABI(pairExtendedABIJSON)}
)

// VariantByName resolves a configured variant name.
func VariantByName(name string) (EventVariant, error) {
	switch name {
	case VariantStandard.name:
		return VariantStandard, nil
	case VariantExtended.name:
		return VariantExtended, nil
	default:
		return EventVariant{}, fmt.Errorf("unknown swap event variant %q", name)
	}
}

// Name returns the variant's configuration name.
func (v EventVariant) Name() string { return v.name }

// Topic returns the swap-event topic hash used for log filtering.
func (v EventVariant) Topic() common.Hash { return v.abi.Events["Swap"].ID }

// SwapAmounts are the four raw fixed-point amounts shared by both variants.
type SwapAmounts struct {
	Amount0In  *big.Int
	Amount1In  *big.Int
	Amount0Out *big.Int
	Amount1Out *big.Int
}

// DecodeSwap unpacks a raw log into its four amounts. Returns an error when
// the topic signature does not match this variant or the data does not
// decode; callers treat that as a skip, never a retry.
func (v EventVariant) DecodeSwap(lg types.Log) (*SwapAmounts, error) {
	if len(lg.Topics) == 0 || lg.Topics[0] != v.abi.Events["Swap"].ID {
		return nil, fmt.Errorf("log topic does not match %s swap event", v.name)
	}

	vals, err := v.abi.Unpack("Swap", lg.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s swap event: %w", v.name, err)
	}
	// Non-indexed layout: amount0In, amount1In, amount0Out, amount1Out
	// (+ trailing bool for the extended variant, which is ignored).
	if len(vals) < 4 {
		return nil, fmt.Errorf("unpack %s swap event: got %d values", v.name, len(vals))
	}

	amounts := &SwapAmounts{}
	var ok bool
	if amounts.Amount0In, ok = vals[0].(*big.Int); !ok {
		return nil, fmt.Errorf("unpack %s swap event: amount0In is %T", v.name, vals[0])
	}
	if amounts.Amount1In, ok = vals[1].(*big.Int); !ok {
		return nil, fmt.Errorf("unpack %s swap event: amount1In is %T", v.name, vals[1])
	}
	if amounts.Amount0Out, ok = vals[2].(*big.Int); !ok {
		return nil, fmt.Errorf("unpack %s swap event: amount0Out is %T", v.name, vals[2])
	}
	if amounts.Amount1Out, ok = vals[3].(*big.Int); !ok {
		return nil, fmt.Errorf("unpack %s swap event: amount1Out is %T", v.name, vals[3])
	}
	return amounts, nil
}

// EncodeSwapData packs the non-indexed fields of this variant's Swap event.
// Used by tests and fixtures to build raw logs.
func (v EventVariant) EncodeSwapData(a *SwapAmounts, extendedFlag bool) ([]byte, error) {
	args := nonIndexedArgs(v.abi.Events["Swap"].Inputs)
	if v.name == VariantExtended.name {
		return args.Pack(a.Amount0In, a.Amount1In, a.Amount0Out, a.Amount1Out, extendedFlag)
	}
	return args.Pack(a.Amount0In, a.Amount1In, a.Amount0Out, a.Amount1Out)
}

func nonIndexedArgs(inputs abi.Arguments) abi.Arguments {
	var out abi.Arguments
	for _, in := range inputs {
		if !in.Indexed {
			out = append(out, in)
		}
	}
	return out
}
