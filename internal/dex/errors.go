package dex

import "errors"

// ErrPairNotFound is returned when the factory's pair lookup yields the zero
// address for a configured token/quote combination. Initialization-fatal:
// the DEX stays disabled until configuration or on-chain state changes.
var ErrPairNotFound = errors.New("pair not found: factory getPair returned the zero address")
