package utils

import (
	"math"

	tdb_types "github.com/tigerbeetle/tigerbeetle-go/pkg/types"
)

// FloorTo rounds amount down to the given number of decimal places. Swap
// outputs always floor so the platform never over-credits.
func FloorTo(amount float64, precision int32) float64 {
	pow := math.Pow10(int(precision))
	return math.Floor(amount*pow) / pow
}

// All ledger amounts use a fixed 1e9 scale regardless of display precision.

func ToAmount(val float64) tdb_types.Uint128 {
	return tdb_types.ToUint128(uint64(math.Floor(val * 1e9)))
}

func FromAmount(amount tdb_types.Uint128) float64 {
	val := amount.BigInt()
	return float64(val.Uint64()) * 1e-9
}
