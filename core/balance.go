package core

import (
	"fmt"
	"math/big"
)

// BalanceSize is the width in bytes of a block's on-wire balance field
// (spec §6: "balance 16 (u128 BE)").
const BalanceSize = 16

// Balance is a 128-bit unsigned account balance, stored big-endian on the
// wire. It is a fixed-size array so Block can remain a plain value type.
type Balance [BalanceSize]byte

// ZeroBalance is the zero balance.
var ZeroBalance Balance

// BalanceFromBig encodes a non-negative big.Int into a Balance, erroring if
// it does not fit in 128 bits.
func BalanceFromBig(v *big.Int) (Balance, error) {
	var b Balance
	if v.Sign() < 0 {
		return b, fmt.Errorf("balance cannot be negative: %s", v)
	}
	bytes := v.Bytes()
	if len(bytes) > BalanceSize {
		return b, fmt.Errorf("balance overflows %d bytes", BalanceSize)
	}
	copy(b[BalanceSize-len(bytes):], bytes)
	return b, nil
}

// BalanceFromUint64 encodes a uint64 as a Balance.
func BalanceFromUint64(v uint64) Balance {
	b, _ := BalanceFromBig(new(big.Int).SetUint64(v))
	return b
}

// BalanceFromString parses a decimal balance string, the inverse of String.
func BalanceFromString(s string) (Balance, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Balance{}, fmt.Errorf("invalid decimal balance: %q", s)
	}
	return BalanceFromBig(v)
}

// Big returns the balance as a big.Int.
func (b Balance) Big() *big.Int {
	return new(big.Int).SetBytes(b[:])
}

// String renders the balance in decimal.
func (b Balance) String() string {
	return b.Big().String()
}

// Cmp compares two balances the way big.Int.Cmp does.
func (b Balance) Cmp(other Balance) int {
	return b.Big().Cmp(other.Big())
}

// Add returns b+other, erroring on overflow past 128 bits.
func (b Balance) Add(other Balance) (Balance, error) {
	sum := new(big.Int).Add(b.Big(), other.Big())
	return BalanceFromBig(sum)
}

// Sub returns b-other, erroring if the result would be negative.
func (b Balance) Sub(other Balance) (Balance, error) {
	diff := new(big.Int).Sub(b.Big(), other.Big())
	return BalanceFromBig(diff)
}

// IsZero reports whether the balance is zero.
func (b Balance) IsZero() bool {
	return b == ZeroBalance
}
