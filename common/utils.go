// Package common includes common utilities
package common

import (
	"math/big"
	"os"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

func GetEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// ParseAddress returns the canonical form of a hex address. Case and the 0x prefix don't matter,
// so "0xAbC.." and "0xabc.." parse to the same value.
func ParseAddress(s string) (ethcommon.Address, error) {
	s = strings.TrimSpace(s)
	if !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, ErrInvalidAddress
	}
	return ethcommon.HexToAddress(s), nil
}

// SameAddress compares two address strings in canonical form. Empty or invalid input never matches.
func SameAddress(a, b string) bool {
	addrA, err := ParseAddress(a)
	if err != nil {
		return false
	}
	addrB, err := ParseAddress(b)
	if err != nil {
		return false
	}
	return addrA == addrB
}

func WeiToEth(wei *big.Int) (ethValue *big.Float) {
	if wei == nil {
		return big.NewFloat(0)
	}
	// wei / 10^18
	return new(big.Float).Quo(new(big.Float).SetInt(wei), new(big.Float).SetInt(big.NewInt(params.Ether)))
}

func WeiToEthStr(wei *big.Int) string {
	return WeiToEth(wei).Text('f', 4)
}

func WeiStrToEthStr(wei string, decimals int) string {
	return WeiToEth(StrToBigInt(wei)).Text('f', decimals)
}

func StrToBigInt(s string) *big.Int {
	i := new(big.Int)
	i.SetString(s, 10)
	return i
}

// BigIntOrZero avoids nil checks in display code
func BigIntOrZero(i *big.Int) *big.Int {
	if i == nil {
		return new(big.Int)
	}
	return i
}
