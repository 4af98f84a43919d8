package validation

import (
	"fmt"
	"strings"

	corecommon "github.com/core-coin/go-core/v2/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

const (
	// ChainCore is Core Blockchain: 22-byte ICAN addresses (44 hex characters).
	ChainCore = "core"
	// ChainEthereum is any EVM chain: 20-byte addresses (40 hex characters).
	ChainEthereum = "ethereum"
)

// AddressHexLength returns the number of hex characters (without 0x) of an address on chain.
func AddressHexLength(chain string) (int, error) {
	switch chain {
	case ChainCore:
		return 44, nil
	case ChainEthereum:
		return 40, nil
	}
	return 0, fmt.Errorf("unknown chain %q", chain)
}

// ValidateAddress validates an address for the given chain.
// Core addresses must carry a valid ICAN checksum for common.DefaultNetworkID;
// mixed-case Ethereum addresses must carry a valid EIP-55 checksum.
func ValidateAddress(chain, addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}
	expected, err := AddressHexLength(chain)
	if err != nil {
		return err
	}

	normalized := NormalizeAddress(addr)
	if len(normalized) != expected {
		return fmt.Errorf("invalid address length: expected %d characters (without 0x), got %d", expected, len(normalized))
	}

	switch chain {
	case ChainCore:
		if _, err := corecommon.HexToAddress(normalized); err != nil {
			return fmt.Errorf("invalid core address: %w", err)
		}
	case ChainEthereum:
		if !ethcommon.IsHexAddress(addr) {
			return fmt.Errorf("invalid hex address %q", addr)
		}
		raw := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
		if raw != strings.ToLower(raw) && raw != strings.ToUpper(raw) {
			if checksummed := ethcommon.HexToAddress(addr).Hex(); checksummed[2:] != raw {
				return fmt.Errorf("invalid address checksum, expected %s", checksummed)
			}
		}
	}

	return nil
}

// NormalizeAddress converts an address to lowercase without 0x prefix
func NormalizeAddress(addr string) string {
	addr = strings.TrimPrefix(addr, "0x")
	addr = strings.TrimPrefix(addr, "0X")
	return strings.ToLower(addr)
}

// SameAddress reports whether a and b denote the same address regardless of prefix and case.
func SameAddress(a, b string) bool {
	return NormalizeAddress(a) == NormalizeAddress(b)
}
