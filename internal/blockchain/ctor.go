package blockchain

import (
	"fmt"
	"math/big"
)

// toBigInt converts an unsigned constructor argument into a *big.Int.
func toBigInt(v interface{}) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return n, nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case uint:
		return new(big.Int).SetUint64(uint64(n)), nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case string:
		b, ok := new(big.Int).SetString(n, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", n)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported integer type %T", v)
}

// sizedUint returns v as the Go type the ABI packer expects for a uintN input.
func sizedUint(size int, v interface{}) (interface{}, error) {
	b, err := toBigInt(v)
	if err != nil {
		return nil, err
	}
	if b.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s for uint%d", b, size)
	}
	if b.BitLen() > size {
		return nil, fmt.Errorf("value %s overflows uint%d", b, size)
	}
	switch size {
	case 8:
		return uint8(b.Uint64()), nil
	case 16:
		return uint16(b.Uint64()), nil
	case 32:
		return uint32(b.Uint64()), nil
	case 64:
		return b.Uint64(), nil
	}
	return b, nil
}
