package contract

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"golang.org/x/crypto/sha3"
)

// ErrUnsupportedType is returned for ABI types the codec does not handle
// (dynamic arrays, tuples, bytes, string inputs).
var ErrUnsupportedType = errors.New("unsupported ABI type")

var tt256 = new(big.Int).Lsh(big.NewInt(1), 256)

// EncodeCall builds calldata: 4-byte selector + encoded args.
func EncodeCall(fn *ABIEntry, args ...string) ([]byte, error) {
	if len(args) != len(fn.Inputs) {
		return nil, fmt.Errorf("%s expects %d argument(s), got %d", fn.Name, len(fn.Inputs), len(args))
	}

	out := make([]byte, 0, 4+32*len(args))
	out = append(out, Selector(fn)...)
	for i, param := range fn.Inputs {
		word, err := encodeParam(param.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("encoding param %s: %w", paramLabel(param, i), err)
		}
		out = append(out, word...)
	}
	return out, nil
}

// Signature returns the canonical signature, e.g. "withdraw(uint256)".
func Signature(fn *ABIEntry) string {
	types := make([]string, len(fn.Inputs))
	for i, p := range fn.Inputs {
		types[i] = p.Type
	}
	return fn.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector computes the 4-byte function selector.
func Selector(fn *ABIEntry) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(Signature(fn)))
	return h.Sum(nil)[:4]
}

// encodeParam encodes a single static ABI value as a 32-byte word.
func encodeParam(typ, val string) ([]byte, error) {
	val = strings.TrimSpace(val)

	switch {
	case typ == "address":
		if !common.IsHexAddress(val) {
			return nil, fmt.Errorf("invalid address: %q", val)
		}
		return common.LeftPadBytes(common.HexToAddress(val).Bytes(), 32), nil

	case strings.HasPrefix(typ, "uint"), strings.HasPrefix(typ, "int"):
		return encodeInt(typ, val)

	case typ == "bool":
		switch val {
		case "true", "1":
			return common.LeftPadBytes([]byte{1}, 32), nil
		case "false", "0":
			return make([]byte, 32), nil
		}
		return nil, fmt.Errorf("invalid bool: %q", val)

	case typ == "bytes32":
		b, err := hex.DecodeString(strings.TrimPrefix(val, "0x"))
		if err != nil || len(b) > 32 {
			return nil, fmt.Errorf("invalid bytes32: %q", val)
		}
		return common.RightPadBytes(b, 32), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
	}
}

func encodeInt(typ, val string) ([]byte, error) {
	signed := strings.HasPrefix(typ, "int")
	bits := 256
	if suffix := strings.TrimPrefix(strings.TrimPrefix(typ, "u"), "int"); suffix != "" {
		n, err := strconv.Atoi(suffix)
		if err != nil || n <= 0 || n > 256 || n%8 != 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typ)
		}
		bits = n
	}

	n, ok := new(big.Int).SetString(val, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer: %q", val)
	}
	if !signed {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("negative value for %s: %s", typ, val)
		}
		if n.BitLen() > bits {
			return nil, fmt.Errorf("value overflows %s: %s", typ, val)
		}
		return math.U256Bytes(n), nil
	}

	// Signed range is [-2^(bits-1), 2^(bits-1)-1].
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
		return nil, fmt.Errorf("value overflows %s: %s", typ, val)
	}
	return math.U256Bytes(n), nil
}

// decodeResult decodes raw return data into string values, one per output.
func decodeResult(fn *ABIEntry, data []byte) ([]string, error) {
	if len(fn.Outputs) == 0 {
		return nil, nil
	}
	if len(data) < 32*len(fn.Outputs) {
		return nil, fmt.Errorf("%w: got %d bytes for %d output(s)", ErrNoData, len(data), len(fn.Outputs))
	}

	results := make([]string, 0, len(fn.Outputs))
	for i, out := range fn.Outputs {
		word := data[i*32 : (i+1)*32]
		val, err := decodeWord(out.Type, word, data)
		if err != nil {
			return nil, fmt.Errorf("decoding output %d: %w", i, err)
		}
		results = append(results, val)
	}
	return results, nil
}

func decodeWord(typ string, word []byte, fullData []byte) (string, error) {
	switch {
	case typ == "address":
		return common.BytesToAddress(word).Hex(), nil

	case strings.HasPrefix(typ, "uint"):
		return new(big.Int).SetBytes(word).String(), nil

	case strings.HasPrefix(typ, "int"):
		n := new(big.Int).SetBytes(word)
		if word[0]&0x80 != 0 {
			n.Sub(n, tt256)
		}
		return n.String(), nil

	case typ == "bool":
		return strconv.FormatBool(word[31] == 1), nil

	case typ == "string":
		// Offset + length encoding.
		off := new(big.Int).SetBytes(word)
		if !off.IsUint64() || off.Uint64()+32 > uint64(len(fullData)) {
			return "", fmt.Errorf("string offset out of range")
		}
		start := off.Uint64()
		length := new(big.Int).SetBytes(fullData[start : start+32])
		start += 32
		if !length.IsUint64() || start+length.Uint64() > uint64(len(fullData)) {
			return "", fmt.Errorf("string length out of range")
		}
		return string(fullData[start : start+length.Uint64()]), nil

	default:
		return "0x" + hex.EncodeToString(word), nil
	}
}

func paramLabel(p ABIParam, i int) string {
	if p.Name != "" {
		return p.Name
	}
	return "#" + strconv.Itoa(i)
}
