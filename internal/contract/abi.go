package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrFunctionNotFound is returned when a function name is not in the ABI.
var ErrFunctionNotFound = errors.New("function not found in ABI")

// ABIEntry is one ABI entry (function, event, etc.).
type ABIEntry struct {
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Inputs          []ABIParam `json:"inputs"`
	Outputs         []ABIParam `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
}

// ABIParam is a parameter in an ABI entry.
type ABIParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsReadFunction returns true if the function is read-only (view/pure).
func (e ABIEntry) IsReadFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "view" || e.StateMutability == "pure")
}

// IsWriteFunction returns true if the function modifies state.
func (e ABIEntry) IsWriteFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "nonpayable" || e.StateMutability == "payable")
}

// IsPayable reports whether the function accepts native value.
func (e ABIEntry) IsPayable() bool {
	return e.Type == "function" && e.StateMutability == "payable"
}

// ABI is a parsed contract interface.
type ABI []ABIEntry

// ParseABI decodes a JSON ABI array (as emitted by solc / hardhat).
func ParseABI(data []byte) (ABI, error) {
	var abi ABI
	if err := json.Unmarshal(data, &abi); err != nil {
		return nil, fmt.Errorf("parsing ABI: %w", err)
	}
	for i, e := range abi {
		if e.Type == "function" && e.Name == "" {
			return nil, fmt.Errorf("parsing ABI: function entry %d has no name", i)
		}
	}
	return abi, nil
}

// Function looks up a function entry by name.
func (a ABI) Function(name string) (*ABIEntry, error) {
	for i := range a {
		if a[i].Type == "function" && a[i].Name == name {
			return &a[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
}

// FunctionBySelector finds the function whose 4-byte selector starts calldata.
func (a ABI) FunctionBySelector(calldata []byte) (*ABIEntry, error) {
	if len(calldata) < 4 {
		return nil, fmt.Errorf("%w: calldata shorter than a selector", ErrFunctionNotFound)
	}
	for i := range a {
		if a[i].Type == "function" && bytes.Equal(Selector(&a[i]), calldata[:4]) {
			return &a[i], nil
		}
	}
	return nil, fmt.Errorf("%w: selector 0x%x", ErrFunctionNotFound, calldata[:4])
}
