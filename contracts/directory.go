// Package contracts resolves contract names to their deployed address and ABI
package contracts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/common"
)

const (
	EventAddBuilder    = "AddBuilder"
	EventUpdateBuilder = "UpdateBuilder"
	EventWithdraw      = "Withdraw"

	FuncStreamedBuilders      = "streamedBuilders"
	FuncAllBuildersData       = "allBuildersData"
	FuncUnlockedBuilderAmount = "unlockedBuilderAmount"
	FuncFrequency             = "frequency"
)

var (
	ErrContractNotFound = errors.New("contract not found in directory")
	ErrInvalidContract  = errors.New("invalid contract entry")

	requiredEvents    = []string{EventAddBuilder, EventWithdraw}
	requiredFunctions = []string{FuncStreamedBuilders, FuncAllBuildersData}
)

//go:embed abi/YourContract.json
var streamContractABI []byte

type Contract struct {
	Name        string
	Address     ethcommon.Address
	ABI         abi.ABI
	DeployBlock uint64
}

// fileEntry is one contract in a contracts file, e.g. {"YourContract": {"address": "0x..", "abi": [...], "deployBlock": 1}}
type fileEntry struct {
	Address     string          `json:"address"`
	ABI         json.RawMessage `json:"abi"`
	DeployBlock uint64          `json:"deployBlock"`
}

// Directory is read-only after construction and safe for concurrent use
type Directory struct {
	contracts map[string]*Contract
}

// LoadDirectory reads all contracts from a JSON file. Every entry needs an address and a valid
// abi, stream members are only checked by Stream.
func LoadDirectory(path string) (*Directory, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDirectory(content)
}

func ParseDirectory(content []byte) (*Directory, error) {
	entries := make(map[string]fileEntry)
	if err := json.Unmarshal(content, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidContract, err)
	}

	dir := &Directory{contracts: make(map[string]*Contract, len(entries))}
	for name, entry := range entries {
		contract, err := newContract(name, entry.Address, entry.ABI, entry.DeployBlock)
		if err != nil {
			return nil, err
		}
		dir.contracts[name] = contract
	}
	return dir, nil
}

// NewStreamDirectory builds a single-entry directory from the embedded stream contract ABI
func NewStreamDirectory(name, address string, deployBlock uint64) (*Directory, error) {
	contract, err := newContract(name, address, streamContractABI, deployBlock)
	if err != nil {
		return nil, err
	}
	return &Directory{contracts: map[string]*Contract{name: contract}}, nil
}

func (d *Directory) Get(name string) (*Contract, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, name)
	}
	contract, ok := d.contracts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, name)
	}
	return contract, nil
}

// Stream returns the named contract if its abi has the events and functions the builder stream
// pipeline reads
func (d *Directory) Stream(name string) (*Contract, error) {
	contract, err := d.Get(name)
	if err != nil {
		return nil, err
	}
	if err := contract.requireStream(); err != nil {
		return nil, err
	}
	return contract, nil
}

func (c *Contract) requireStream() error {
	for _, event := range requiredEvents {
		if _, ok := c.ABI.Events[event]; !ok {
			return fmt.Errorf("%w: %s: abi lacks event %s", ErrInvalidContract, c.Name, event)
		}
	}
	for _, method := range requiredFunctions {
		if _, ok := c.ABI.Methods[method]; !ok {
			return fmt.Errorf("%w: %s: abi lacks function %s", ErrInvalidContract, c.Name, method)
		}
	}
	return nil
}

func newContract(name, address string, abiJSON []byte, deployBlock uint64) (*Contract, error) {
	addr, err := common.ParseAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: bad address %q", ErrInvalidContract, name, address)
	}
	if addr == (ethcommon.Address{}) {
		return nil, fmt.Errorf("%w: %s: zero address", ErrInvalidContract, name)
	}
	if len(abiJSON) == 0 {
		return nil, fmt.Errorf("%w: %s: missing abi", ErrInvalidContract, name)
	}

	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidContract, name, err)
	}
	return &Contract{
		Name:        name,
		Address:     addr,
		ABI:         parsed,
		DeployBlock: deployBlock,
	}, nil
}
