package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/flashbots/streamscan/contracts"
)

// ContractReader reads view functions at the latest block
type ContractReader struct {
	backend Backend
}

func NewContractReader(backend Backend) *ContractReader {
	return &ContractReader{backend: backend}
}

// Read calls a view function and returns its unpacked outputs
func (r *ContractReader) Read(ctx context.Context, contract *contracts.Contract, functionName string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.ABI.Pack(functionName, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", functionName, err)
	}

	to := contract.Address
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", functionName, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResponse, functionName)
	}

	values, err := contract.ABI.Unpack(functionName, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, functionName, err)
	}
	return values, nil
}

// StreamedBuilder reads the per-builder record. A missing cap is reported as ErrMalformedResponse.
func (r *ContractReader) StreamedBuilder(ctx context.Context, contract *contracts.Contract, builder ethcommon.Address) (*BuilderStreamInfo, error) {
	values, err := r.Read(ctx, contract, contracts.FuncStreamedBuilders, builder)
	if err != nil {
		return nil, err
	}
	if len(values) < 1 {
		return nil, fmt.Errorf("%w: streamedBuilders returned %d values", ErrMalformedResponse, len(values))
	}
	capValue, ok := values[0].(*big.Int)
	if !ok || capValue == nil {
		return nil, fmt.Errorf("%w: streamedBuilders cap is %T", ErrMalformedResponse, values[0])
	}

	info := &BuilderStreamInfo{Cap: capValue}
	if len(values) > 1 {
		info.Last, _ = values[1].(*big.Int)
	}
	return info, nil
}

// AllBuildersData is the batched read of cap and unlocked amount for many builders
func (r *ContractReader) AllBuildersData(ctx context.Context, contract *contracts.Contract, builders []ethcommon.Address) ([]BuilderData, error) {
	if len(builders) == 0 {
		return []BuilderData{}, nil
	}

	data, err := contract.ABI.Pack(contracts.FuncAllBuildersData, builders)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", contracts.FuncAllBuildersData, err)
	}
	to := contract.Address
	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", contracts.FuncAllBuildersData, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyResponse, contracts.FuncAllBuildersData)
	}

	var result []BuilderData
	if err := contract.ABI.UnpackIntoInterface(&result, contracts.FuncAllBuildersData, out); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedResponse, contracts.FuncAllBuildersData, err)
	}
	return result, nil
}
