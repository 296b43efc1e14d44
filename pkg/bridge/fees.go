package bridge

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// SubmissionBaseGas and SubmissionGasPerByte price the L1 submission of a
	// retryable ticket.
	SubmissionBaseGas    = 1400
	SubmissionGasPerByte = 6

	// DefaultSubmissionMarginPercent pads the submission cost against base
	// fee movement before the ticket lands.
	DefaultSubmissionMarginPercent = 300
)

// ErrInvalidFeeParams is returned when an estimate cannot be computed.
var ErrInvalidFeeParams = errors.New("invalid retryable fee parameters")

// RetryableParams describe an L1 to L2 message.
type RetryableParams struct {
	// CallData is the L2 call payload. CallDataLength is used when it is empty.
	CallData       hexutil.Bytes  `json:"callData,omitempty"`
	CallDataLength hexutil.Uint64 `json:"callDataLength,omitempty"`
	L1BaseFee      *hexutil.Big   `json:"l1BaseFee"`
	GasLimit       hexutil.Uint64 `json:"gasLimit"`
	MaxFeePerGas   *hexutil.Big   `json:"maxFeePerGas"`
	CallValue      *hexutil.Big   `json:"callValue,omitempty"`
	// MarginPercent defaults to DefaultSubmissionMarginPercent when nil.
	MarginPercent *uint64 `json:"marginPercent,omitempty"`
}

// RetryableEstimate is the value to send with the ticket.
type RetryableEstimate struct {
	MaxSubmissionCost *hexutil.Big `json:"maxSubmissionCost"`
	GasCost           *hexutil.Big `json:"gasCost"`
	CallValue         *hexutil.Big `json:"callValue"`
	Deposit           *hexutil.Big `json:"deposit"`
}

// SubmissionCost returns (1400 + 6*calldataLen) * l1BaseFee, raised by
// marginPercent.
func SubmissionCost(calldataLen uint64, l1BaseFee *big.Int, marginPercent uint64) *big.Int {
	gas := new(big.Int).SetUint64(calldataLen)
	gas.Mul(gas, big.NewInt(SubmissionGasPerByte))
	gas.Add(gas, big.NewInt(SubmissionBaseGas))

	cost := gas.Mul(gas, l1BaseFee)
	if marginPercent == 0 {
		return cost
	}
	cost.Mul(cost, new(big.Int).SetUint64(100+marginPercent))
	return cost.Div(cost, big.NewInt(100))
}

// EstimateRetryable computes the submission cost and the total deposit:
// submission cost + gasLimit*maxFeePerGas + callValue.
func EstimateRetryable(p RetryableParams) (RetryableEstimate, error) {
	if p.L1BaseFee == nil || p.L1BaseFee.ToInt().Sign() <= 0 {
		return RetryableEstimate{}, fmt.Errorf("%w: l1BaseFee must be positive", ErrInvalidFeeParams)
	}
	if p.MaxFeePerGas == nil || p.MaxFeePerGas.ToInt().Sign() < 0 {
		return RetryableEstimate{}, fmt.Errorf("%w: maxFeePerGas is required", ErrInvalidFeeParams)
	}
	callValue := new(big.Int)
	if p.CallValue != nil {
		if p.CallValue.ToInt().Sign() < 0 {
			return RetryableEstimate{}, fmt.Errorf("%w: callValue is negative", ErrInvalidFeeParams)
		}
		callValue.Set(p.CallValue.ToInt())
	}

	calldataLen := uint64(p.CallDataLength)
	if len(p.CallData) > 0 {
		calldataLen = uint64(len(p.CallData))
	}
	margin := uint64(DefaultSubmissionMarginPercent)
	if p.MarginPercent != nil {
		margin = *p.MarginPercent
	}

	submission := SubmissionCost(calldataLen, p.L1BaseFee.ToInt(), margin)
	gasCost := new(big.Int).SetUint64(uint64(p.GasLimit))
	gasCost.Mul(gasCost, p.MaxFeePerGas.ToInt())

	deposit := new(big.Int).Add(submission, gasCost)
	deposit.Add(deposit, callValue)

	return RetryableEstimate{
		MaxSubmissionCost: (*hexutil.Big)(submission),
		GasCost:           (*hexutil.Big)(gasCost),
		CallValue:         (*hexutil.Big)(callValue),
		Deposit:           (*hexutil.Big)(deposit),
	}, nil
}
