package lib

import (
	"errors"
	"fmt"
	"math"
)

type ErrorI interface {
	Code() ErrorCode     // Returns the error code
	Module() ErrorModule // Returns the error module
	error                // Implements the built-in error interface
}

var _ ErrorI = &Error{} // Ensures *Error implements ErrorI

type ErrorCode uint32 // Defines a type for error codes

type ErrorModule string // Defines a type for error modules

type Error struct {
	ECode   ErrorCode   `json:"code"`   // Error code
	EModule ErrorModule `json:"module"` // Error module
	Msg     string      `json:"msg"`    // Error message
}

func NewError(code ErrorCode, module ErrorModule, msg string) *Error {
	// Constructs a new Error instance
	return &Error{ECode: code, EModule: module, Msg: msg}
}

// Code() returns the associated error code
func (p *Error) Code() ErrorCode { return p.ECode }

// Module() returns module field
func (p *Error) Module() ErrorModule { return p.EModule }

// String() calls Error()
func (p *Error) String() string { return p.Error() }

// Error() returns a formatted string including module, code and message
func (p *Error) Error() string {
	return fmt.Sprintf("\nModule:  %s\nCode:    %d\nMessage: %s", p.EModule, p.ECode, p.Msg)
}

// Is() allows errors.Is() comparisons by module and code rather than by pointer
func (p *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.ECode == p.ECode && t.EModule == p.EModule
}

const (
	NoCode ErrorCode = math.MaxUint32

	// Main Module
	MainModule ErrorModule = "main"

	// Main Module Error Codes
	CodeJSONMarshal       ErrorCode = 2
	CodeJSONUnmarshal     ErrorCode = 3
	CodeUnmarshal         ErrorCode = 4
	CodeMarshal           ErrorCode = 5
	CodeStringToBytes     ErrorCode = 8
	CodeWriteFile         ErrorCode = 25
	CodeReadFile          ErrorCode = 26
	CodeInvalidArgument   ErrorCode = 27
	CodeUnknownPageable   ErrorCode = 28
	CodeResourceUsage     ErrorCode = 29
	CodePanic             ErrorCode = 49
	CodeAmountOverflow    ErrorCode = 70
	CodeAmountUnderflow   ErrorCode = 71
	CodeDivideByZero      ErrorCode = 72
	CodeInvalidAmountText ErrorCode = 73

	// Storage Module
	StorageModule ErrorModule = "store"

	// Storage Module Error Codes
	CodeOpenDB          ErrorCode = 1
	CodeCloseDB         ErrorCode = 2
	CodeStoreSet        ErrorCode = 3
	CodeStoreGet        ErrorCode = 4
	CodeStoreDelete     ErrorCode = 5
	CodeCommitDB        ErrorCode = 6
	CodeReadOnlyStore   ErrorCode = 7
	CodeInvalidVersion  ErrorCode = 8
	CodeKeyTooLarge     ErrorCode = 9
	CodeWriteBatchFlush ErrorCode = 10

	// Dex Module
	DexModule ErrorModule = "dex"

	// Dex Module Error Codes (validation)
	CodeInvalidTradingPair     ErrorCode = 1
	CodeInvalidTradingFunction ErrorCode = 2
	CodeInvalidFee             ErrorCode = 3
	CodeInvalidReserves        ErrorCode = 4
	CodeInvalidAssetId         ErrorCode = 5
	CodeInvalidPositionState   ErrorCode = 6
	CodeInvalidStepCount       ErrorCode = 7
	CodeInvalidAuctionHeights  ErrorCode = 8
	CodeInvalidAuctionOutputs  ErrorCode = 9
	CodeInvalidSwap            ErrorCode = 10
	CodeInvalidAction          ErrorCode = 11
	CodeUnknownAction          ErrorCode = 12
	CodeInvalidPositionId      ErrorCode = 13
	CodeAssetNotInPair         ErrorCode = 14
	CodeInvalidRoute           ErrorCode = 15
	CodeInvalidProof           ErrorCode = 16
	CodeInvalidNonce           ErrorCode = 17
	CodeInvalidCommitment      ErrorCode = 18

	// Dex Module Error Codes (conflict)
	CodeDuplicatePosition   ErrorCode = 30
	CodePositionNotFound    ErrorCode = 31
	CodeIllegalTransition   ErrorCode = 32
	CodeStaleAuctionSeq     ErrorCode = 33
	CodeDuplicateAuction    ErrorCode = 34
	CodeAuctionNotFound     ErrorCode = 35
	CodeAuctionNotEnded     ErrorCode = 36
	CodeAuctionEnded        ErrorCode = 37
	CodeSwapNotFound        ErrorCode = 38
	CodeSwapAlreadyClaimed  ErrorCode = 39
	CodeBatchOutputNotFound ErrorCode = 40
	CodeDuplicateSwap       ErrorCode = 41
	CodeSwapNotYetExecuted  ErrorCode = 42
	CodeDuplicateCommitment ErrorCode = 43

	// Dex Module Error Codes (invariant)
	CodeCircuitBreakerUnderflow ErrorCode = 60
	CodeConservationViolated    ErrorCode = 61

	// State Machine Module
	StateMachineModule ErrorModule = "state_machine"

	// State Machine Module Error Codes
	CodeWrongHeight      ErrorCode = 1
	CodeEmptyTransaction ErrorCode = 2
	CodeDuplicateTx      ErrorCode = 3
	CodeBlockNotStarted  ErrorCode = 4
	CodeWrongStoreType   ErrorCode = 5
	CodeInvalidKey       ErrorCode = 6
	CodeInvalidGenesis   ErrorCode = 7
	CodeNonEmptyState    ErrorCode = 8

	// RPC Module
	RPCModule ErrorModule = "rpc"

	// RPC Module Error Codes
	CodeRPCTimeout     ErrorCode = 1
	CodeInvalidParams  ErrorCode = 2
	CodeNewFSM         ErrorCode = 3
	CodeTimeMachine    ErrorCode = 4
	CodePostRequest    ErrorCode = 5
	CodeGetRequest     ErrorCode = 6
	CodeHttpStatus     ErrorCode = 7
	CodeReadBody       ErrorCode = 8
	CodeSubscriberCap  ErrorCode = 9
	CodeWrongChainId   ErrorCode = 10
)

func ErrPanic() ErrorI {
	return NewError(CodePanic, MainModule, "panic recovery")
}

func ErrUnmarshal(err error) ErrorI {
	return NewError(CodeUnmarshal, MainModule, fmt.Sprintf("unmarshal() failed with err: %s", err.Error()))
}

func ErrMarshal(err error) ErrorI {
	return NewError(CodeMarshal, MainModule, fmt.Sprintf("marshal() failed with err: %s", err.Error()))
}

func ErrJSONUnmarshal(err error) ErrorI {
	return NewError(CodeJSONUnmarshal, MainModule, fmt.Sprintf("json.unmarshal() failed with err: %s", err.Error()))
}

func ErrJSONMarshal(err error) ErrorI {
	return NewError(CodeJSONMarshal, MainModule, fmt.Sprintf("json.marshal() failed with err: %s", err.Error()))
}

func ErrStringToBytes(err error) ErrorI {
	return NewError(CodeStringToBytes, MainModule, fmt.Sprintf("stringToBytes() failed with err: %s", err.Error()))
}

func ErrReadFile(err error) ErrorI {
	return NewError(CodeReadFile, MainModule, fmt.Sprintf("os.ReadFile() failed with err: %s", err.Error()))
}

func ErrWriteFile(err error) ErrorI {
	return NewError(CodeWriteFile, MainModule, fmt.Sprintf("os.WriteFile() failed with err: %s", err.Error()))
}

func ErrInvalidArgument() ErrorI {
	return NewError(CodeInvalidArgument, MainModule, "the argument is invalid")
}

func ErrResourceUsage(err error) ErrorI {
	return NewError(CodeResourceUsage, MainModule, fmt.Sprintf("resource usage sampling failed with err: %s", err.Error()))
}

func ErrUnknownPageable(s string) ErrorI {
	return NewError(CodeUnknownPageable, MainModule, fmt.Sprintf("unknown pageable type %s", s))
}

func ErrAmountOverflow() ErrorI {
	return NewError(CodeAmountOverflow, MainModule, "amount overflows 128 bits")
}

func ErrAmountUnderflow() ErrorI {
	return NewError(CodeAmountUnderflow, MainModule, "amount underflow")
}

func ErrDivideByZero() ErrorI {
	return NewError(CodeDivideByZero, MainModule, "division by zero")
}

func ErrInvalidAmountText(s string) ErrorI {
	return NewError(CodeInvalidAmountText, MainModule, fmt.Sprintf("unable to parse amount %q", s))
}

func ErrServerTimeout() ErrorI {
	return NewError(CodeRPCTimeout, RPCModule, "server timeout")
}

func ErrTimeMachine(err error) ErrorI {
	return NewError(CodeTimeMachine, RPCModule, fmt.Sprintf("timeMachine() failed with err: %s", err.Error()))
}

func ErrPostRequest(err error) ErrorI {
	return NewError(CodePostRequest, RPCModule, fmt.Sprintf("http.Post() failed with err: %s", err.Error()))
}

func ErrGetRequest(err error) ErrorI {
	return NewError(CodeGetRequest, RPCModule, fmt.Sprintf("http.Get() failed with err: %s", err.Error()))
}

func ErrHttpStatus(status string, statusCode int, body []byte) ErrorI {
	return NewError(CodeHttpStatus, RPCModule, fmt.Sprintf("http response bad status %s with code %d and body %s", status, statusCode, body))
}

func ErrReadBody(err error) ErrorI {
	return NewError(CodeReadBody, RPCModule, fmt.Sprintf("io.ReadAll(http.ResponseBody) failed with err: %s", err.Error()))
}
