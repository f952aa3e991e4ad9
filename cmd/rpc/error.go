package rpc

import (
	"fmt"

	"github.com/canopy-network/canopy-dex/lib"
)

func ErrInvalidParams(err error) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidParams, lib.RPCModule, fmt.Sprintf("invalid params: %s", err.Error()))
}

func ErrNewFSM(err error) lib.ErrorI {
	return lib.NewError(lib.CodeNewFSM, lib.RPCModule, fmt.Sprintf("new fsm failed with err: %s", err.Error()))
}

func ErrSubscriberCap(max int) lib.ErrorI {
	return lib.NewError(lib.CodeSubscriberCap, lib.RPCModule, fmt.Sprintf("subscriber limit of %d reached", max))
}

func ErrWrongChainId(expected, got string) lib.ErrorI {
	return lib.NewError(lib.CodeWrongChainId, lib.RPCModule, fmt.Sprintf("wrong chain id: expected %q got %q", expected, got))
}
