package store

import (
	"fmt"

	"github.com/canopy-network/canopy-dex/lib"
)

func ErrOpenDB(err error) lib.ErrorI {
	return lib.NewError(lib.CodeOpenDB, lib.StorageModule, fmt.Sprintf("openDB() failed with err: %s", err.Error()))
}

func ErrCloseDB(err error) lib.ErrorI {
	return lib.NewError(lib.CodeCloseDB, lib.StorageModule, fmt.Sprintf("closeDB() failed with err: %s", err.Error()))
}

func ErrCommitDB(err error) lib.ErrorI {
	return lib.NewError(lib.CodeCommitDB, lib.StorageModule, fmt.Sprintf("commitDB() failed with err: %s", err.Error()))
}

func ErrStoreSet(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreSet, lib.StorageModule, fmt.Sprintf("store.set() failed with err: %s", err.Error()))
}

func ErrStoreDelete(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreDelete, lib.StorageModule, fmt.Sprintf("store.delete() failed with err: %s", err.Error()))
}

func ErrStoreGet(err error) lib.ErrorI {
	return lib.NewError(lib.CodeStoreGet, lib.StorageModule, fmt.Sprintf("store.get() failed with err: %s", err.Error()))
}

func ErrFlushBatch(err error) lib.ErrorI {
	return lib.NewError(lib.CodeWriteBatchFlush, lib.StorageModule, fmt.Sprintf("writeBatch.flush() failed with err: %s", err.Error()))
}

func ErrReadOnlyStore() lib.ErrorI {
	return lib.NewError(lib.CodeReadOnlyStore, lib.StorageModule, "cannot commit a read only store")
}

func ErrInvalidVersion(requested, latest uint64) lib.ErrorI {
	return lib.NewError(lib.CodeInvalidVersion, lib.StorageModule, fmt.Sprintf("version %d is above the latest committed version %d", requested, latest))
}

func ErrKeyTooLarge(size int) lib.ErrorI {
	return lib.NewError(lib.CodeKeyTooLarge, lib.StorageModule, fmt.Sprintf("key of %d bytes exceeds the maximum key size", size))
}

func ErrParentNotWritable() lib.ErrorI {
	return lib.NewError(lib.CodeStoreSet, lib.StorageModule, "the parent of the txn does not accept writes")
}
