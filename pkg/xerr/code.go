package xerr

const (
	// 通用错误码 10000 - 19999
	ErrInvalidParamsCode int32 = 10010

	// Store 模块错误码 20000 - 29999
	ErrStoreOperationCode int32 = 20001
	ErrInvalidKeyCode     int32 = 20002
	ErrInvalidValueCode   int32 = 20003
	ErrStoreClosedCode    int32 = 20004
	ErrStoreConnectCode   int32 = 20005
)

// 通用错误实例10000 - 19999
var (
	ErrInvalidParams = NewError(ErrInvalidParamsCode, "invalid parameters")
)

// Store 模块错误实例20000 - 29999
var (
	ErrStoreOperation = NewError(ErrStoreOperationCode, "store operation failed")
	ErrInvalidKey     = NewError(ErrInvalidKeyCode, "invalid key")
	ErrInvalidValue   = NewError(ErrInvalidValueCode, "invalid value")
	ErrStoreClosed    = NewError(ErrStoreClosedCode, "store closed")
	ErrStoreConnect   = NewError(ErrStoreConnectCode, "store connect failed")
)
