package errors

// Code 是稳定错误码（字符串），供 AI/agent 与程序判断。
// 只增不改、不复用旧含义。
type Code string

const (
	// Config / args
	CodeCfgNotFound     Code = "TOKEY_CFG_NOT_FOUND"
	CodeCfgInvalid      Code = "TOKEY_CFG_INVALID"
	CodeProviderUnknown Code = "TOKEY_PROVIDER_UNKNOWN"

	// Account resolution
	CodeAccountNotFound  Code = "TOKEY_ACCOUNT_NOT_FOUND"
	CodeNoDefaultAccount Code = "TOKEY_NO_DEFAULT_ACCOUNT"
	CodeDuplicateLabel   Code = "TOKEY_DUPLICATE_LABEL"

	// Authentication / refresh
	CodeLoginTimeout        Code = "TOKEY_LOGIN_TIMEOUT"
	CodeSessionExpired      Code = "TOKEY_SESSION_EXPIRED"
	CodeExtractionFailed    Code = "TOKEY_EXTRACTION_FAILED"
	CodeProfileLocked       Code = "TOKEY_PROFILE_LOCKED"
	CodeCsrfMismatch        Code = "TOKEY_CSRF_MISMATCH"
	CodeTokenExchangeFailed Code = "TOKEY_TOKEN_EXCHANGE_FAILED"
	CodeRefreshDenied       Code = "TOKEY_REFRESH_DENIED"
	CodeRefreshFailed       Code = "TOKEY_REFRESH_FAILED"

	// Storage
	CodeStorageCorrupt Code = "TOKEY_STORAGE_CORRUPT"
	CodePermission     Code = "TOKEY_PERMISSION"

	// Internal
	CodeInternal Code = "TOKEY_INTERNAL"
)

func AllCodes() []Code {
	return []Code{
		CodeCfgNotFound,
		CodeCfgInvalid,
		CodeProviderUnknown,
		CodeAccountNotFound,
		CodeNoDefaultAccount,
		CodeDuplicateLabel,
		CodeLoginTimeout,
		CodeSessionExpired,
		CodeExtractionFailed,
		CodeProfileLocked,
		CodeCsrfMismatch,
		CodeTokenExchangeFailed,
		CodeRefreshDenied,
		CodeRefreshFailed,
		CodeStorageCorrupt,
		CodePermission,
		CodeInternal,
	}
}
