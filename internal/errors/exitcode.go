package errors

// ExitCode 是进程退出码（稳定契约）；错误码一览见 codes.go。
type ExitCode int

const (
	ExitOK ExitCode = 0

	// 2: 参数/配置错误
	ExitConfig ExitCode = 2

	// 3: 账号解析错误
	ExitAccount ExitCode = 3

	// 4: 认证/刷新/提取错误
	ExitAuth ExitCode = 4

	// 5: 存储损坏或权限问题
	ExitStorage ExitCode = 5

	// 6: 部分成功（get 返回过期凭据，或批量刷新存在失败）
	ExitPartial ExitCode = 6

	// 10: 内部错误
	ExitInternal ExitCode = 10
)

func ExitCodeFor(code Code) ExitCode {
	switch code {
	case CodeCfgNotFound, CodeCfgInvalid, CodeProviderUnknown:
		return ExitConfig
	case CodeAccountNotFound, CodeNoDefaultAccount, CodeDuplicateLabel:
		return ExitAccount
	case CodeLoginTimeout, CodeSessionExpired, CodeExtractionFailed,
		CodeProfileLocked, CodeCsrfMismatch, CodeTokenExchangeFailed,
		CodeRefreshDenied:
		return ExitAuth
	case CodeStorageCorrupt, CodePermission:
		return ExitStorage
	case CodeRefreshFailed:
		return ExitPartial
	case CodeInternal:
		fallthrough
	default:
		return ExitInternal
	}
}
