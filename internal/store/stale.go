package store

import "time"

// IsStale 是纯判断，不做 I/O：
//   - token 过期型（有 expires_at）：now + margin >= expires_at，
//     提前一点刷新以吸收时钟偏差与网络延迟；
//   - 会话型：now - created_at > maxAge。
//
// 对固定输入单调：时间只会把 fresh 变 stale，不会反向。
func IsStale(cred *StoredCredential, maxAge, margin time.Duration, now int64) bool {
	if cred == nil {
		return true
	}
	if cred.ExpiresAt != nil {
		return now+int64(margin.Seconds()) >= *cred.ExpiresAt
	}
	return now-cred.CreatedAt > int64(maxAge.Seconds())
}
