package domain

import "time"

// TokenTTL 令牌默认有效期
const TokenTTL = 12 * time.Hour

// Token 表示一次性的表单提交许可。
//
// 令牌由 /register 签发给某个客户端身份，成功提交后立即消费；
// 未被使用的令牌在过期后由定期清理任务移除。
type Token struct {
	Value     string    `json:"value"`
	IssuedTo  string    `json:"issuedTo"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired 判断令牌在给定时间点是否已过期（expiresAt <= now 即视为过期）
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
