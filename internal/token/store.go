package token

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"smam/backend/internal/domain"
)

// valueBytes 令牌随机字节数（128 bit）
const valueBytes = 16

// Store 按客户端身份保存已签发、未过期的令牌
//
// 特点：
// - 两级结构：身份 -> 按签发顺序排列的令牌列表
// - 单把互斥锁保护全部状态，签发、校验消费与清理互斥执行
// - 校验时惰性判断过期，不依赖清理任务是否已运行
type Store struct {
	mu     sync.Mutex
	tokens map[string][]*domain.Token
	ttl    time.Duration
	now    func() time.Time
	random func([]byte) (int, error)
}

// Option 配置 Store
type Option func(*Store)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithTTL 设置令牌有效期
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewStore 创建令牌存储
func NewStore(opts ...Option) *Store {
	s := &Store{
		tokens: make(map[string][]*domain.Token),
		ttl:    domain.TokenTTL,
		now:    time.Now,
		random: rand.Read,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue 为指定身份签发新令牌
//
// 参数:
//   - identity: 客户端身份（通常为客户端 IP）
//
// 返回值:
//   - *domain.Token: 新令牌，有效期为 ttl
func (s *Store) Issue(identity string) *domain.Token {
	buf := make([]byte, valueBytes)
	if _, err := s.random(buf); err != nil {
		// crypto/rand 失败意味着系统熵源不可用，无法安全继续
		panic("token: read random bytes: " + err.Error())
	}

	tok := &domain.Token{
		Value:    hex.EncodeToString(buf),
		IssuedTo: identity,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tok.ExpiresAt = s.now().Add(s.ttl)
	s.tokens[identity] = append(s.tokens[identity], tok)

	return tok
}

// VerifyAndConsume 校验并消费令牌
//
// 按签发顺序查找与 value 相同且未过期的令牌，找到后立即从列表移除。
// 值错误、已过期、身份未知均返回 false，且不会修改任何状态。
func (s *Store) VerifyAndConsume(identity, value string) bool {
	if value == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, ok := s.tokens[identity]
	if !ok {
		return false
	}

	now := s.now()
	for i, tok := range list {
		if subtle.ConstantTimeCompare([]byte(tok.Value), []byte(value)) != 1 {
			continue
		}
		if tok.Expired(now) {
			return false
		}

		rest := append(list[:i:i], list[i+1:]...)
		if len(rest) == 0 {
			delete(s.tokens, identity)
		} else {
			s.tokens[identity] = rest
		}
		return true
	}

	return false
}

// SweepExpired 移除所有 expiresAt <= now 的令牌
//
// 令牌全部被移除的身份会一并删除，避免内存无限增长。
//
// 返回值:
//   - int: 被移除的令牌数量
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for identity, list := range s.tokens {
		live := lo.Filter(list, func(tok *domain.Token, _ int) bool {
			return !tok.Expired(now)
		})
		removed += len(list) - len(live)

		if len(live) == 0 {
			delete(s.tokens, identity)
		} else {
			s.tokens[identity] = live
		}
	}

	return removed
}

// Stats 返回当前身份数与令牌数
func (s *Store) Stats() (identities, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, list := range s.tokens {
		tokens += len(list)
	}
	return len(s.tokens), tokens
}

// Sweeper 定期清理过期令牌的后台任务
type Sweeper struct {
	store    *Store
	interval time.Duration
	log      *zap.Logger
	onSweep  func(removed, live int)
}

// NewSweeper 创建清理任务
//
// 参数:
//   - store: 令牌存储
//   - interval: 清理间隔（通常为 1 小时）
//   - log: 日志记录器
//   - onSweep: 每轮清理后的回调，可为 nil（用于更新监控指标）
func NewSweeper(store *Store, interval time.Duration, log *zap.Logger, onSweep func(removed, live int)) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		log:      log,
		onSweep:  onSweep,
	}
}

// Run 阻塞运行清理循环，直到 ctx 被取消
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("starting expired token sweep", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("token sweep stopped")
			return
		case <-ticker.C:
			w.SweepOnce()
		}
	}
}

// SweepOnce 立即执行一轮清理
func (w *Sweeper) SweepOnce() int {
	removed := w.store.SweepExpired(w.store.now())
	_, live := w.store.Stats()

	if removed > 0 {
		w.log.Info("expired tokens swept", zap.Int("count", removed), zap.Int("live", live))
	}
	if w.onSweep != nil {
		w.onSweep(removed, live)
	}
	return removed
}
