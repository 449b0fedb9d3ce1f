package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy 有界重试策略：最多 MaxAttempts 次，两次之间按指数退避等待
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Multiplier 小于等于 1 时按 2 处理
	Multiplier float64
}

// Default 与原先每个源重试 3 次、起始 1 秒退避保持一致
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    8 * time.Second,
		Multiplier:  2,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff 返回第 attempt 次失败后（attempt 从 1 开始）需要等待的时长
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	m := p.Multiplier
	if m <= 1 {
		m = 2
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= m
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do 执行 fn 直到成功、次数用尽或 ctx 结束，返回实际尝试次数
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	n := p.attempts()
	var lastErr error

	for attempt := 1; attempt <= n; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return attempt - 1, lastErr
		}

		err := fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if attempt == n {
			break
		}

		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, fmt.Errorf("retry aborted after %d attempts: %w", attempt, lastErr)
		case <-timer.C:
		}
	}

	return n, fmt.Errorf("failed after %d attempts: %w", n, lastErr)
}
