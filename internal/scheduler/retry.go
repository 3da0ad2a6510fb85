package scheduler

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"regexp"
	"syscall"
	"time"
)

// RetryDelay 第 attempt 次失败后的等待时长（attempt 从 1 开始）
// delay = min(RetryDelayMs × BackoffMultiplier^(attempt-1), MaxRetryDelayMs)
func RetryDelay(cfg RetryConfig, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := cfg.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	delayMs := float64(cfg.RetryDelayMs) * math.Pow(multiplier, float64(attempt-1))
	if cfg.MaxRetryDelayMs > 0 && delayMs > float64(cfg.MaxRetryDelayMs) {
		delayMs = float64(cfg.MaxRetryDelayMs)
	}
	if math.IsInf(delayMs, 0) || delayMs > float64(math.MaxInt64/int64(time.Millisecond)) {
		return time.Duration(math.MaxInt64)
	}
	if delayMs < 0 {
		return 0
	}
	return time.Duration(delayMs) * time.Millisecond
}

// RetryableError 显式标注错误是否可重试，优先于启发式分类
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	if e.Err == nil {
		return "retryable error"
	}
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable 包装为可重试错误
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err, Retryable: true}
}

// Permanent 包装为不可重试错误
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err, Retryable: false}
}

// httpStatusError 由 HTTP 客户端错误实现，避免依赖具体包
type httpStatusError interface {
	HTTPStatus() int
}

// retryableMessagePattern 状态码与 timeout 按整词匹配，避免误命中 ID 或字段名
var retryableMessagePattern = regexp.MustCompile(
	`(?i)econnrefused|connection refused|\btimeout\b|\btimed out\b|deadline exceeded|rate[ -]?limit|too many requests|\b(?:http|status)[ :]*(?:429|5\d\d)\b`,
)

// retryableStatus 429 与 5xx 视为瞬时错误
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// ClassifyError 判断执行错误是否为瞬时错误
func ClassifyError(err error) bool {
	if err == nil {
		return false
	}

	var re *RetryableError
	if errors.As(err, &re) {
		return re.Retryable
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.HTTPStatus())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return ClassifyMessage(err.Error())
}

// ClassifyMessage 按错误文本判断是否可重试，用于处理器只返回字符串的场景
func ClassifyMessage(msg string) bool {
	return retryableMessagePattern.MatchString(msg)
}
