package api

import (
	"net/http"
	"time"
)

// StatusClass はHTTPステータスコードに基づく呼び出し結果の分類。
type StatusClass int

const (
	// StatusClassOK は成功（2xx）。
	StatusClassOK StatusClass = iota
	// StatusClassRetry はリトライで回復しうるステータス（429/5xx）。
	StatusClassRetry
	// StatusClassFail はリトライしても回復しないステータス（4xx等）。
	StatusClassFail
)

const (
	// defaultRetryBaseDelay は指数バックオフの初回遅延。
	defaultRetryBaseDelay = 200 * time.Millisecond
	// maxRetryDelay は指数バックオフの最大遅延。
	maxRetryDelay = 5 * time.Second
)

// ClassifyStatus はHTTPステータスコードを分類する。
func ClassifyStatus(statusCode int) StatusClass {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return StatusClassOK
	case statusCode == http.StatusTooManyRequests:
		return StatusClassRetry
	case statusCode >= 500:
		return StatusClassRetry
	default:
		return StatusClassFail
	}
}

// RetryDelay はattempt回目（0始まり）のリトライ前の待機時間を返す。
// baseから2倍ずつ増加し、maxRetryDelayで頭打ちになる。
func RetryDelay(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		base = defaultRetryBaseDelay
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay > maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
