// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidState は前提条件違反（プロフィール未設定のままの導出など）を表す。
// 呼び出し側はプロフィールの有無を事前に確認する必要がある。
var ErrInvalidState = errors.New("invalid state")

// APIError は統一エラーフォーマットを表す。
// 表示層に渡す原因カテゴリと対処方法を含む。
type APIError struct {
	Code       string // エラーコード
	Message    string // エラーメッセージ
	Category   string // カテゴリ: auth, validation, backend, session, system
	Action     string // ユーザー向け対処方法
	HTTPStatus int    // バックエンドが返したステータス（不明な場合は0）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeBackendFailure   = "BACKEND_FAILURE"
	ErrCodeUnexpectedStatus = "UNEXPECTED_STATUS"
	ErrCodeDecodeFailed     = "DECODE_FAILED"
	ErrCodeNoSession        = "NO_SESSION"
	ErrCodeNoContext        = "NO_SELECTED_CONTEXT"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
)

// NewInvalidStateError はErrInvalidStateをラップしたエラーを生成する。
func NewInvalidStateError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, reason)
}

// NewBackendStatusError はバックエンドのHTTPステータスからAPIErrorを生成する。
func NewBackendStatusError(endpoint string, status int) *APIError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &APIError{
			Code:       ErrCodeUnauthorized,
			Message:    fmt.Sprintf("認証に失敗しました: %s", endpoint),
			Category:   "auth",
			Action:     "メールアドレスとパスワードを確認してください。",
			HTTPStatus: status,
		}
	case status == http.StatusNotFound:
		return &APIError{
			Code:       ErrCodeNotFound,
			Message:    fmt.Sprintf("リソースが見つかりません: %s", endpoint),
			Category:   "backend",
			Action:     "選択中のプログラムを確認してください。",
			HTTPStatus: status,
		}
	case status == http.StatusTooManyRequests:
		return &APIError{
			Code:       ErrCodeRateLimited,
			Message:    fmt.Sprintf("リクエストが多すぎます: %s", endpoint),
			Category:   "backend",
			Action:     "しばらく待ってから再度お試しください。",
			HTTPStatus: status,
		}
	case status >= 500:
		return &APIError{
			Code:       ErrCodeBackendFailure,
			Message:    fmt.Sprintf("バックエンドがエラーを返しました（%d）: %s", status, endpoint),
			Category:   "backend",
			Action:     "しばらく待ってから再度お試しください。",
			HTTPStatus: status,
		}
	default:
		return &APIError{
			Code:       ErrCodeUnexpectedStatus,
			Message:    fmt.Sprintf("想定外のステータス %d: %s", status, endpoint),
			Category:   "backend",
			Action:     "リクエスト内容を確認してください。",
			HTTPStatus: status,
		}
	}
}

// NewDecodeFailedError はレスポンスJSONの解析失敗エラーを生成する。
func NewDecodeFailedError(endpoint string) *APIError {
	return &APIError{
		Code:     ErrCodeDecodeFailed,
		Message:  fmt.Sprintf("レスポンスの解析に失敗しました: %s", endpoint),
		Category: "backend",
		Action:   "バックエンドのバージョンを確認してください。",
	}
}

// NewNoSessionError はサインイン前に参照系を呼び出した場合のエラーを生成する。
func NewNoSessionError() *APIError {
	return &APIError{
		Code:     ErrCodeNoSession,
		Message:  "セッションが開始されていません。",
		Category: "session",
		Action:   "サインインしてください。",
	}
}

// NewNoContextError は選択可能なトレーニングコンテキストが無い場合のエラーを生成する。
func NewNoContextError() *APIError {
	return &APIError{
		Code:     ErrCodeNoContext,
		Message:  "選択中のトレーニングコンテキストがありません。",
		Category: "session",
		Action:   "チームまたはプログラムに参加してください。",
	}
}

// NewInvalidRequestError はリクエスト内容が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("無効なリクエストです: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// IsRetryable はリトライで回復しうるバックエンドエラーかを返す。
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == ErrCodeRateLimited || apiErr.Code == ErrCodeBackendFailure
}
