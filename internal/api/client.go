// Package api はトレーニングバックエンドのREST APIクライアントを提供する。
// すべてのリクエストは <BaseURL>/api/ 配下にJSONで送受信する。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/Volt-Athletics/state-management-tests/internal/metrics"
	"github.com/Volt-Athletics/state-management-tests/internal/model"
)

const (
	// apiPrefix はバックエンドAPIのパスプレフィックス。
	apiPrefix = "/api/"
	// maxResponseSize はレスポンスボディの最大サイズ（ワークアウト詳細を想定して8MB）。
	maxResponseSize = 8 << 20
)

// Config はClientの設定パラメータ。
type Config struct {
	// BaseURL はバックエンドのオリジン（例: https://app.example.com）。
	BaseURL string
	// Timeout は1リクエストあたりのタイムアウト。
	Timeout time.Duration
	// RateLimit はクライアント側のリクエストレート（req/sec）。0以下で無制限。
	RateLimit rate.Limit
	// RateBurst はレート制限のバーストサイズ。
	RateBurst int
	// MaxRetries はGETの429/5xxおよび通信エラー時の最大リトライ回数。
	MaxRetries int
	// RetryBaseDelay は指数バックオフの初回遅延。
	RetryBaseDelay time.Duration
}

// Client はトレーニングバックエンドのクライアント。
// サインインで発行されたセッションCookieをCookieJarで保持する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    *url.URL
	limiter    *rate.Limiter
	maxRetries int
	retryBase  time.Duration
}

// NewClient はClientの新しいインスタンスを生成する。
// collectorがnilの場合はメトリクスを記録しない。
func NewClient(cfg Config, logger *slog.Logger, collector metrics.MetricsCollector) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL scheme: %q", base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("API base URL has no host: %q", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Jar: jar},
		logger:     logger,
		metrics:    collector,
		baseURL:    base,
		limiter:    limiter,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBaseDelay,
	}, nil
}

// SignIn はメールアドレスとパスワードでサインインし、プロフィールを返す。
// POST /api/auth/sign_in
func (c *Client) SignIn(ctx context.Context, email, password string) (*model.Profile, error) {
	body := map[string]string{"email": email, "password": password}
	return getObject[model.Profile](ctx, c, http.MethodPost, "auth/sign_in", "auth/sign_in", nil, body)
}

// GetPerson は人物情報をプロフィールとして取得する。
// GET /api/people/{personId}
func (c *Client) GetPerson(ctx context.Context, personID int64) (*model.Profile, error) {
	path := "people/" + strconv.FormatInt(personID, 10)
	return getObject[model.Profile](ctx, c, http.MethodGet, path, "people/{id}", nil, nil)
}

// GetProgram はカスタムプログラムを取得する。
// GET /api/custom_programs/{programId}
func (c *Client) GetProgram(ctx context.Context, programID int64) (*model.Program, error) {
	path := "custom_programs/" + strconv.FormatInt(programID, 10)
	return getObject[model.Program](ctx, c, http.MethodGet, path, "custom_programs/{id}", nil, nil)
}

// GetCustomProgramMembership はプログラム所属を取得する。
// GET /api/custom_program_memberships/{membershipId}
func (c *Client) GetCustomProgramMembership(ctx context.Context, membershipID int64) (*model.Membership, error) {
	path := "custom_program_memberships/" + strconv.FormatInt(membershipID, 10)
	return getObject[model.Membership](ctx, c, http.MethodGet, path, "custom_program_memberships/{id}", nil, nil)
}

// GetWorkoutWeeks はプログラムのワークアウト週一覧を取得する。
// IDがnullのエントリもそのまま返すため、呼び出し側で除外する必要がある。
// GET /api/custom_programs/{programId}/workout_weeks?person_id={personId}
func (c *Client) GetWorkoutWeeks(ctx context.Context, personID, programID int64) ([]model.WorkoutWeek, error) {
	var weeks []model.WorkoutWeek
	path := "custom_programs/" + strconv.FormatInt(programID, 10) + "/workout_weeks"
	query := url.Values{"person_id": {strconv.FormatInt(personID, 10)}}
	if err := c.do(ctx, http.MethodGet, path, "custom_programs/{id}/workout_weeks", query, nil, &weeks); err != nil {
		return nil, err
	}
	return weeks, nil
}

// GetWorkout は週と日番号を指定してワークアウトを取得する。
// GET /api/workout_weeks/{weekId}/{dayNum}?person_id={personId}
func (c *Client) GetWorkout(ctx context.Context, personID, weekID int64, dayNum int) (*model.Workout, error) {
	path := "workout_weeks/" + strconv.FormatInt(weekID, 10) + "/" + strconv.Itoa(dayNum)
	query := url.Values{"person_id": {strconv.FormatInt(personID, 10)}}
	return getObject[model.Workout](ctx, c, http.MethodGet, path, "workout_weeks/{id}/{day}", query, nil)
}

// GetSmartSetsReferenceTables はスマートセット参照テーブルを取得する。
// GET /api/smart_sets/reference_tables
func (c *Client) GetSmartSetsReferenceTables(ctx context.Context) (*model.ReferenceTables, error) {
	return getObject[model.ReferenceTables](ctx, c, http.MethodGet, "smart_sets/reference_tables", "smart_sets/reference_tables", nil, nil)
}

// GetBlockTypeDescriptions はブロック種別の説明を取得する。
// GET /api/blocks
func (c *Client) GetBlockTypeDescriptions(ctx context.Context) (model.BlockDescriptions, error) {
	var descriptions model.BlockDescriptions
	if err := c.do(ctx, http.MethodGet, "blocks", "blocks", nil, nil, &descriptions); err != nil {
		return nil, err
	}
	return descriptions, nil
}

// getObject は単一オブジェクトを返すエンドポイントを呼び出す。
// ボディがJSONのnullの場合はデコード失敗として扱う。
func getObject[T any](ctx context.Context, c *Client, method, path, endpoint string, query url.Values, body any) (*T, error) {
	var out *T
	if err := c.do(ctx, method, path, endpoint, query, body, &out); err != nil {
		return nil, err
	}
	if out == nil {
		c.metrics.RecordBackendFailure(endpoint, "decode")
		c.logger.Error("レスポンスボディが空です",
			slog.String("endpoint", endpoint),
		)
		return nil, model.NewDecodeFailedError(endpoint)
	}
	return out, nil
}

// do はリクエストを送信し、レスポンスJSONをoutにデコードする。
// endpointはメトリクスとログ用のパステンプレート。
// GETの429/5xxと通信エラーはmaxRetries回まで指数バックオフでリトライする。
// サインインなどGET以外のリクエストは資格情報を再送しないためリトライしない。
func (c *Client) do(ctx context.Context, method, path, endpoint string, query url.Values, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.RecordBackendRetry(endpoint)
			delay := RetryDelay(attempt-1, c.retryBase)
			c.logger.Warn("バックエンド呼び出しをリトライします",
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		retry, err := c.attempt(ctx, method, path, endpoint, query, payload, out)
		if err == nil {
			return nil
		}
		if !retry || method != http.MethodGet || ctx.Err() != nil {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// attempt は1回分のHTTPリクエストを実行する。
// 戻り値のboolはリトライ可能な失敗かどうかを表す。
func (c *Client) attempt(ctx context.Context, method, path, endpoint string, query url.Values, payload []byte, out any) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	reqURL := c.baseURL.JoinPath(apiPrefix, path)
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reqBody)
	if err != nil {
		return false, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordBackendFailure(endpoint, "transport")
		c.logger.Error("バックエンドの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return true, fmt.Errorf("%s の呼び出しに失敗しました: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordBackendRequest(endpoint, resp.StatusCode, time.Since(start))

	switch ClassifyStatus(resp.StatusCode) {
	case StatusClassOK:
	case StatusClassRetry:
		c.metrics.RecordBackendFailure(endpoint, "status")
		c.logger.Error("バックエンドがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return true, model.NewBackendStatusError(endpoint, resp.StatusCode)
	default:
		c.metrics.RecordBackendFailure(endpoint, "status")
		c.logger.Warn("バックエンドがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return false, model.NewBackendStatusError(endpoint, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.RecordBackendFailure(endpoint, "read")
		return true, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		c.metrics.RecordBackendFailure(endpoint, "decode")
		c.logger.Error("レスポンスのパースに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return false, errors.Join(model.NewDecodeFailedError(endpoint), err)
	}

	return false, nil
}
