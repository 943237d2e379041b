package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/Volt-Athletics/state-management-tests/internal/api"
	"github.com/Volt-Athletics/state-management-tests/internal/config"
	"github.com/Volt-Athletics/state-management-tests/internal/handler"
	"github.com/Volt-Athletics/state-management-tests/internal/logger"
	"github.com/Volt-Athletics/state-management-tests/internal/metrics"
	"github.com/Volt-Athletics/state-management-tests/internal/middleware"
	"github.com/Volt-Athletics/state-management-tests/internal/security"
	"github.com/Volt-Athletics/state-management-tests/internal/session"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandBootstrap:
		return runBootstrap(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// components はサブコマンド間で共有する依存関係。
type components struct {
	registry *prometheus.Registry
	metrics  *metrics.Collector
	client   *api.Client
}

// newComponents はメトリクスレジストリとバックエンドAPIクライアントを構築する。
func newComponents(cfg *config.Config) (*components, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	client, err := api.NewClient(api.Config{
		BaseURL:    cfg.APIBaseURL,
		Timeout:    cfg.APITimeout,
		RateLimit:  rate.Limit(cfg.APIRateLimit),
		RateBurst:  cfg.APIRateBurst,
		MaxRetries: cfg.APIMaxRetries,
	}, slog.Default(), collector)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	return &components{registry: reg, metrics: collector, client: client}, nil
}

// newSession はバックエンドクライアントに紐付いた未初期化のSessionを生成する。
func (c *components) newSession() *session.Session {
	return session.New(c.client,
		session.WithLogger(slog.Default()),
		session.WithMetrics(c.metrics),
	)
}

// runServe は表示用APIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされる（SIGINT/SIGTERM）とグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. バックエンドクライアントとメトリクス
	comps, err := newComponents(cfg)
	if err != nil {
		return err
	}

	// 2. セッション管理
	manager := session.NewManager(comps.newSession, slog.Default())
	defer manager.End()

	// 3. サインインのレート制限（req/min -> req/sec に変換）
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:            rate.Limit(float64(cfg.SignInRateLimit) / 60.0),
		Burst:           cfg.SignInRateBurst,
		CleanupInterval: middleware.DefaultSignInRateLimiterConfig().CleanupInterval,
	}, slog.Default())
	defer limiter.Stop()

	// 4. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		SignInLimiter:     limiter,
		Sessions:          manager,
		Sanitizer:         security.NewDescriptionSanitizer(),
		MetricsHandler:    metrics.Handler(comps.registry),
	})

	// 5. HTTPサーバーの起動
	// サインインはバックエンドへの複数呼び出しを含むため、WriteTimeoutはAPIタイムアウトより長くとる
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + 4*cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runBootstrap は環境変数の資格情報でサインインし、セッションを1回初期化する。
// 初期化結果の要約をログに出力し、Failedの場合のみエラーを返す。
func runBootstrap(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireSignIn(); err != nil {
		return err
	}

	comps, err := newComponents(cfg)
	if err != nil {
		return err
	}

	s := comps.newSession()
	defer s.Close()

	status, err := s.Bootstrap(ctx, cfg.SignInEmail, cfg.SignInPassword)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	attrs := []any{
		slog.String("session_id", s.ID()),
		slog.String("status", string(status)),
	}
	if selected, err := s.SelectedContext(); err == nil && selected != nil {
		attrs = append(attrs, slog.String("context_token", selected.ContextToken))
	}
	if program, err := s.CurrentProgram(); err == nil && program != nil {
		attrs = append(attrs, slog.String("program", program.Name))
	}
	if week := s.CurrentWeek(); week != nil {
		attrs = append(attrs, slog.String("week_start_date", week.WeekStartDate))
	}
	attrs = append(attrs, slog.Int("workouts", len(s.Workouts())))
	for _, e := range s.Errors() {
		slog.Warn("bootstrap step failed", slog.String("error", e.Error()))
	}

	slog.Info("bootstrap summary", attrs...)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
