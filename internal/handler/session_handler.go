package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Volt-Athletics/state-management-tests/internal/middleware"
	"github.com/Volt-Athletics/state-management-tests/internal/model"
	"github.com/Volt-Athletics/state-management-tests/internal/security"
	"github.com/Volt-Athletics/state-management-tests/internal/session"
)

// SessionManager はセッションハンドラーが必要とするセッション管理のインターフェース。
// session.Managerが実装する。
type SessionManager interface {
	// Start はサインインしてセッションを初期化し、現在のセッションとして設定する。
	Start(ctx context.Context, email, password string) (*session.Session, error)
	// Current は現在のセッションを返す。無い場合はnil。
	Current() *session.Session
	// End は現在のセッションを破棄する。
	End() bool
}

// SessionHandler はセッションと表示用データのHTTPハンドラー。
type SessionHandler struct {
	manager   SessionManager
	sanitizer security.DescriptionSanitizer
	logger    *slog.Logger
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(manager SessionManager, sanitizer security.DescriptionSanitizer, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		manager:   manager,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// signInRequest はサインインリクエストのボディ。
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// statusResponse はセッション状態のAPIレスポンス。
type statusResponse struct {
	SessionID string    `json:"session_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Errors    []string  `json:"errors"`
}

// contextsResponse は選択可能なコンテキスト一覧のAPIレスポンス。
type contextsResponse struct {
	Supported               []model.Context `json:"supported"`
	Coaching                []model.Context `json:"coaching"`
	SelectedToken           *string         `json:"selected_token"`
	PendingIndependentSetup *model.Context  `json:"pending_independent_setup"`
}

// selectedContextResponse は選択中コンテキストのAPIレスポンス。
type selectedContextResponse struct {
	Context              model.Context `json:"context"`
	ShouldUpdateOnServer bool          `json:"should_update_on_server"`
	HasProgram           bool          `json:"has_program"`
}

// programResponse は選択中プログラムのAPIレスポンス。
type programResponse struct {
	Program    model.Program     `json:"program"`
	Membership *model.Membership `json:"membership"`
}

// weekResponse は今週のワークアウト週のAPIレスポンス。
type weekResponse struct {
	Week             model.WorkoutWeek       `json:"week"`
	Workout          *model.Workout          `json:"workout"`
	BlockDescription *model.BlockDescription `json:"block_description"`
}

// SignIn はサインインしてセッションを開始する。既存のセッションは置き換えられる。
// POST /session
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("メールアドレスとパスワードは必須です"))
		return
	}

	s, err := h.manager.Start(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toStatusResponse(s))
}

// SignOut は現在のセッションを破棄する。
// DELETE /session
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if !h.manager.End() {
		writeAPIErrorResponse(w, http.StatusConflict, model.NewNoSessionError())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh はプロフィールを再取得し、導出済みコンテキストを更新する。
// POST /session/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}

	if err := s.RefreshProfile(r.Context()); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.Profile())
}

// Status はセッションの初期化状態を返す。
// GET /session/status
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(s))
}

// Profile はサインインしたユーザーのプロフィールを返す。
// GET /session/profile
func (h *SessionHandler) Profile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Profile())
}

// Contexts は選択可能なトレーニングコンテキストの一覧を返す。
// GET /session/contexts
func (h *SessionHandler) Contexts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}

	supported, err := s.SupportedContexts()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	coaching, err := s.CoachContexts()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	pending, err := s.PendingIndependentSetupContext()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	selected, err := s.SelectedContext()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := contextsResponse{
		Supported:               supported,
		Coaching:                coaching,
		PendingIndependentSetup: pending,
	}
	if selected != nil {
		token := selected.ContextToken
		resp.SelectedToken = &token
	}
	writeJSON(w, http.StatusOK, resp)
}

// SelectedContext は選択中のトレーニングコンテキストを返す。
// GET /session/context
func (h *SessionHandler) SelectedContext(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}

	selected, err := s.SelectedContext()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if selected == nil {
		writeAPIErrorResponse(w, http.StatusConflict, model.NewNoContextError())
		return
	}

	shouldUpdate, err := s.ShouldUpdateSelectedContextOnServer()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, selectedContextResponse{
		Context:              *selected,
		ShouldUpdateOnServer: shouldUpdate,
		HasProgram:           selected.HasProgram(),
	})
}

// Program は選択中コンテキストのプログラムを返す。説明文はサニタイズ済み。
// GET /session/program
func (h *SessionHandler) Program(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}

	program, err := s.CurrentProgram()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if program == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "PROGRAM_NOT_LOADED",
			Message:  "選択中のプログラムが読み込まれていません。",
			Category: "session",
			Action:   "セッションの状態を確認してください。",
		})
		return
	}

	membership, err := s.CurrentMembership()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, programResponse{
		Program:    h.sanitizer.SanitizeProgram(*program),
		Membership: membership,
	})
}

// Week は今週のワークアウト週と1日目のワークアウトを返す。
// GET /session/week
func (h *SessionHandler) Week(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}

	week := s.CurrentWeek()
	if week == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "WEEK_NOT_LOADED",
			Message:  "今週のワークアウトがありません。",
			Category: "session",
			Action:   "プログラムの開始日を確認してください。",
		})
		return
	}

	resp := weekResponse{Week: *week}
	if workout, ok := s.WeekWorkout(*week.ID, 1); ok {
		resp.Workout = &workout
	}
	if desc, ok := s.BlockDescription(week.BlockType); ok {
		resp.BlockDescription = &desc
	}
	writeJSON(w, http.StatusOK, resp)
}

// Workouts は取得済みのワークアウトを "<id>/<dayNum>" をキーとして返す。
// GET /session/workouts
func (h *SessionHandler) Workouts(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Workouts())
}

// currentSession は現在のセッションを返す。無い場合は409を書き込みfalseを返す。
func (h *SessionHandler) currentSession(w http.ResponseWriter) (*session.Session, bool) {
	s := h.manager.Current()
	if s == nil {
		writeAPIErrorResponse(w, http.StatusConflict, model.NewNoSessionError())
		return nil, false
	}
	return s, true
}

// handleServiceError はセッション層から返されたエラーを適切なHTTPステータスコードに変換する。
func (h *SessionHandler) handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, middleware.StatusForAPIError(apiErr), apiErr)
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		writeAPIErrorResponse(w, http.StatusGatewayTimeout, &model.APIError{
			Code:     "BACKEND_TIMEOUT",
			Message:  "バックエンドの応答がありませんでした。",
			Category: "backend",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	h.logger.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

func toStatusResponse(s *session.Session) statusResponse {
	errs := s.Errors()
	messages := make([]string, len(errs))
	for i, err := range errs {
		messages[i] = err.Error()
	}
	return statusResponse{
		SessionID: s.ID(),
		Status:    string(s.Status()),
		CreatedAt: s.CreatedAt(),
		Errors:    messages,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}
