// Package session はサインインから破棄までのユーザーセッションを提供する。
// セッションはプロフィール、選択中コンテキストの導出、プログラムとワークアウトの
// エンティティマップを保持し、初期化時にバックエンドから必要なデータを取得する。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Volt-Athletics/state-management-tests/internal/contexts"
	"github.com/Volt-Athletics/state-management-tests/internal/metrics"
	"github.com/Volt-Athletics/state-management-tests/internal/model"
	"github.com/Volt-Athletics/state-management-tests/internal/store"
)

// Status はセッション初期化の進行状態を表す。
type Status string

const (
	// StatusPending は初期化前または初期化中。
	StatusPending Status = "pending"
	// StatusReady はすべてのデータ取得に成功した状態。
	StatusReady Status = "ready"
	// StatusPartial はサインインには成功したが一部データが欠けている状態。
	StatusPartial Status = "partial"
	// StatusFailed はサインインまたはプログラム取得に失敗した状態。
	StatusFailed Status = "failed"
)

// firstTrainingDay は初期化時に取得するワークアウトの日番号。
const firstTrainingDay = 1

var (
	// ErrAlreadyStarted はBootstrapが2回以上呼ばれた場合に返される。
	ErrAlreadyStarted = errors.New("session already bootstrapped")
	// ErrClosed はClose後のセッションを使おうとした場合に返される。
	ErrClosed = errors.New("session closed")
	// ErrNoProgram は選択中コンテキストにプログラムが紐付いていないことを表す。
	ErrNoProgram = errors.New("selected context has no program")
	// ErrNoCurrentWeek は今週に該当するワークアウト週が無いことを表す。
	ErrNoCurrentWeek = errors.New("no workout week for the current week")
)

// Service はセッションが利用するバックエンドAPI。
// api.Clientが実装する。
type Service interface {
	SignIn(ctx context.Context, email, password string) (*model.Profile, error)
	GetPerson(ctx context.Context, personID int64) (*model.Profile, error)
	GetProgram(ctx context.Context, programID int64) (*model.Program, error)
	GetCustomProgramMembership(ctx context.Context, membershipID int64) (*model.Membership, error)
	GetWorkoutWeeks(ctx context.Context, personID, programID int64) ([]model.WorkoutWeek, error)
	GetWorkout(ctx context.Context, personID, weekID int64, dayNum int) (*model.Workout, error)
	GetSmartSetsReferenceTables(ctx context.Context) (*model.ReferenceTables, error)
	GetBlockTypeDescriptions(ctx context.Context) (model.BlockDescriptions, error)
}

// Option はSessionの生成オプション。
type Option func(*Session)

// WithLogger はロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics はメトリクスコレクターを設定する。
func WithMetrics(collector metrics.MetricsCollector) Option {
	return func(s *Session) {
		if collector != nil {
			s.metrics = collector
		}
	}
}

// WithClock は現在時刻の取得関数を差し替える。今週の判定に使う。
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// Session は1人のユーザーのサインインから破棄までの状態を保持する。
// サインインごとに生成し、サインアウト時にCloseで破棄する。
type Session struct {
	id        string
	createdAt time.Time
	service   Service
	logger    *slog.Logger
	metrics   metrics.MetricsCollector
	now       func() time.Time

	resolver *contexts.Resolver
	programs *store.ProgramStore
	workouts *store.WorkoutStore

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	started bool
	status  Status
	errs    []error
}

// New は未初期化のSessionを生成する。
func New(service Service, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       uuid.NewString(),
		service:  service,
		logger:   slog.Default(),
		metrics:  metrics.NopCollector{},
		now:      time.Now,
		resolver: contexts.NewResolver(),
		programs: store.NewProgramStore(),
		workouts: store.NewWorkoutStore(),
		ctx:      ctx,
		cancel:   cancel,
		status:   StatusPending,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.createdAt = s.now()
	s.logger = s.logger.With(slog.String("session_id", s.id))
	return s
}

// ID はセッションIDを返す。
func (s *Session) ID() string {
	return s.id
}

// CreatedAt はセッションの生成時刻を返す。
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Bootstrap はサインインし、表示に必要なデータを順に取得する。
//
//  1. サインインしてプロフィールを設定する（失敗時はFailed）
//  2. 選択中コンテキストを導出する（無ければPartialで終了）
//  3. 所属、参照テーブル、プログラム、ブロック説明を並行取得する
//     （プログラムの失敗はFailed、それ以外はPartial）
//  4. プログラムのワークアウト週を取得する
//  5. 今週の1日目のワークアウトを取得する
//
// Failedの場合のみエラーを返す。Partialの原因はErrorsで参照できる。
func (s *Session) Bootstrap(ctx context.Context, email, password string) (Status, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return s.Status(), ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	if err := s.ctx.Err(); err != nil {
		return StatusFailed, ErrClosed
	}

	// Closeでも呼び出し元のキャンセルでも中断できるようにする
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	start := s.now()
	s.logger.Info("セッションの初期化を開始します")

	status, err := s.bootstrap(ctx, email, password)

	s.mu.Lock()
	s.status = status
	s.mu.Unlock()

	s.metrics.RecordBootstrap(string(status), s.now().Sub(start))
	if err != nil {
		s.logger.Error("セッションの初期化に失敗しました",
			slog.String("error", err.Error()),
		)
		return status, err
	}
	s.logger.Info("セッションの初期化が完了しました",
		slog.String("status", string(status)),
		slog.Int("partial_errors", len(s.Errors())),
	)
	return status, nil
}

func (s *Session) bootstrap(ctx context.Context, email, password string) (Status, error) {
	profile, err := s.service.SignIn(ctx, email, password)
	if err != nil {
		return StatusFailed, fmt.Errorf("サインインに失敗しました: %w", err)
	}
	if profile == nil {
		return StatusFailed, model.NewInvalidStateError("sign-in returned no profile")
	}
	s.resolver.SetProfile(profile)
	s.logger.Info("サインインしました", slog.Int64("person_id", profile.PersonID))

	selected, err := s.resolver.SelectedContext()
	if err != nil {
		return StatusFailed, err
	}
	if selected == nil {
		s.addError(model.NewNoContextError())
		return StatusPartial, nil
	}

	if err := s.fetchProgramData(ctx, selected); err != nil {
		return StatusFailed, err
	}

	program := s.programs.CurrentProgram(selected)
	if program == nil {
		s.addError(ErrNoProgram)
		return s.finalStatus(), nil
	}

	weeks, err := s.service.GetWorkoutWeeks(ctx, profile.PersonID, program.ID)
	if err != nil {
		s.addError(fmt.Errorf("ワークアウト週の取得に失敗しました: %w", err))
		return s.finalStatus(), nil
	}
	stored := s.workouts.SetWorkoutWeeks(weeks)
	s.metrics.RecordEntitiesUpserted("workout_week", stored)
	if skipped := len(weeks) - stored; skipped > 0 {
		s.logger.Warn("IDの無いワークアウト週を除外しました", slog.Int("count", skipped))
	}

	week := s.workouts.CurrentWeek(s.now())
	if week == nil {
		s.addError(ErrNoCurrentWeek)
		return s.finalStatus(), nil
	}

	workout, err := s.service.GetWorkout(ctx, profile.PersonID, *week.ID, firstTrainingDay)
	if err != nil {
		s.addError(fmt.Errorf("ワークアウトの取得に失敗しました: %w", err))
		return s.finalStatus(), nil
	}
	s.workouts.UpsertWeekWorkout(*week.ID, firstTrainingDay, *workout)
	s.metrics.RecordEntitiesUpserted("workout", 1)

	return s.finalStatus(), nil
}

// fetchProgramData は選択中コンテキストに関するデータを並行取得する。
// プログラムの取得失敗のみをエラーとして返し、他の失敗は部分エラーとして記録する。
func (s *Session) fetchProgramData(ctx context.Context, selected *model.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	// プログラムの取得失敗でgctxがキャンセルされた後の失敗は記録しない
	addError := func(err error) {
		if gctx.Err() != nil && ctx.Err() == nil {
			return
		}
		s.addError(err)
	}

	if selected.ProgramMembershipID != nil {
		membershipID := *selected.ProgramMembershipID
		g.Go(func() error {
			membership, err := s.service.GetCustomProgramMembership(gctx, membershipID)
			if err != nil {
				addError(fmt.Errorf("プログラム所属の取得に失敗しました: %w", err))
				return nil
			}
			s.programs.UpsertMembership(*membership)
			s.metrics.RecordEntitiesUpserted("membership", 1)
			return nil
		})
	}

	g.Go(func() error {
		tables, err := s.service.GetSmartSetsReferenceTables(gctx)
		if err != nil {
			addError(fmt.Errorf("参照テーブルの取得に失敗しました: %w", err))
			return nil
		}
		s.workouts.SetReferenceTables(tables)
		return nil
	})

	if selected.ProgramID != nil {
		programID := *selected.ProgramID
		g.Go(func() error {
			program, err := s.service.GetProgram(gctx, programID)
			if err != nil {
				return fmt.Errorf("プログラムの取得に失敗しました: %w", err)
			}
			s.programs.UpsertProgram(*program)
			s.metrics.RecordEntitiesUpserted("program", 1)
			return nil
		})
	}

	g.Go(func() error {
		descriptions, err := s.service.GetBlockTypeDescriptions(gctx)
		if err != nil {
			addError(fmt.Errorf("ブロック説明の取得に失敗しました: %w", err))
			return nil
		}
		s.workouts.SetBlockDescriptions(descriptions)
		return nil
	})

	return g.Wait()
}

// RefreshProfile はバックエンドから人物情報を再取得してプロフィールを置き換える。
// 導出済みのコンテキストは破棄される。
func (s *Session) RefreshProfile(ctx context.Context) error {
	if err := s.ctx.Err(); err != nil {
		return ErrClosed
	}
	current := s.resolver.Profile()
	if current == nil {
		return model.NewInvalidStateError("session has no profile")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	profile, err := s.service.GetPerson(ctx, current.PersonID)
	if err != nil {
		return fmt.Errorf("プロフィールの再取得に失敗しました: %w", err)
	}
	if profile == nil {
		return model.NewInvalidStateError("person lookup returned no profile")
	}
	s.resolver.SetProfile(profile)
	s.logger.Info("プロフィールを更新しました", slog.Int64("person_id", current.PersonID))
	return nil
}

// Close はセッションを破棄し、実行中のバックエンド呼び出しをキャンセルする。
func (s *Session) Close() {
	s.cancel()
}

// Closed はCloseが呼ばれたかを返す。
func (s *Session) Closed() bool {
	return s.ctx.Err() != nil
}

func (s *Session) addError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *Session) finalStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.errs) > 0 {
		return StatusPartial
	}
	return StatusReady
}

// Status は現在の初期化状態を返す。
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Errors はPartialとなった原因のエラーを発生順に返す。
func (s *Session) Errors() []error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]error, len(s.errs))
	copy(out, s.errs)
	return out
}

// Profile はサインインしたユーザーのプロフィールを返す。サインイン前はnil。
func (s *Session) Profile() *model.Profile {
	return s.resolver.Profile()
}

// SupportedContexts は選択可能なトレーニングコンテキストを返す。
func (s *Session) SupportedContexts() ([]model.Context, error) {
	return s.resolver.SupportedContexts()
}

// CoachContexts はコーチとして関わるチームのコンテキストを返す。
func (s *Session) CoachContexts() ([]model.Context, error) {
	return s.resolver.CoachContexts()
}

// SelectedContext は選択中のトレーニングコンテキストを返す。無い場合はnil。
func (s *Session) SelectedContext() (*model.Context, error) {
	return s.resolver.SelectedContext()
}

// PendingIndependentSetupContext は独立アスリートとしての設定待ちコンテキストを返す。
func (s *Session) PendingIndependentSetupContext() (*model.Context, error) {
	return s.resolver.PendingIndependentSetupContext()
}

// ShouldUpdateSelectedContextOnServer は導出した選択コンテキストを
// バックエンドに反映する必要があるかを返す。
func (s *Session) ShouldUpdateSelectedContextOnServer() (bool, error) {
	return contexts.ShouldUpdateSelectedContextOnServer(s.resolver.Profile())
}

// CurrentProgram は選択中コンテキストのプログラムを返す。
// コンテキストが無い、またはプログラムが未取得の場合はnil。
func (s *Session) CurrentProgram() (*model.Program, error) {
	selected, err := s.resolver.SelectedContext()
	if err != nil {
		return nil, err
	}
	return s.programs.CurrentProgram(selected), nil
}

// CurrentMembership は選択中コンテキストのプログラム所属を返す。
func (s *Session) CurrentMembership() (*model.Membership, error) {
	selected, err := s.resolver.SelectedContext()
	if err != nil {
		return nil, err
	}
	if selected == nil || selected.ProgramMembershipID == nil {
		return nil, nil
	}
	membership, ok := s.programs.Membership(*selected.ProgramMembershipID)
	if !ok {
		return nil, nil
	}
	return &membership, nil
}

// CurrentWeek は今週のワークアウト週を返す。無い場合はnil。
func (s *Session) CurrentWeek() *model.WorkoutWeek {
	return s.workouts.CurrentWeek(s.now())
}

// WorkoutWeeks は取得済みのワークアウト週をバックエンドの並び順で返す。
func (s *Session) WorkoutWeeks() []model.WorkoutWeek {
	return s.workouts.WorkoutWeeks()
}

// Workouts は取得済みのワークアウトを "<id>/<dayNum>" をキーとして返す。
func (s *Session) Workouts() map[string]model.Workout {
	return s.workouts.Workouts()
}

// Workout はワークアウトIDと日番号に対応するワークアウトを返す。
func (s *Session) Workout(weekID int64, dayNum int) (model.Workout, bool) {
	return s.workouts.Workout(weekID, dayNum)
}

// WeekWorkout は週IDと日番号を指定して取得したワークアウトを返す。
func (s *Session) WeekWorkout(weekID int64, dayNum int) (model.Workout, bool) {
	return s.workouts.WeekWorkout(weekID, dayNum)
}

// ReferenceTables はスマートセット参照テーブルを返す。未取得の場合はnil。
func (s *Session) ReferenceTables() *model.ReferenceTables {
	return s.workouts.ReferenceTables()
}

// BlockDescription はブロック種別の説明を返す。
func (s *Session) BlockDescription(blockType string) (model.BlockDescription, bool) {
	return s.workouts.BlockDescription(blockType)
}
