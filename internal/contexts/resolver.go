package contexts

import (
	"sync"

	"github.com/Volt-Athletics/state-management-tests/internal/model"
)

// derived は1つのプロフィールから導出した値のスナップショット。
type derived struct {
	profile   *model.Profile
	supported []model.Context
	coach     []model.Context
	pending   *model.Context
	token     string
	hasToken  bool
}

// Resolver はプロフィールを保持し、導出結果をプロフィールの同一性をキーにメモ化する。
// SetProfileで別のプロフィールが設定されるとキャッシュは破棄される。
// 読み取りは並行に呼び出してよい。
type Resolver struct {
	mu      sync.RWMutex
	profile *model.Profile
	cache   *derived
}

// NewResolver は空のResolverを生成する。
func NewResolver() *Resolver {
	return &Resolver{}
}

// SetProfile は保持するプロフィールを丸ごと置き換え、導出キャッシュを無効化する。
func (r *Resolver) SetProfile(profile *model.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profile = profile
	r.cache = nil
}

// Profile は保持中のプロフィールを返す。未設定の場合はnil。
func (r *Resolver) Profile() *model.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profile
}

// snapshot は現在のプロフィールに対応する導出結果を返す。
// キャッシュが同じプロフィールのものであれば再計算しない。
func (r *Resolver) snapshot() (*derived, error) {
	r.mu.RLock()
	profile, cache := r.profile, r.cache
	r.mu.RUnlock()

	if profile == nil {
		return nil, model.NewInvalidStateError("resolver has no profile")
	}
	if cache != nil && cache.profile == profile {
		return cache, nil
	}

	d, err := derive(profile)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	// 計算中にSetProfileされた場合は古い結果をキャッシュしない
	if r.profile == profile {
		r.cache = d
	}
	r.mu.Unlock()
	return d, nil
}

func derive(profile *model.Profile) (*derived, error) {
	supported, err := SupportedContexts(profile)
	if err != nil {
		return nil, err
	}
	coach, err := CoachContexts(profile)
	if err != nil {
		return nil, err
	}
	pending, err := PendingIndependentSetupContext(profile)
	if err != nil {
		return nil, err
	}
	token, ok := selectToken(supported)
	return &derived{
		profile:   profile,
		supported: supported,
		coach:     coach,
		pending:   pending,
		token:     token,
		hasToken:  ok,
	}, nil
}

// SupportedContexts は選択可能なコンテキストのコピーを返す。
func (r *Resolver) SupportedContexts() ([]model.Context, error) {
	d, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]model.Context, len(d.supported))
	copy(out, d.supported)
	return out, nil
}

// CoachContexts はコーチとして関わるチームのコピーを返す。
func (r *Resolver) CoachContexts() ([]model.Context, error) {
	d, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]model.Context, len(d.coach))
	copy(out, d.coach)
	return out, nil
}

// SelectedContextToken は選択中のコンテキストトークンを返す。
func (r *Resolver) SelectedContextToken() (string, bool, error) {
	d, err := r.snapshot()
	if err != nil {
		return "", false, err
	}
	return d.token, d.hasToken, nil
}

// SelectedContext は選択中のコンテキストを返す。選択できない場合はnil。
func (r *Resolver) SelectedContext() (*model.Context, error) {
	d, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	return findSelected(d.supported), nil
}

// PendingIndependentSetupContext は保留中の独立セットアップコンテキストを返す。
func (r *Resolver) PendingIndependentSetupContext() (*model.Context, error) {
	d, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	if d.pending == nil {
		return nil, nil
	}
	c := *d.pending
	return &c, nil
}

// IsPendingIndependentSetup は独立セットアップが保留中かを返す。
func (r *Resolver) IsPendingIndependentSetup() (bool, error) {
	d, err := r.snapshot()
	if err != nil {
		return false, err
	}
	return d.pending != nil, nil
}
