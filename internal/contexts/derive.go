// Package contexts はプロフィールからトレーニングコンテキストを導出する。
//
// 組織・チーム・独立アスリートのレコードから選択可能なコンテキストを集め、
// アクティブなコンテキストを決定的に1つ選ぶ。導出関数はすべて純粋関数で、
// プロフィールを変更しない。
package contexts

import (
	"github.com/Volt-Athletics/state-management-tests/internal/model"
)

// Category は組織内でのコンテキストの関係種別。
type Category string

const (
	// CategoryCoaching はコーチとして関わるチーム。
	CategoryCoaching Category = "teamsCoachingOn"
	// CategoryPlaying は選手として所属するチーム。
	CategoryPlaying Category = "teamsPlayingOn"
	// CategorySelfDirected は組織内の自主トレーニングプログラム。
	CategorySelfDirected Category = "selfDirectedTrainingPrograms"
)

// Valid は既知のカテゴリかどうかを返す。
func (c Category) Valid() bool {
	switch c {
	case CategoryCoaching, CategoryPlaying, CategorySelfDirected:
		return true
	default:
		return false
	}
}

func (c Category) contextsOf(org *model.Organization) []model.Context {
	switch c {
	case CategoryCoaching:
		return org.TeamsCoachingOn
	case CategoryPlaying:
		return org.TeamsPlayingOn
	case CategorySelfDirected:
		return org.SelfDirectedTrainingPrograms
	default:
		return nil
	}
}

func requireProfile(profile *model.Profile) error {
	if profile == nil {
		return model.NewInvalidStateError("profile is required before deriving contexts")
	}
	return nil
}

// CollectContexts は全組織から指定カテゴリのコンテキストを組織順に連結して返す。
// 空レコードは除外する。requireProgramIDがtrueの場合はプログラムIDを持たない
// レコードも除外する。
func CollectContexts(profile *model.Profile, category Category, requireProgramID bool) ([]model.Context, error) {
	if err := requireProfile(profile); err != nil {
		return nil, err
	}

	contexts := []model.Context{}
	for i := range profile.Organizations {
		for _, c := range category.contextsOf(&profile.Organizations[i]) {
			if c.IsEmpty() {
				continue
			}
			if requireProgramID && !c.HasProgram() {
				continue
			}
			contexts = append(contexts, c)
		}
	}
	return contexts, nil
}

// TeamPlayerContexts は選手として所属するチームのうちプログラムを持つものを返す。
func TeamPlayerContexts(profile *model.Profile) ([]model.Context, error) {
	return CollectContexts(profile, CategoryPlaying, true)
}

// SelfDirectedContexts は組織内の自主トレーニングのうちプログラムを持つものを返す。
func SelfDirectedContexts(profile *model.Profile) ([]model.Context, error) {
	return CollectContexts(profile, CategorySelfDirected, true)
}

// CoachContexts はコーチとして関わるチームを返す。
// コーチのコンテキストはプログラムIDを要求しない。
func CoachContexts(profile *model.Profile) ([]model.Context, error) {
	return CollectContexts(profile, CategoryCoaching, false)
}

// IndependentContexts は独立アスリートのトレーニングプログラムから空レコードを除いて返す。
// 独立アスリート情報が無い場合は空スライスを返す。
func IndependentContexts(profile *model.Profile) ([]model.Context, error) {
	if err := requireProfile(profile); err != nil {
		return nil, err
	}

	contexts := []model.Context{}
	if profile.IndependentAthlete == nil {
		return contexts, nil
	}
	for _, c := range profile.IndependentAthlete.TrainingPrograms {
		if !c.IsEmpty() {
			contexts = append(contexts, c)
		}
	}
	return contexts, nil
}

// IsIneligibleForIndependentSetup は独立アスリート、チーム選手、コーチ、自主トレーニングの
// いずれかのコンテキストを既に持っているかを返す。
// trueの場合、独立セットアップの案内は表示しない。
func IsIneligibleForIndependentSetup(profile *model.Profile) (bool, error) {
	collectors := []func(*model.Profile) ([]model.Context, error){
		IndependentContexts,
		TeamPlayerContexts,
		CoachContexts,
		SelfDirectedContexts,
	}
	for _, collect := range collectors {
		contexts, err := collect(profile)
		if err != nil {
			return false, err
		}
		if len(contexts) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// PendingIndependentSetupContext は保留中の独立セットアップコンテキストを返す。
// 他のコンテキストを持つユーザー、またはレコードが無いか空の場合はnilを返す。
func PendingIndependentSetupContext(profile *model.Profile) (*model.Context, error) {
	ineligible, err := IsIneligibleForIndependentSetup(profile)
	if err != nil {
		return nil, err
	}
	if ineligible || profile.IndependentAthlete == nil {
		return nil, nil
	}

	pending := profile.IndependentAthlete.PendingIndependentSetup
	if pending.IsEmpty() {
		return nil, nil
	}
	c := *pending
	return &c, nil
}

// SupportedContexts は選択可能なコンテキストを固定順で返す。
// 順序: 独立アスリート → チーム選手 → 自主トレーニング → 保留中の独立セットアップ。
// コーチのコンテキストは含まない。この順序が既定選択の優先順位になる。
func SupportedContexts(profile *model.Profile) ([]model.Context, error) {
	independent, err := IndependentContexts(profile)
	if err != nil {
		return nil, err
	}
	player, err := TeamPlayerContexts(profile)
	if err != nil {
		return nil, err
	}
	selfDirected, err := SelfDirectedContexts(profile)
	if err != nil {
		return nil, err
	}
	pending, err := PendingIndependentSetupContext(profile)
	if err != nil {
		return nil, err
	}

	supported := make([]model.Context, 0, len(independent)+len(player)+len(selfDirected)+1)
	supported = append(supported, independent...)
	supported = append(supported, player...)
	supported = append(supported, selfDirected...)
	if pending != nil {
		supported = append(supported, *pending)
	}
	return supported, nil
}

// SelectedContextToken は選択中のコンテキストトークンを返す。
// selected?フラグが立った最初のコンテキストを優先し、無ければ先頭のコンテキストを使う。
// 選択可能なコンテキストが無い場合はokがfalseになる。
func SelectedContextToken(profile *model.Profile) (token string, ok bool, err error) {
	supported, err := SupportedContexts(profile)
	if err != nil {
		return "", false, err
	}
	token, ok = selectToken(supported)
	return token, ok, nil
}

func selectToken(supported []model.Context) (string, bool) {
	for _, c := range supported {
		if c.Selected {
			return c.ContextToken, true
		}
	}
	// コーチはsupportedに含まれないため、フラグが無ければ先頭を既定とする
	if len(supported) > 0 {
		return supported[0].ContextToken, true
	}
	return "", false
}

// SelectedContext は選択中のコンテキストを返す。選択できない場合はnil。
func SelectedContext(profile *model.Profile) (*model.Context, error) {
	supported, err := SupportedContexts(profile)
	if err != nil {
		return nil, err
	}
	return findSelected(supported), nil
}

func findSelected(supported []model.Context) *model.Context {
	token, ok := selectToken(supported)
	if !ok {
		return nil
	}
	for i := range supported {
		if supported[i].ContextToken == token {
			c := supported[i]
			return &c
		}
	}
	return nil
}

// ShouldUseTeamApp は選択可能なコンテキストを1つ以上持つかを返す。
func ShouldUseTeamApp(profile *model.Profile) (bool, error) {
	supported, err := SupportedContexts(profile)
	if err != nil {
		return false, err
	}
	return len(supported) > 0, nil
}

// ShouldUpdateSelectedContextOnServer はチームアプリを使わない場合にtrueを返す。
// 選択可能なコンテキストが無いときクライアント側のトークンは未決定であり、
// サーバーの currentContextToken（空文字列を含む）とは常に異なるとみなす。
func ShouldUpdateSelectedContextOnServer(profile *model.Profile) (bool, error) {
	supported, err := SupportedContexts(profile)
	if err != nil {
		return false, err
	}
	return len(supported) == 0, nil
}
