// Package security はアプリケーションのセキュリティ機能を提供する。
//
// DescriptionSanitizer はプログラムの説明文に含まれるリッチテキストをサニタイズし、
// 表示層にそのまま埋め込んでも安全なHTMLだけを返す。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"

	"github.com/Volt-Athletics/state-management-tests/internal/model"
)

// DescriptionSanitizer はプログラム説明文のサニタイズ機能のインターフェースを定義する。
type DescriptionSanitizer interface {
	// Sanitize はHTMLをサニタイズして安全なHTMLを返す。
	// 許可タグ（p, br, a, ul, ol, li, strong, em, b, i, h3, h4）のみを通過させる。
	// aタグのhrefはhttpsスキームのみ許可され、target="_blank"とrelが自動付与される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string

	// SanitizeProgram はプログラムの説明文をすべてサニタイズしたコピーを返す。
	// 引数のプログラムは変更しない。
	SanitizeProgram(program model.Program) model.Program
}

// descriptionSanitizer はDescriptionSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに利用できる。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer はDescriptionSanitizerの新しいインスタンスを生成する。
// 画像はプログラムのアセットとして別に配信されるため、imgタグは許可しない。
func NewDescriptionSanitizer() DescriptionSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em", "b", "i",
		"h3", "h4",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return u.Host != ""
	})
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &descriptionSanitizer{policy: p}
}

// Sanitize はHTMLをサニタイズして安全なHTMLを返す。
func (s *descriptionSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

// SanitizeProgram はプログラムの説明文をすべてサニタイズしたコピーを返す。
func (s *descriptionSanitizer) SanitizeProgram(program model.Program) model.Program {
	out := program

	if program.GeneratorProgramSeed != nil {
		seed := *program.GeneratorProgramSeed
		seed.MarketingDescription = s.sanitizePtr(seed.MarketingDescription)
		seed.Description = s.sanitizePtr(seed.Description)
		if len(seed.TrainingPerformanceFactors) > 0 {
			factors := make([]model.TrainingPerformanceFactor, len(seed.TrainingPerformanceFactors))
			for i, f := range seed.TrainingPerformanceFactors {
				f.Description = s.Sanitize(f.Description)
				factors[i] = f
			}
			seed.TrainingPerformanceFactors = factors
		}
		out.GeneratorProgramSeed = &seed
	}

	out.ConditioningPlans = s.sanitizeAssets(program.ConditioningPlans)
	out.WarmUps = s.sanitizeAssets(program.WarmUps)
	out.Primers = s.sanitizeAssets(program.Primers)
	out.Finishers = s.sanitizeAssets(program.Finishers)
	out.SAQs = s.sanitizeAssets(program.SAQs)

	return out
}

func (s *descriptionSanitizer) sanitizePtr(v *string) *string {
	if v == nil {
		return nil
	}
	sanitized := s.Sanitize(*v)
	return &sanitized
}

// sanitizeAssets は元のスライスを共有しないよう新しいスライスを返す。
func (s *descriptionSanitizer) sanitizeAssets(assets []model.SupplementalAsset) []model.SupplementalAsset {
	if assets == nil {
		return nil
	}
	out := make([]model.SupplementalAsset, len(assets))
	for i, a := range assets {
		a.Description = s.sanitizePtr(a.Description)
		out[i] = a
	}
	return out
}
