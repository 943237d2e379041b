// Package model はドメインモデルを定義する。
package model

import "encoding/json"

// DefaultUnitSystem はプロフィールに単位系が含まれない場合の既定値。
const DefaultUnitSystem = "IMPERIAL"

// Gender はプロフィールの性別を表す。
type Gender string

const (
	GenderMale    Gender = "MALE"
	GenderFemale  Gender = "FEMALE"
	GenderNeutral Gender = "NEUTRAL"
)

// Image は画像URLを表す。
type Image struct {
	DefaultURL string `json:"defaultUrl"`
}

// Profile はサインイン時にバックエンドから返されるユーザープロフィール。
// サインインのたびに丸ごと置き換えられる。
type Profile struct {
	PersonID                     int64               `json:"personId"`
	UserID                       int64               `json:"userId"`
	DisplayName                  string              `json:"displayName"`
	FirstName                    string              `json:"firstName"`
	LastName                     string              `json:"lastName"`
	Email                        string              `json:"email"`
	UnitSystem                   string              `json:"unitSystem"`
	Gender                       *Gender             `json:"gender"`
	DateOfBirth                  *string             `json:"dateOfBirth"`
	HeightInInches               *float64            `json:"heightInInches"`
	BodyWeightInLbs              *float64            `json:"bodyWeightInLbs"`
	GlobalTrackingID             string              `json:"globalTrackingId"`
	CurrentContextToken          string              `json:"currentContextToken"`
	ProfileImage                 Image               `json:"profileImage"`
	CurrentCustomPackage         *CustomPackage      `json:"currentCustomPackage"`
	ShowPretrainingQuestionnaire bool                `json:"showPretrainingQuestionnaire"`
	HasLimitedAdTracking         bool                `json:"hasLimitedAdTracking"`
	NeedsAttribution             *bool               `json:"needsAttribution"`
	Anonymize                    *bool               `json:"anonymize"`
	Organizations                []Organization      `json:"organizations"`
	IndependentAthlete           *IndependentAthlete `json:"independentAthlete"`
}

// UnmarshalJSON は単位系が欠けている場合に既定値を補う。
func (p *Profile) UnmarshalJSON(data []byte) error {
	type rawProfile Profile
	var raw rawProfile
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.UnitSystem == "" {
		raw.UnitSystem = DefaultUnitSystem
	}
	*p = Profile(raw)
	return nil
}

// Organization はユーザーが所属する組織と、関係種別ごとのコンテキスト群。
type Organization struct {
	PrimaryText                  *string   `json:"primaryText"`
	SecondaryText                *string   `json:"secondaryText"`
	TertiaryText                 *string   `json:"tertiaryText"`
	PrimaryColor                 *string   `json:"primaryColor"`
	SecondaryColor               *string   `json:"secondaryColor"`
	TeamCreateAuthorized         bool      `json:"teamCreateAuthorized"`
	TeamsCoachingOn              []Context `json:"teamsCoachingOn"`
	TeamsPlayingOn               []Context `json:"teamsPlayingOn"`
	SelfDirectedTrainingPrograms []Context `json:"selfDirectedTrainingPrograms"`
}

// IndependentAthlete はチームやコーチに属さずに自分のプログラムで
// トレーニングするユーザーの情報。
type IndependentAthlete struct {
	TrainingPrograms        []Context `json:"trainingPrograms"`
	PendingIndependentSetup *Context  `json:"pendingIndependentSetup"`
}

// Context はユーザーがアクティブとして選択できるトレーニング関係
// （チーム所属、コーチ、独立プログラム）を表す値オブジェクト。
// 組織や独立アスリートの内部にのみ存在し、変更されない。
type Context struct {
	ContextToken        string  `json:"contextToken"`
	ContextType         string  `json:"contextType"`
	CustomPackageID     *int64  `json:"customPackageId"`
	ProgramID           *int64  `json:"programId"`
	ProgramMembershipID *int64  `json:"programMembershipId"`
	TeamID              *int64  `json:"teamId"`
	Name                *string `json:"name"`
	Sport               *string `json:"sport"`
	SportCode           *string `json:"sportCode"`
	ParticipantTerm     *string `json:"participantTerm"`
	Selected            bool    `json:"selected?"`
	HeroImage           *Image  `json:"heroImage"`
	WorkoutWeekID       *int64  `json:"workoutWeekId"`
	WorkoutWeekDayNum   *int    `json:"workoutWeekDayNum"`
	ComplianceMode      *bool   `json:"complianceMode"`
	PrimaryText         *string `json:"primaryText"`
	SecondaryText       *string `json:"secondaryText"`
	DefaultLogoImageURL string  `json:"defaultLogoImageUrl"`
	SignupToken         *string `json:"signupToken"`
	ConcludableSignup   *bool   `json:"concludableSignup"`
	VideoResourceID     *string `json:"videoResourceId"`
}

// IsEmpty はコンテキストが空レコード（JSONの {} や null）かどうかを返す。
func (c *Context) IsEmpty() bool {
	return c == nil || *c == Context{}
}

// HasProgram はコンテキストにプログラムIDが紐付いているかを返す。
func (c *Context) HasProgram() bool {
	return c != nil && c.ProgramID != nil
}

// CustomPackage はユーザーが利用中のパッケージと機能トグル。
type CustomPackage struct {
	ID                       int64           `json:"id"`
	OwnerID                  int64           `json:"ownerId"`
	OwnerType                string          `json:"ownerType"`
	PaymentServiceIdentifier *string         `json:"paymentServiceIdentifier"`
	BasePackage              BasePackage     `json:"basePackage"`
	Features                 PackageFeatures `json:"features"`
}

// BasePackage はパッケージのストア配信設定。
type BasePackage struct {
	ID               int64 `json:"id"`
	AppStoreEnabled  bool  `json:"appStoreEnabled"`
	PlayStoreEnabled bool  `json:"playStoreEnabled"`
}

// PackageFeatures はパッケージに含まれるスポーツ、シード、機能トグル。
type PackageFeatures struct {
	IncludedSportIDs []int64         `json:"includedSportIds"`
	IncludedSeedIDs  []int64         `json:"includedSeedIds"`
	Toggles          map[string]bool `json:"toggles"`
}
