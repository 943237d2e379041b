package model

// Program はカスタムトレーニングプログラムを表す。IDをキーに正規化して保持される。
type Program struct {
	ID                      int64                   `json:"id"`
	TeamID                  *int64                  `json:"teamId"`
	Name                    string                  `json:"name"`
	GeneratorProgramSeedID  int64                   `json:"generatorProgramSeedId"`
	SmartSetsEnabled        bool                    `json:"smartSetsEnabled"`
	AthletesCanSwap         bool                    `json:"athletesCanSwap"`
	StartDate               *string                 `json:"startDate"`
	CurrentWeekStartDate    *string                 `json:"currentWeekStartDate"`
	TrainingCalendarDetails TrainingCalendarDetails `json:"trainingCalendarDetails"`
	Primary                 ProgramPeriod           `json:"primary"`
	Secondary               ProgramPeriod           `json:"secondary"`
	GeneratorProgramSeed    *ProgramSeed            `json:"generatorProgramSeed"`
	ConditioningPlans       []SupplementalAsset     `json:"conditioningPlans"`
	WarmUps                 []SupplementalAsset     `json:"warmUps"`
	Primers                 []SupplementalAsset     `json:"primers"`
	Finishers               []SupplementalAsset     `json:"finishers"`
	SAQs                    []SupplementalAsset     `json:"saqs"`
}

// TrainingCalendarDetails はプログラムのシーズン区切りと休養日。
type TrainingCalendarDetails struct {
	OffDates                []string `json:"offDates"`
	UnloadDates             []string `json:"unloadDates"`
	PrimaryCompStart        *string  `json:"primaryCompStart"`
	PrimaryCompEnd          *string  `json:"primaryCompEnd"`
	PrimaryTrainingStart    *string  `json:"primaryTrainingStart"`
	PrimaryCompFoundation   bool     `json:"primaryCompFoundation"`
	PrimaryPrepFoundation   bool     `json:"primaryPrepFoundation"`
	SecondaryCompStart      *string  `json:"secondaryCompStart"`
	SecondaryCompEnd        *string  `json:"secondaryCompEnd"`
	SecondaryTrainingStart  *string  `json:"secondaryTrainingStart"`
	SecondaryCompFoundation bool     `json:"secondaryCompFoundation"`
	SecondaryPrepFoundation bool     `json:"secondaryPrepFoundation"`
}

// ProgramPeriod はプライマリ/セカンダリ期間。
type ProgramPeriod struct {
	StartTraining *string `json:"startTraining"`
	StartDate     *string `json:"startDate"`
	EndDate       *string `json:"endDate"`
}

// ProgramSeed はプログラム生成元のシード。
// MarketingDescription と Description はリッチテキストを含むことがある。
type ProgramSeed struct {
	ID                         int64                       `json:"id"`
	Code                       string                      `json:"code"`
	Name                       string                      `json:"name"`
	MarketingDescription       *string                     `json:"marketingDescription"`
	Description                *string                     `json:"description"`
	Level                      int                         `json:"level"`
	Premium                    bool                        `json:"premium"`
	SportID                    int64                       `json:"sportId"`
	RequireUserDate            bool                        `json:"requireUserDate"`
	SampleWorkoutURL           *string                     `json:"sampleWorkoutUrl"`
	LogoImage                  Image                       `json:"logoImage"`
	TrainingPerformanceFactors []TrainingPerformanceFactor `json:"trainingPerformanceFactors"`
}

// TrainingPerformanceFactor はシードが重視するパフォーマンス要素。
type TrainingPerformanceFactor struct {
	InternalName string `json:"internalName"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	FactorType   string `json:"factorType"`
	IconURL      string `json:"iconUrl"`
}

// SupplementalAsset はウォームアップやコンディショニング等の付属コンテンツ。
type SupplementalAsset struct {
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	MobileImageURL string  `json:"mobileImageUrl"`
}

// Membership はユーザーとカスタムプログラムの所属関係。
type Membership struct {
	ID                   int64  `json:"id"`
	CurrentWeekStartDate string `json:"currentWeekStartDate"`
	TrainAtYourOwnPace   bool   `json:"trainAtYourOwnPace"`
}
