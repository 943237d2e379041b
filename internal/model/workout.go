package model

import "fmt"

// WorkoutWeek はプログラム内の1週間分のトレーニング計画。
// バックエンドはIDがnullのエントリを返すことがあり、呼び出し側で除外する。
type WorkoutWeek struct {
	ID               *int64        `json:"id"`
	WeekStartDate    string        `json:"weekStartDate"`
	PhaseType        string        `json:"phaseType"`
	PhaseTypeLabel   string        `json:"phaseTypeLabel"`
	BlockType        string        `json:"blockType"`
	BlockTypeLabel   string        `json:"blockTypeLabel"`
	BlockVariation   int           `json:"blockVariation"`
	BlockWithinPhase *int          `json:"blockWithinPhase"`
	WeeksInBlock     *int          `json:"weeksInBlock"`
	WeekWithinBlock  int           `json:"weekWithinBlock"`
	WeekWithinPhase  int           `json:"weekWithinPhase"`
	IntensityLevel   int           `json:"intensityLevel"`
	IsPrimary        bool          `json:"isPrimary"`
	DaysInWeek       *int          `json:"daysInWeek"`
	TrainingDays     []TrainingDay `json:"trainingDays"`
}

// TrainingDay は週内の1日分の進捗。
type TrainingDay struct {
	DayNum                    int            `json:"dayNum"`
	WarmupCompletedAt         *string        `json:"warmupCompletedAt"`
	WarmupCompletedIdentifier *string        `json:"warmupCompletedIdentifier"`
	StartedAt                 *string        `json:"startedAt"`
	ConcludedAt               *string        `json:"concludedAt"`
	HasNotes                  bool           `json:"hasNotes"`
	Questionnaires            Questionnaires `json:"questionnaires"`
}

// Questionnaires はトレーニング前アンケートの状態。
type Questionnaires struct {
	Pretraining *Questionnaire `json:"pretraining"`
}

// Questionnaire はアンケート1件。
type Questionnaire struct {
	ID        int64  `json:"id"`
	Locator   string `json:"locator"`
	Completed bool   `json:"completed?"`
}

// Workout は特定の週・日のワークアウト詳細。
// 種目データは表示層にそのまま渡すため未解釈のまま保持する。
type Workout struct {
	ID                        int64              `json:"id"`
	CustomProgramID           int64              `json:"customProgramId"`
	WeekStartDate             string             `json:"weekStartDate"`
	WorkoutDayNum             int                `json:"workoutDayNum"`
	PhaseType                 string             `json:"phaseType"`
	PhaseTypeLabel            *string            `json:"phaseTypeLabel"`
	BlockType                 string             `json:"blockType"`
	BlockTypeLabel            *string            `json:"blockTypeLabel"`
	BlockVariation            int                `json:"blockVariation"`
	BlocksInPhase             int                `json:"blocksInPhase"`
	BlockWithinPhase          int                `json:"blockWithinPhase"`
	WeeksInBlock              int                `json:"weeksInBlock"`
	WeekWithinBlock           int                `json:"weekWithinBlock"`
	IntensityLevel            int                `json:"intensityLevel"`
	IsPrimary                 bool               `json:"isPrimary"`
	Individualized            *bool              `json:"individualized"`
	ActiveWorkout             *bool              `json:"activeWorkout"`
	Completed                 bool               `json:"completed"`
	WarmupCompletedAt         *string            `json:"warmupCompletedAt"`
	WarmupCompletedIdentifier *string            `json:"warmupCompletedIdentifier"`
	StartedAt                 *string            `json:"startedAt"`
	ConcludedAt               *string            `json:"concludedAt"`
	TeamNote                  *string            `json:"teamNote"`
	AthleteNote               *string            `json:"athleteNote"`
	ConditioningPlans         []ConditioningPlan `json:"conditioningPlans"`
	MovementData              []map[string]any   `json:"movementData"`
	MovementGroupings         []map[string]any   `json:"movementGroupings"`
	MovementModifiers         []map[string]any   `json:"movementModifiers"`
	Questionnaires            Questionnaires     `json:"questionnaires"`
}

// Key はワークアウトを保持するマップのキー（"<id>/<dayNum>"）を返す。
func (w *Workout) Key() string {
	return WorkoutKey(w.ID, w.WorkoutDayNum)
}

// WorkoutKey はワークアウトIDと日番号からマップキーを組み立てる。
func WorkoutKey(id int64, dayNum int) string {
	return fmt.Sprintf("%d/%d", id, dayNum)
}

// ConditioningPlan はワークアウトに付随するコンディショニング。
type ConditioningPlan struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	URL            string `json:"url"`
	MobileImageURL string `json:"mobileImageUrl"`
}

// ReferenceTables はスマートセットの負荷計算に使う参照テーブル。
type ReferenceTables struct {
	RPEToOneRepLoading []struct {
		RPE        float64 `json:"rpe"`
		LoadFactor float64 `json:"loadFactor"`
	} `json:"rpeToOneRepLoading"`
	DifferentialLoadFactors []struct {
		Difference float64 `json:"difference"`
		LoadFactor float64 `json:"loadFactor"`
	} `json:"differentialLoadFactors"`
	RPEForIntensityAndReps []struct {
		Intensity float64   `json:"intensity"`
		RPEByReps []float64 `json:"rpeByReps"`
	} `json:"rpeForIntensityAndReps"`
}

// BlockDescription はブロック種別の短い説明と長い説明。
type BlockDescription struct {
	Short string `json:"SHORT"`
	Long  string `json:"LONG"`
}

// BlockDescriptions はブロック種別（FOUNDATION, STRENGTH, ...）ごとの説明。
type BlockDescriptions map[string]BlockDescription
