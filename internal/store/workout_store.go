package store

import (
	"sync"
	"time"

	"github.com/Volt-Athletics/state-management-tests/internal/model"
)

// weekDateLayout はweekStartDateの日付形式。
const weekDateLayout = "2006-01-02"

// WorkoutStore はワークアウト週、ワークアウト、参照データを保持する。
// 週はIDキーのマップに加えて、currentWeekの判定用にバックエンドの並び順も保持する。
type WorkoutStore struct {
	mu                sync.RWMutex
	weeks             map[int64]model.WorkoutWeek
	weekOrder         []int64
	workouts          map[string]model.Workout
	weekWorkouts      map[string]string
	referenceTables   *model.ReferenceTables
	blockDescriptions model.BlockDescriptions
}

// NewWorkoutStore は空のWorkoutStoreを生成する。
func NewWorkoutStore() *WorkoutStore {
	return &WorkoutStore{
		weeks:    make(map[int64]model.WorkoutWeek),
		workouts:     make(map[string]model.Workout),
		weekWorkouts: make(map[string]string),
	}
}

// UpsertWorkoutWeek はワークアウト週を挿入または上書きする。
// IDがnullの週はキーを持たないため保持せず、falseを返す。
func (s *WorkoutStore) UpsertWorkoutWeek(week model.WorkoutWeek) bool {
	if week.ID == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertWeekLocked(week)
	return true
}

func (s *WorkoutStore) upsertWeekLocked(week model.WorkoutWeek) {
	id := *week.ID
	if _, exists := s.weeks[id]; !exists {
		s.weekOrder = append(s.weekOrder, id)
	}
	s.weeks[id] = week
}

// SetWorkoutWeeks はバックエンドから取得した週の一覧を取り込む。
// IDがnullのエントリは除外し、取り込んだ件数を返す。
func (s *WorkoutStore) SetWorkoutWeeks(weeks []model.WorkoutWeek) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, w := range weeks {
		if w.ID == nil {
			continue
		}
		s.upsertWeekLocked(w)
		count++
	}
	return count
}

// WorkoutWeek はIDに対応するワークアウト週を返す。
func (s *WorkoutStore) WorkoutWeek(id int64) (model.WorkoutWeek, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.weeks[id]
	return w, ok
}

// WorkoutWeeks は保持中の週を取り込み順で返す。
func (s *WorkoutStore) WorkoutWeeks() []model.WorkoutWeek {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.WorkoutWeek, 0, len(s.weekOrder))
	for _, id := range s.weekOrder {
		out = append(out, s.weeks[id])
	}
	return out
}

// CurrentWeek は現在のカレンダー週に含まれる週を返す。
func (s *WorkoutStore) CurrentWeek(now time.Time) *model.WorkoutWeek {
	return CurrentWeek(s.WorkoutWeeks(), now)
}

// UpsertWorkout はワークアウトを "<id>/<dayNum>" キーで挿入または上書きする。
func (s *WorkoutStore) UpsertWorkout(workout model.Workout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workouts[workout.Key()] = workout
}

// UpsertWeekWorkout は週IDと日番号を指定して取得したワークアウトを保存する。
// ワークアウトは自身のIDで保持し、週と日番号からの参照を記録する。
func (s *WorkoutStore) UpsertWeekWorkout(weekID int64, dayNum int, workout model.Workout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := workout.Key()
	s.workouts[key] = workout
	s.weekWorkouts[model.WorkoutKey(weekID, dayNum)] = key
}

// WeekWorkout は週IDと日番号で取得済みのワークアウトを返す。
func (s *WorkoutStore) WeekWorkout(weekID int64, dayNum int) (model.Workout, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.weekWorkouts[model.WorkoutKey(weekID, dayNum)]
	if !ok {
		return model.Workout{}, false
	}
	w, ok := s.workouts[key]
	return w, ok
}

// Workout はIDと日番号に対応するワークアウトを返す。
func (s *WorkoutStore) Workout(id int64, dayNum int) (model.Workout, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workouts[model.WorkoutKey(id, dayNum)]
	return w, ok
}

// Workouts は保持中のワークアウトマップのコピーを返す。
func (s *WorkoutStore) Workouts() map[string]model.Workout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Workout, len(s.workouts))
	for k, w := range s.workouts {
		out[k] = w
	}
	return out
}

// SetReferenceTables はスマートセット参照テーブルを置き換える。
func (s *WorkoutStore) SetReferenceTables(tables *model.ReferenceTables) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referenceTables = tables
}

// ReferenceTables はスマートセット参照テーブルを返す。未取得の場合はnil。
func (s *WorkoutStore) ReferenceTables() *model.ReferenceTables {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.referenceTables
}

// SetBlockDescriptions はブロック種別の説明を置き換える。
func (s *WorkoutStore) SetBlockDescriptions(descriptions model.BlockDescriptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockDescriptions = descriptions
}

// BlockDescription はブロック種別の説明を返す。
func (s *WorkoutStore) BlockDescription(blockType string) (model.BlockDescription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.blockDescriptions[blockType]
	return d, ok
}

// CurrentWeek はweekStartDateがnowと同じカレンダー週（日曜始まり、nowのロケーション）に
// 含まれる最初の週を返す。該当が無い場合はnil。
// weekStartDateが解析できない週は無視する。
func CurrentWeek(weeks []model.WorkoutWeek, now time.Time) *model.WorkoutWeek {
	thisWeek := startOfWeek(now)
	for i := range weeks {
		start, err := parseWeekDate(weeks[i].WeekStartDate, now.Location())
		if err != nil {
			continue
		}
		if startOfWeek(start).Equal(thisWeek) {
			w := weeks[i]
			return &w
		}
	}
	return nil
}

func parseWeekDate(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation(weekDateLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

func startOfWeek(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return day.AddDate(0, 0, -int(day.Weekday()))
}
