// Package store はバックエンドから取得したエンティティをIDキーで正規化して保持する。
// 取得時に挿入・上書きし、セッション中に削除はしない。
package store

import (
	"sync"

	"github.com/Volt-Athletics/state-management-tests/internal/model"
)

// ProgramStore はカスタムプログラムとプログラム所属をIDキーで保持する。
type ProgramStore struct {
	mu          sync.RWMutex
	programs    map[int64]model.Program
	memberships map[int64]model.Membership
}

// NewProgramStore は空のProgramStoreを生成する。
func NewProgramStore() *ProgramStore {
	return &ProgramStore{
		programs:    make(map[int64]model.Program),
		memberships: make(map[int64]model.Membership),
	}
}

// UpsertProgram はプログラムを挿入または上書きする。
// 同じIDに対しては最後の書き込みが残り、フィールド単位のマージは行わない。
func (s *ProgramStore) UpsertProgram(program model.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[program.ID] = program
}

// UpsertMembership はプログラム所属を挿入または上書きする。
func (s *ProgramStore) UpsertMembership(membership model.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[membership.ID] = membership
}

// Program はIDに対応するプログラムを返す。
func (s *ProgramStore) Program(id int64) (model.Program, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.programs[id]
	return p, ok
}

// Membership はIDに対応するプログラム所属を返す。
func (s *ProgramStore) Membership(id int64) (model.Membership, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[id]
	return m, ok
}

// Programs は保持中のプログラムマップのコピーを返す。
func (s *ProgramStore) Programs() map[int64]model.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]model.Program, len(s.programs))
	for id, p := range s.programs {
		out[id] = p
	}
	return out
}

// CurrentProgram は選択中コンテキストのプログラムIDでプログラムマップを引く。
// コンテキストが無い、プログラムIDがnull、またはマップに無い場合はnilを返す。
func CurrentProgram(programs map[int64]model.Program, selected *model.Context) *model.Program {
	if selected == nil || selected.ProgramID == nil {
		return nil
	}
	p, ok := programs[*selected.ProgramID]
	if !ok {
		return nil
	}
	return &p
}

// CurrentProgram は選択中コンテキストに対応する保持中のプログラムを返す。
func (s *ProgramStore) CurrentProgram(selected *model.Context) *model.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CurrentProgram(s.programs, selected)
}
