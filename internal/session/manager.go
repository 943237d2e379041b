package session

import (
	"context"
	"log/slog"
	"sync"
)

// Factory は新しい未初期化のSessionを生成する関数。
type Factory func() *Session

// Manager はプロセス内で現在有効な1つのセッションを管理する。
// サインインのたびに新しいSessionを生成し、古いものを破棄する。
type Manager struct {
	mu      sync.RWMutex
	current *Session
	factory Factory
	logger  *slog.Logger
}

// NewManager はManagerの新しいインスタンスを生成する。
func NewManager(factory Factory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{factory: factory, logger: logger}
}

// Start は新しいセッションを生成して初期化する。
// 初期化がFailedの場合は現在のセッションを維持したままエラーを返す。
// ReadyまたはPartialの場合は現在のセッションを置き換え、古いセッションをCloseする。
func (m *Manager) Start(ctx context.Context, email, password string) (*Session, error) {
	s := m.factory()
	if _, err := s.Bootstrap(ctx, email, password); err != nil {
		s.Close()
		return nil, err
	}

	m.mu.Lock()
	previous := m.current
	m.current = s
	m.mu.Unlock()

	if previous != nil {
		previous.Close()
		m.logger.Info("以前のセッションを破棄しました", slog.String("session_id", previous.ID()))
	}
	return s, nil
}

// Current は現在のセッションを返す。無い場合はnil。
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// End は現在のセッションを破棄する。セッションが無かった場合はfalseを返す。
func (m *Manager) End() bool {
	m.mu.Lock()
	current := m.current
	m.current = nil
	m.mu.Unlock()

	if current == nil {
		return false
	}
	current.Close()
	m.logger.Info("セッションを終了しました", slog.String("session_id", current.ID()))
	return true
}
