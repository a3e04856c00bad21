// internal/services/session_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/Corphon/TaleWeaver/internal/errors"
	"github.com/Corphon/TaleWeaver/internal/game"
	"github.com/Corphon/TaleWeaver/internal/speech"
	"github.com/Corphon/TaleWeaver/internal/utils"
	"github.com/google/uuid"
)

// ActiveSession 注册表中的一次游玩会话。
// HTTP 处理器和 websocket 读循环可能并发投递输入，
// 回合通过 mu 串行化，存档快照不会看到进行到一半的变更。
type ActiveSession struct {
	ID      string
	Session *game.Session

	mu sync.Mutex
}

// SessionService 管理活动游玩会话的注册表。
// 每个会话持有自己的故事快照，互不共享可变状态；
// 自动存档开启时，状态机的每次变更都会把进度写回存档。
type SessionService struct {
	Library  *LibraryService
	Speaker  speech.Speaker
	AutoSave bool
	Vocab    game.Vocabulary

	mu       sync.RWMutex
	sessions map[string]*ActiveSession
	metrics  *utils.GameMetrics
}

// NewSessionService 创建会话服务。speaker 为 nil 时使用无声实现。
func NewSessionService(library *LibraryService, speaker speech.Speaker, autoSave bool) *SessionService {
	if speaker == nil {
		speaker = speech.NullSpeaker{}
	}
	return &SessionService{
		Library:  library,
		Speaker:  speaker,
		AutoSave: autoSave,
		Vocab:    game.DefaultVocabulary(),
		sessions: make(map[string]*ActiveSession),
		metrics:  utils.NewGameMetrics(),
	}
}

// StartSession 从故事库启动新会话。
// 会话使用故事的私有副本（从持久化格式重新加载），
// 游玩期间的拾取不会影响库中的原始故事。
func (s *SessionService) StartSession(ctx context.Context, storyID string) (*ActiveSession, error) {
	graph, err := s.Library.LoadStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	session, err := game.NewSession(graph, s.Vocab)
	if err != nil {
		return nil, err
	}

	return s.register(session), nil
}

// ResumeGame 从存档恢复会话。使用存档内的故事快照而不是库中的原始故事，
// 已被拾取的物品不会重新出现。
func (s *SessionService) ResumeGame(ctx context.Context, title string) (*ActiveSession, error) {
	graph, save, err := s.Library.LoadGame(ctx, title)
	if err != nil {
		return nil, err
	}

	session, err := game.ResumeSession(graph, save, s.Vocab)
	if err != nil {
		return nil, err
	}

	return s.register(session), nil
}

func (s *SessionService) register(session *game.Session) *ActiveSession {
	active := &ActiveSession{
		ID:      uuid.NewString(),
		Session: session,
	}

	if s.AutoSave {
		session.SetMutationHook(func() {
			if err := s.persist(session); err != nil {
				utils.GetLogger().Warnf("自动存档失败 %s: %v", session.Story.Title, err)
			}
		})
	}

	s.mu.Lock()
	s.sessions[active.ID] = active
	s.mu.Unlock()

	s.metrics.RecordSessionStart(session.Story.ID)
	return active
}

// StartMetricsReporting 启动周期性指标汇报，随 ctx 取消停止
func (s *SessionService) StartMetricsReporting(ctx context.Context) {
	s.metrics.StartMetricsCollection(ctx)
}

// GetSession 查找活动会话
func (s *SessionService) GetSession(sessionID string) (*ActiveSession, error) {
	s.mu.RLock()
	active, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("会话不存在: %s", sessionID), nil)
	}
	return active, nil
}

// HandleInput 把一条玩家输入交给会话状态机，并朗读结果文本
func (s *SessionService) HandleInput(ctx context.Context, sessionID, input string) (*game.TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	active, err := s.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	active.mu.Lock()
	started := time.Now()
	result, err := active.Session.HandleInput(input)
	active.mu.Unlock()
	if err != nil {
		s.metrics.RecordError("turn_failed", "session")
		return nil, err
	}
	s.metrics.RecordTurn(string(result.Outcome), time.Since(started))

	if result.Message != "" {
		if err := s.Speaker.Speak(result.Message); err != nil {
			utils.GetLogger().Warnf("朗读失败: %v", err)
		}
	}

	return result, nil
}

// SaveGame 显式保存会话进度
func (s *SessionService) SaveGame(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	active, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}

	active.mu.Lock()
	defer active.mu.Unlock()
	return s.persist(active.Session)
}

// EndSession 结束并注销会话
func (s *SessionService) EndSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("会话不存在: %s", sessionID), nil)
	}
	delete(s.sessions, sessionID)
	s.metrics.RecordSessionEnd()
	return nil
}

// ListSessions 列出所有活动会话
func (s *SessionService) ListSessions() []*ActiveSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*ActiveSession, 0, len(s.sessions))
	for _, active := range s.sessions {
		list = append(list, active)
	}
	return list
}

func (s *SessionService) persist(session *game.Session) error {
	save := session.Snapshot()
	return s.Library.SaveGame(context.Background(), session.Story, save)
}
