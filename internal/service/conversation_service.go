package service

import (
	"context"
	"sync"

	"english_bot_backend/internal/model"
	"english_bot_backend/pkg/logger"
	"english_bot_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// SessionStore 会话持久化入口，由 repository.SessionRepository 实现
type SessionStore interface {
	FindOrCreate(waJID, name string) (*model.UserSession, error)
	Save(session *model.UserSession) error
}

// Dispatcher 出站投递入口，由 WhatsAppService 实现
type Dispatcher interface {
	Dispatch(ctx context.Context, jid string, actions []OutboundAction)
	SendText(ctx context.Context, jid, text string) error
}

// ConversationService 会话编排：加载会话、跑状态机、先落库再投递。
// 同一 JID 的事件串行处理，不同 JID 并行互不阻塞。
type ConversationService struct {
	sessions   SessionStore
	engine     *Engine
	dispatcher Dispatcher

	mu       sync.Mutex
	jidLocks map[string]*sync.Mutex
}

func NewConversationService(sessions SessionStore, engine *Engine, dispatcher Dispatcher) *ConversationService {
	return &ConversationService{
		sessions:   sessions,
		engine:     engine,
		dispatcher: dispatcher,
		jidLocks:   make(map[string]*sync.Mutex),
	}
}

// lockFor 每个 JID 一把锁。锁不回收：活跃用户量级下映射的常驻开销可忽略
func (s *ConversationService) lockFor(jid string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.jidLocks[jid]
	if !ok {
		lock = &sync.Mutex{}
		s.jidLocks[jid] = lock
	}
	return lock
}

// HandleEvent 处理一条归一化后的入站事件。任何失败只记日志并尽力
// 给用户发致歉提示，不向 webhook 调用方回传错误。
func (s *ConversationService) HandleEvent(ctx context.Context, event InboundEvent) {
	lock := s.lockFor(event.SenderJID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.sessions.FindOrCreate(event.SenderJID, event.SenderName)
	if err != nil {
		logger.Log.Error("会话加载失败",
			zap.String("jid", event.SenderJID),
			zap.Error(err))
		monitoring.BotEventCounter.WithLabelValues("unknown", "load_error").Inc()
		return
	}

	stateBefore := string(session.State)

	actions, err := s.engine.Transition(ctx, session, event)
	if err != nil {
		logger.Log.Error("状态机处理失败",
			zap.String("jid", event.SenderJID),
			zap.String("state", stateBefore),
			zap.Error(err))
		monitoring.BotEventCounter.WithLabelValues(stateBefore, "engine_error").Inc()
		s.apologize(ctx, event.SenderJID)
		return
	}

	// 先落库再投递：宁可用户收不到回复，也不能发出与库内状态不一致的消息
	if err := s.sessions.Save(session); err != nil {
		logger.Log.Error("会话保存失败",
			zap.String("jid", event.SenderJID),
			zap.String("state", stateBefore),
			zap.Error(err))
		monitoring.BotEventCounter.WithLabelValues(stateBefore, "store_error").Inc()
		s.apologize(ctx, event.SenderJID)
		return
	}

	s.dispatcher.Dispatch(ctx, event.SenderJID, actions)
	monitoring.BotEventCounter.WithLabelValues(stateBefore, "ok").Inc()
}

func (s *ConversationService) apologize(ctx context.Context, jid string) {
	if err := s.dispatcher.SendText(ctx, jid, msgErroInterno); err != nil {
		logger.Log.Warn("致歉消息发送失败", zap.String("jid", jid), zap.Error(err))
	}
}
