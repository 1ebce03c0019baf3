package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const sessionWriteTimeout = 10 * time.Second

// Session 单个用户的 WS 连接会话
type Session struct {
	UserID uint64
	Conn   *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(userID uint64, conn *websocket.Conn) *Session {
	return &Session{
		UserID: userID,
		Conn:   conn,
		done:   make(chan struct{}),
	}
}

// Write 串行化向连接写入一帧文本消息
// 读循环的直接应答与推送泵共用同一条连接，必须互斥
func (s *Session) Write(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.Conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
	return s.Conn.WriteMessage(websocket.TextMessage, payload)
}

// Close 幂等关闭会话
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.Conn.Close()
	})
}

// Done 会话关闭信号
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SessionRegistry 本进程内的用户连接注册表
// 每个用户同一时刻最多保留一条连接，新连接建立时踢掉旧连接
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[uint64]*Session)}
}

// Register 注册新会话，返回被替换的旧会话（可能为 nil）
func (s *SessionRegistry) Register(session *Session) *Session {
	s.mu.Lock()
	old := s.sessions[session.UserID]
	s.sessions[session.UserID] = session
	s.mu.Unlock()
	return old
}

// Unregister 仅当注册表中仍是该会话时移除，避免误删新连接
func (s *SessionRegistry) Unregister(session *Session) {
	s.mu.Lock()
	if current, ok := s.sessions[session.UserID]; ok && current == session {
		delete(s.sessions, session.UserID)
	}
	s.mu.Unlock()
}

// Get 获取用户当前会话
func (s *SessionRegistry) Get(userID uint64) (*Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[userID]
	s.mu.RUnlock()
	return session, ok
}

// IsOnline 用户在本进程是否有活跃连接
func (s *SessionRegistry) IsOnline(userID uint64) bool {
	_, ok := s.Get(userID)
	return ok
}

// Count 当前活跃连接数
func (s *SessionRegistry) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
