package handler

import (
	"Mercato/internal/api/dto"
	"Mercato/internal/pkg/consts"
	"Mercato/internal/pkg/redis"
	"Mercato/internal/pkg/response"
	"Mercato/internal/pkg/security"
	"Mercato/internal/realtime"
	"Mercato/internal/service"
	"context"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	registry       *realtime.SessionRegistry
	convService    service.ConversationService
	messageService service.MessageService
	userService    service.UserService
}

func NewWsHandler(
	registry *realtime.SessionRegistry,
	convService service.ConversationService,
	messageService service.MessageService,
	userService service.UserService,
) *WsHandler {
	return &WsHandler{
		registry:       registry,
		convService:    convService,
		messageService: messageService,
		userService:    userService,
	}
}

// Connect 建立 WS 连接
// 同一用户保留最新一条连接，旧连接被顶掉
func (s *WsHandler) Connect(c *gin.Context) {
	// 鉴权
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	userID := claims.UserID

	// 升级 Websocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	session := realtime.NewSession(userID, conn)
	if old := s.registry.Register(session); old != nil {
		log.Info("用户新连接建立，关闭旧连接", "userID", userID)
		old.Close()
	}
	defer func() {
		s.registry.Unregister(session)
		session.Close()
	}()

	// 连接即上线
	if err = s.userService.UpdatePresence(context.Background(), userID, consts.PresenceOnline); err != nil {
		log.Error("WS 上线状态更新失败", "userID", userID, "err", err)
	}
	defer func() {
		if derr := s.userService.UpdatePresence(context.Background(), userID, consts.PresenceOffline); derr != nil {
			log.Error("WS 下线状态更新失败", "userID", userID, "err", derr)
		}
	}()

	// 订阅用户个人频道
	pubsub := redis.Subscribe(context.Background(), realtime.UserChannel(userID))
	defer func() {
		_ = pubsub.Close()
	}()

	log.Info("用户 WS 连接已建立", "userID", userID)

	// 读循环：处理上行事件并监听断开
	go s.readLoop(session)

	// 写循环：监听 Redis 并推送至客户端
	redisCh := pubsub.Channel()
	for {
		select {
		case msg, ok := <-redisCh:
			if !ok {
				return
			}
			if werr := session.Write([]byte(msg.Payload)); werr != nil {
				log.Error("WS 推送失败", "userID", userID, "err", werr)
				return
			}
		case <-session.Done():
			log.Info("用户 WS 连接已断开", "userID", userID)
			return
		}
	}
}

// readLoop 处理客户端上行事件，连接错误时关闭会话
func (s *WsHandler) readLoop(session *realtime.Session) {
	for {
		_, data, err := session.Conn.ReadMessage()
		if err != nil {
			session.Close()
			return
		}

		var event realtime.ClientEvent
		if err = json.Unmarshal(data, &event); err != nil {
			log.Warn("WS 上行事件解析失败", "userID", session.UserID, "err", err)
			continue
		}
		s.dispatch(session, &event)
	}
}

// dispatch 上行事件与 REST 走同一层服务，失败以 error 事件回推给客户端
func (s *WsHandler) dispatch(session *realtime.Session, event *realtime.ClientEvent) {
	ctx := context.Background()

	switch event.Type {
	case realtime.ClientEventTyping:
		if event.ConversationID == 0 {
			return
		}
		if err := s.convService.SetTyping(ctx, session.UserID, event.ConversationID, event.Typing); err != nil {
			log.Warn("WS 输入状态处理失败", "userID", session.UserID, "err", err)
		}
	case realtime.ClientEventRead:
		if len(event.MessageIDs) == 0 {
			return
		}
		if _, err := s.messageService.BulkMarkRead(ctx, session.UserID, event.MessageIDs); err != nil {
			log.Warn("WS 已读回执处理失败", "userID", session.UserID, "err", err)
		}
	case realtime.ClientEventSend:
		if event.ConversationID == 0 {
			return
		}
		req := &dto.SendMessageDTO{Content: event.Content, ParentMessageID: event.ParentMessageID}
		if _, err := s.messageService.SendMessage(ctx, session.UserID, event.ConversationID, req); err != nil {
			s.pushError(session, err)
		}
	case realtime.ClientEventHistory:
		if event.ConversationID == 0 {
			return
		}
		page, err := s.messageService.GetMessages(ctx, session.UserID, event.ConversationID, event.Cursor, true, event.Limit)
		if err != nil {
			s.pushError(session, err)
			return
		}
		s.push(session, realtime.NewEvent(realtime.EventHistory, event.ConversationID, page))
	case realtime.ClientEventReaction:
		if event.MessageID == 0 {
			return
		}
		var err error
		if event.Reaction == "" {
			err = s.messageService.RemoveReaction(ctx, session.UserID, event.MessageID)
		} else {
			err = s.messageService.React(ctx, session.UserID, event.MessageID, event.Reaction)
		}
		if err != nil {
			s.pushError(session, err)
		}
	case realtime.ClientEventDelivery:
		if event.MessageID == 0 || event.Status == "" {
			return
		}
		if err := s.messageService.ReportDelivery(ctx, session.UserID, event.MessageID, event.Status); err != nil {
			s.pushError(session, err)
		}
	case realtime.ClientEventPing:
		_ = session.Write([]byte(`{"type":"pong"}`))
	default:
		log.Warn("WS 未知上行事件", "userID", session.UserID, "type", event.Type)
	}
}

// push 将事件直接写回当前连接，不经 Redis 总线
func (s *WsHandler) push(session *realtime.Session, event *realtime.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("WS 下行事件序列化失败", "userID", session.UserID, "err", err)
		return
	}
	if err = session.Write(payload); err != nil {
		log.Error("WS 下行事件写入失败", "userID", session.UserID, "err", err)
	}
}

func (s *WsHandler) pushError(session *realtime.Session, err error) {
	log.Warn("WS 上行事件处理失败", "userID", session.UserID, "err", err)
	s.push(session, realtime.NewEvent(realtime.EventError, 0, err.Error()))
}
