package controller

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"english_bot_backend/internal/service"
	"english_bot_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleTimeout 单条事件的处理上限，覆盖状态机里最慢的 AI 调用链
const handleTimeout = 90 * time.Second

type WebhookController struct {
	Conversation *service.ConversationService
}

func NewWebhookController(conversation *service.ConversationService) *WebhookController {
	return &WebhookController{Conversation: conversation}
}

// webhookEvent uazapi 回调的事件包络。text 字段按钮点击时是对象、
// 纯文本时是字符串，延迟到归一化阶段再解
type webhookEvent struct {
	EventType string `json:"EventType"`
	Message   struct {
		Sender     string          `json:"sender"`
		SenderName string          `json:"senderName"`
		FromMe     bool            `json:"fromMe"`
		Text       json.RawMessage `json:"text"`
		Content    json.RawMessage `json:"content"`
	} `json:"message"`
}

// @Summary 消息网关回调
// @Tags 消息接入
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Router /webhook [post]
func (c *WebhookController) Handle(ctx *gin.Context) {
	// 回调永远 ack：网关的重投只会造成重复回复，不会修复解析问题
	defer ctx.JSON(200, gin.H{"status": "received"})

	body, err := ctx.GetRawData()
	if err != nil {
		logger.Log.Warn("webhook 读取请求体失败", zap.Error(err))
		return
	}

	event, ok := parseWebhookEvent(body)
	if !ok {
		return
	}

	if event.EventType != "messages" || event.Message.FromMe || event.Message.Sender == "" {
		return
	}

	inbound := normalizeMessage(event)

	// 异步处理：AI 链路可达数十秒，不能让网关回调等待。
	// 同一用户的并发事件由会话层的 JID 锁串行化。
	go func() {
		handleCtx, cancel := context.WithTimeout(context.Background(), handleTimeout)
		defer cancel()
		c.Conversation.HandleEvent(handleCtx, inbound)
	}()
}

// parseWebhookEvent 兼容裸对象和单元素数组两种包络
func parseWebhookEvent(body []byte) (webhookEvent, bool) {
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err == nil && event.EventType != "" {
		return event, true
	}

	var events []webhookEvent
	if err := json.Unmarshal(body, &events); err == nil && len(events) > 0 {
		return events[0], true
	}

	logger.Log.Warn("webhook 载荷无法识别", zap.ByteString("body", truncate(body, 512)))
	return webhookEvent{}, false
}

// normalizeMessage text 优先于 content；对象取 selectedID 作为控件 id，
// 字符串小写去空白作为自由文本
func normalizeMessage(event webhookEvent) service.InboundEvent {
	inbound := service.InboundEvent{
		SenderJID:  event.Message.Sender,
		SenderName: event.Message.SenderName,
	}

	raw := event.Message.Text
	if len(raw) == 0 || string(raw) == "null" {
		raw = event.Message.Content
	}
	if len(raw) == 0 || string(raw) == "null" {
		return inbound
	}

	var selected struct {
		SelectedID string `json:"selectedID"`
	}
	if err := json.Unmarshal(raw, &selected); err == nil && selected.SelectedID != "" {
		inbound.ControlID = selected.SelectedID
		return inbound
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		inbound.RawText = strings.ToLower(strings.TrimSpace(text))
	}
	return inbound
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
