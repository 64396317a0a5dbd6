package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"english_bot_backend/internal/config"
	"english_bot_backend/pkg/logger"
	"english_bot_backend/pkg/monitoring"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ConnectivityState 实例连接状态的归一化枚举
type ConnectivityState string

const (
	ConnectivityConnected    ConnectivityState = "CONNECTED"
	ConnectivityConnecting   ConnectivityState = "CONNECTING"
	ConnectivityDisconnected ConnectivityState = "DISCONNECTED"
	ConnectivityUnknown      ConnectivityState = "UNKNOWN"
	ConnectivityError        ConnectivityState = "ERROR"
)

const (
	endpointSendText = "/send/text"
	endpointSendMenu = "/send/menu"
	endpointStatus   = "/instance/status"

	menuFooterText = "Clique para responder. Sua escolha não aparecerá como texto digitado."

	statusCacheKey = "english_bot:instance_status"
	statusCacheTTL = 30 * time.Second
)

// WhatsAppService uazapi 网关客户端。出站动作全部经这里投递，
// 发送失败只记日志不回传——渠道不可达时没有可用的用户侧兜底。
type WhatsAppService struct {
	baseURL string
	token   string
	client  *http.Client
	rdb     *redis.Client
}

func NewWhatsAppService(cfg config.WhatsAppConfig, rdb *redis.Client) *WhatsAppService {
	return &WhatsAppService{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		rdb: rdb,
	}
}

type sendTextPayload struct {
	Number   string `json:"number"`
	Text     string `json:"text"`
	ReadChat bool   `json:"readchat"`
	Delay    int    `json:"delay"`
}

type sendMenuPayload struct {
	Number     string   `json:"number"`
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	Choices    []string `json:"choices"`
	FooterText string   `json:"footerText"`
	ReadChat   bool     `json:"readchat"`
	Delay      int      `json:"delay"`
}

// Dispatch 按序投递引擎产出的动作
func (s *WhatsAppService) Dispatch(ctx context.Context, jid string, actions []OutboundAction) {
	for _, action := range actions {
		var err error
		switch action.Kind {
		case ActionSendMenu:
			err = s.SendMenu(ctx, jid, action.Text, action.Options)
		default:
			err = s.SendText(ctx, jid, action.Text)
		}
		if err != nil {
			monitoring.OutboundCounter.WithLabelValues(string(action.Kind), "error").Inc()
			logger.Log.Error("出站消息投递失败",
				zap.String("jid", jid),
				zap.String("kind", string(action.Kind)),
				zap.Error(err))
			continue
		}
		monitoring.OutboundCounter.WithLabelValues(string(action.Kind), "ok").Inc()
	}
}

// SendText 发送纯文本
func (s *WhatsAppService) SendText(ctx context.Context, jid, text string) error {
	return s.post(ctx, endpointSendText, sendTextPayload{
		Number:   jid,
		Text:     text,
		ReadChat: true,
		Delay:    1000,
	})
}

// SendMenu 发送按钮菜单，choices 编码为 "Label|controlID"
func (s *WhatsAppService) SendMenu(ctx context.Context, jid, text string, options []MenuOption) error {
	choices := make([]string, 0, len(options))
	for _, opt := range options {
		choices = append(choices, fmt.Sprintf("%s|%s", opt.Label, opt.ControlID))
	}
	return s.post(ctx, endpointSendMenu, sendMenuPayload{
		Number:     jid,
		Type:       "button",
		Text:       text,
		Choices:    choices,
		FooterText: menuFooterText,
		ReadChat:   true,
		Delay:      500,
	})
}

func (s *WhatsAppService) post(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("uazapi %s returned %d: %s", endpoint, resp.StatusCode, snippet)
	}
	return nil
}

type instanceStatusResponse struct {
	Instance struct {
		Status string `json:"status"`
	} `json:"instance"`
}

// InstanceStatus 查询实例连接状态，结果缓存 30 秒削峰。
// 查询失败返回 ERROR 而不是错误——状态查询是尽力而为的。
func (s *WhatsAppService) InstanceStatus(ctx context.Context) ConnectivityState {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, statusCacheKey).Result(); err == nil && cached != "" {
			return ConnectivityState(cached)
		}
	}

	state := s.fetchInstanceStatus(ctx)

	if s.rdb != nil && state != ConnectivityError {
		if err := s.rdb.Set(ctx, statusCacheKey, string(state), statusCacheTTL).Err(); err != nil {
			logger.Log.Warn("实例状态缓存写入失败", zap.Error(err))
		}
	}
	return state
}

func (s *WhatsAppService) fetchInstanceStatus(ctx context.Context) ConnectivityState {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpointStatus, nil)
	if err != nil {
		return ConnectivityError
	}
	req.Header.Set("token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Log.Error("实例状态查询失败", zap.Error(err))
		return ConnectivityError
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Log.Warn("实例状态查询返回非 200", zap.Int("status", resp.StatusCode))
		return ConnectivityError
	}

	var parsed instanceStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ConnectivityError
	}

	switch strings.ToLower(parsed.Instance.Status) {
	case "connected":
		return ConnectivityConnected
	case "connecting":
		return ConnectivityConnecting
	case "disconnected":
		return ConnectivityDisconnected
	case "":
		return ConnectivityUnknown
	default:
		return ConnectivityUnknown
	}
}
