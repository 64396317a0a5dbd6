package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"english_bot_backend/internal/config"
	"english_bot_backend/internal/llm"
	"english_bot_backend/internal/model"
	"english_bot_backend/internal/util"
	"english_bot_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 面向用户的降级文案。对话和学习计划接口永不返回错误，
// AI 故障时退回这些固定提示。
const (
	aiUnavailableText = "🤖 Serviço de IA indisponível. Verifique a configuração da API no servidor."
	aiAPIErrorText    = "🤖 Houve um erro na comunicação com a IA. Tente novamente mais tarde."
	aiGenericText     = "🤖 Não foi possível processar sua solicitação."
)

const systemPersona = "Você é um assistente de conversação amigável chamado 'English Bot'. " +
	"Seu objetivo é responder perguntas sobre a língua inglesa e auxiliar o usuário no aprendizado. " +
	"Responda de forma sucinta e didática. Não use asteriscos duplos (**) para negrito; " +
	"use *asterisco único* para negrito e itálico, e aplique a formatação de forma MUITO moderada " +
	"para manter o texto limpo."

const (
	studyPlanCacheKeyPrefix = "english_bot:study_plan:"
	studyPlanCacheTTL       = 24 * time.Hour
)

// exerciseSchema 动态练习的结构化输出契约，键名是葡语
var exerciseSchema = &llm.Schema{
	Name: "exercicio_ingles",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":       map[string]any{"type": "string"},
			"tipo":     map[string]any{"type": "string", "enum": []any{"choice", "open"}},
			"pergunta": map[string]any{"type": "string", "minLength": 1},
			"opcoes": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"correta":    map[string]any{"type": "string", "minLength": 1},
			"explicacao": map[string]any{"type": "string"},
		},
		"required": []any{"tipo", "pergunta", "correta"},
	},
}

// AIService AI 网关门面。实现引擎的 AIGateway 接口：对话、学习计划、
// 讲解三类调用内部兜底，练习生成把内容错误和可用性错误区分后上抛。
// provider 为 nil 表示未配置密钥，所有调用走固定降级文案，服务照常启动。
type AIService struct {
	provider llm.Provider
	rdb      *redis.Client
	timeout  time.Duration
}

// NewAIService rdb 允许为 nil（Redis 关闭时学习计划缓存退化为直连）
func NewAIService(ctx context.Context, cfg config.AIConfig, rdb *redis.Client) *AIService {
	provider, err := llm.NewProvider(ctx, cfg)
	if err != nil {
		logger.Log.Warn("AI provider 未配置，对话功能降级", zap.Error(err))
		provider = nil
	}
	return &AIService{
		provider: provider,
		rdb:      rdb,
		timeout:  time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// NewAIServiceWithProvider 测试注入口
func NewAIServiceWithProvider(provider llm.Provider, rdb *redis.Client, timeout time.Duration) *AIService {
	return &AIService{provider: provider, rdb: rdb, timeout: timeout}
}

// GenerateReply 自由对话。任何失败都返回降级文案，引擎无需感知
func (s *AIService) GenerateReply(ctx context.Context, prompt string) string {
	if s.provider == nil {
		return aiUnavailableText
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.provider.Generate(ctx, llm.Request{
		System: systemPersona,
		Prompt: prompt,
	})
	if err != nil {
		return s.fallbackText(err, "对话生成失败")
	}
	return strings.TrimSpace(resp)
}

// GenerateStudyPlan 按等级生成学习计划，Redis 缓存 24 小时。
// 同一等级的计划对所有用户通用，缓存键只含等级。
func (s *AIService) GenerateStudyPlan(ctx context.Context, level string) string {
	if s.provider == nil {
		return aiUnavailableText
	}

	cacheKey := studyPlanCacheKeyPrefix + NormalizeLevel(level)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			return cached
		}
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Crie um plano de estudos de inglês semanal e objetivo (máximo de 10 linhas) "+
		"para um aluno de nível %s. Liste tópicos de gramática, vocabulário e uma sugestão de prática diária.", level)

	resp, err := s.provider.Generate(genCtx, llm.Request{
		System: systemPersona,
		Prompt: prompt,
	})
	if err != nil {
		return s.fallbackText(err, "学习计划生成失败")
	}

	plan := strings.TrimSpace(resp)
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, cacheKey, plan, studyPlanCacheTTL).Err(); err != nil {
			logger.Log.Warn("学习计划缓存写入失败", zap.Error(err))
		}
	}
	return plan
}

// GenerateExercise 生成一道动态练习。模型输出先过 JSON Schema，再做
// 语义校验；内容违规返回 *util.ExerciseContentError，其余错误原样上抛。
func (s *AIService) GenerateExercise(ctx context.Context, level string) (*model.DynamicExercise, error) {
	if s.provider == nil {
		return nil, util.ErrAINotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Gere UM exercício de inglês de múltipla escolha para um aluno de nível %s. "+
		"Use tipo 'choice' com exatamente 4 opções curtas e distintas em 'opcoes', "+
		"e copie em 'correta' o texto exato de uma das opções. "+
		"A 'pergunta' deve testar gramática ou vocabulário adequado ao nível. "+
		"Inclua em 'explicacao' uma frase explicando a resposta.", level)

	raw, err := s.provider.Generate(ctx, llm.Request{
		System:      systemPersona,
		Prompt:      prompt,
		Schema:      exerciseSchema,
		Temperature: 0.7,
	})
	if err != nil {
		var invalid *llm.ErrInvalidResponse
		if errors.As(err, &invalid) {
			return nil, &util.ExerciseContentError{Reason: invalid.Error()}
		}
		return nil, err
	}

	var ex model.DynamicExercise
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		return nil, &util.ExerciseContentError{Reason: fmt.Sprintf("JSON inválido: %v", err)}
	}

	if err := validateExercise(&ex); err != nil {
		return nil, err
	}

	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	return &ex, nil
}

// validateExercise Schema 之外的语义校验
func validateExercise(ex *model.DynamicExercise) error {
	switch ex.Tipo {
	case model.ExerciseOpen:
		return nil
	case model.ExerciseChoice:
	default:
		return &util.ExerciseContentError{Reason: fmt.Sprintf("tipo desconhecido %q", ex.Tipo)}
	}

	if len(ex.Opcoes) != 4 {
		return &util.ExerciseContentError{Reason: fmt.Sprintf("esperadas 4 opções, recebidas %d", len(ex.Opcoes))}
	}

	seen := make(map[string]bool, 4)
	matches := 0
	for _, opcao := range ex.Opcoes {
		key := strings.ToUpper(strings.TrimSpace(opcao))
		if seen[key] {
			return &util.ExerciseContentError{Reason: "opções duplicadas"}
		}
		seen[key] = true
		if key == strings.ToUpper(strings.TrimSpace(ex.Correta)) {
			matches++
		}
	}
	if matches != 1 {
		return &util.ExerciseContentError{Reason: "resposta correta não corresponde a exatamente uma opção"}
	}
	return nil
}

// GenerateReinforcement 答错后的讲解，失败退回通用鼓励文案
func (s *AIService) GenerateReinforcement(ctx context.Context, level, question, given, correct string) string {
	if s.provider == nil {
		return fmt.Sprintf("A resposta correta era *%s*. Continue praticando!", correct)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Um aluno de nível %s errou este exercício de inglês.\n"+
		"Pergunta: %s\nResposta do aluno: %s\nResposta correta: %s\n"+
		"Explique em no máximo 4 linhas, de forma encorajadora, por que a resposta correta é essa.",
		level, question, given, correct)

	resp, err := s.provider.Generate(ctx, llm.Request{
		System: systemPersona,
		Prompt: prompt,
	})
	if err != nil {
		logger.Log.Warn("讲解生成失败", zap.Error(err))
		return fmt.Sprintf("A resposta correta era *%s*. Continue praticando!", correct)
	}
	return strings.TrimSpace(resp)
}

func (s *AIService) fallbackText(err error, logMsg string) string {
	var rateLimited *llm.ErrRateLimit
	var unavailable *llm.ErrProviderUnavailable

	switch {
	case errors.As(err, &rateLimited):
		logger.Log.Warn(logMsg, zap.Error(err))
		return aiAPIErrorText
	case errors.As(err, &unavailable):
		logger.Log.Error(logMsg, zap.Error(err))
		return aiUnavailableText
	default:
		logger.Log.Error(logMsg, zap.Error(err))
		return aiGenericText
	}
}
