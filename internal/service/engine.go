package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"english_bot_backend/internal/model"
	"english_bot_backend/internal/util"
	"english_bot_backend/pkg/logger"

	"go.uber.org/zap"
)

// LessonStore 引擎访问固定课程的只读入口
type LessonStore interface {
	FindByID(id uint) (*model.Lesson, error)
}

// AIGateway 引擎依赖的 AI 能力。除 GenerateExercise 外都不返回错误：
// 失败时网关内部降级为固定的葡语提示文案。
type AIGateway interface {
	GenerateReply(ctx context.Context, prompt string) string
	GenerateStudyPlan(ctx context.Context, level string) string
	GenerateExercise(ctx context.Context, level string) (*model.DynamicExercise, error)
	GenerateReinforcement(ctx context.Context, level, question, given, correct string) string
}

// ConnectivityChecker 查询消息实例的连接状态
type ConnectivityChecker interface {
	InstanceStatus(ctx context.Context) ConnectivityState
}

// resetKeywords 全局重置词，任意状态下命中即回到菜单
var resetKeywords = map[string]bool{
	"oi":   true,
	"olá":  true,
	"ola":  true,
	"menu": true,
}

// Engine 会话状态机。Transition 就地修改 session 并返回待发送的动作序列，
// 不做任何持久化和网络发送，调用方负责先落库再投递。
type Engine struct {
	lessons LessonStore
	ai      AIGateway
	checker ConnectivityChecker
}

func NewEngine(lessons LessonStore, ai AIGateway, checker ConnectivityChecker) *Engine {
	return &Engine{lessons: lessons, ai: ai, checker: checker}
}

// Transition 处理一条入站事件。返回 error 仅表示基础设施故障（课程表
// 查询失败等），此时 session 不应落库；AI 内容问题在内部转成用户提示。
func (e *Engine) Transition(ctx context.Context, session *model.UserSession, event InboundEvent) ([]OutboundAction, error) {
	session.LastInteraction = time.Now()

	input := strings.TrimSpace(event.Input())

	// 全局重置优先于任何状态分支。只认自由文本，按钮控件 id 不触发重置
	if resetKeywords[strings.ToLower(strings.TrimSpace(event.RawText))] {
		return e.reset(session), nil
	}

	switch session.State {
	case model.StateLevelSelection:
		return e.onLevelSelection(session, input), nil

	case model.StateAwaitingLevel:
		return e.onAwaitingLevel(ctx, session, input), nil

	case model.StateStudyingLesson:
		return e.onStudyingLesson(session, input)

	case model.StateAwaitingExercise:
		return e.onAwaitingExercise(ctx, session, input)

	case model.StateStart, model.StateMainMenu, model.StateInitialAssessment,
		model.StateChattingWithAI, model.StateFinished:
		return e.onMenuFamily(ctx, session, input, event.RawText)
	}

	// 库里出现未知状态（人工改库或旧版本残留），重置回菜单
	logger.Log.Warn("未知会话状态，已重置",
		zap.String("jid", session.WaJID),
		zap.String("state", string(session.State)))
	return e.reset(session), nil
}

// reset 重置词命中：未定级先走定级菜单，已定级回主菜单
func (e *Engine) reset(session *model.UserSession) []OutboundAction {
	session.ClearExercise()
	if !session.HasLevel() {
		session.State = model.StateLevelSelection
		return []OutboundAction{sendMenu(msgEscolhaNivel, nivelOptionsA)}
	}
	session.State = model.StateMainMenu
	return []OutboundAction{sendText(MenuPrincipal)}
}

func (e *Engine) onLevelSelection(session *model.UserSession, input string) []OutboundAction {
	switch strings.ToUpper(input) {
	case "A":
		session.State = model.StateAwaitingLevel
		return []OutboundAction{sendMenu(msgSelecioneNivel, NiveisConhecidos)}
	case "B":
		session.State = model.StateMainMenu
		return []OutboundAction{
			sendText(msgAvaliacaoEmBreve),
			sendText(MenuPrincipal),
		}
	default:
		return []OutboundAction{
			sendText(msgEscolhaNivelInvalida),
			sendMenu(msgEscolhaNivel, nivelOptionsA),
		}
	}
}

func (e *Engine) onAwaitingLevel(ctx context.Context, session *model.UserSession, input string) []OutboundAction {
	level, ok := KnownLevel(input)
	if !ok {
		return []OutboundAction{sendMenu(msgNivelInvalido, NiveisConhecidos)}
	}

	session.EnglishLevel = level
	session.State = model.StateMainMenu

	plan := e.ai.GenerateStudyPlan(ctx, level)
	return []OutboundAction{sendText(nivelSalvoMessage(level, plan))}
}

// onMenuFamily 主菜单家族：inicio/menu_principal/avaliacao_inicial/
// conversando_ia/finalizado 对数字选项的响应一致，差异只在兜底分支。
func (e *Engine) onMenuFamily(ctx context.Context, session *model.UserSession, input, rawText string) ([]OutboundAction, error) {
	switch strings.ToLower(input) {
	case "1":
		session.State = model.StateLevelSelection
		return []OutboundAction{sendMenu(msgEscolhaNivel, nivelOptionsA)}, nil

	case "2":
		return e.startDynamicExercise(ctx, session), nil

	case "3":
		session.State = model.StateChattingWithAI
		return []OutboundAction{sendText(msgGreetingConversa)}, nil

	case "4":
		status := e.checker.InstanceStatus(ctx)
		session.State = model.StateMainMenu
		return []OutboundAction{sendText(statusMessage(status))}, nil

	case "5", "sair", "parar":
		session.State = model.StateFinished
		return []OutboundAction{sendText(msgSair)}, nil

	case "6", "licao", "lição":
		return e.startStaticLesson(session)
	}

	// 自由对话状态下非选项输入原样转给 AI，保留大小写
	if session.State == model.StateChattingWithAI {
		reply := e.ai.GenerateReply(ctx, rawText)
		return []OutboundAction{sendText(reply)}, nil
	}

	session.State = model.StateMainMenu
	return []OutboundAction{sendText(fmt.Sprintf(msgNaoEntendi, input, MenuPrincipal))}, nil
}

// startStaticLesson 主菜单选项 6：从第一课开始，成绩清零
func (e *Engine) startStaticLesson(session *model.UserSession) ([]OutboundAction, error) {
	lesson, err := e.lessons.FindByID(1)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			session.State = model.StateMainMenu
			return []OutboundAction{sendText(msgSemLicoes)}, nil
		}
		return nil, err
	}

	session.State = model.StateStudyingLesson
	session.CurrentLessonID = 1
	session.Score = 0
	return []OutboundAction{licaoMenu(lesson, msgIniciandoLicoes)}, nil
}

func (e *Engine) onStudyingLesson(session *model.UserSession, input string) ([]OutboundAction, error) {
	answer := strings.ToUpper(input)
	if answer != "A" && answer != "B" && answer != "C" && answer != "D" {
		return []OutboundAction{sendText(msgComandoInvalidoLicao)}, nil
	}

	lesson, err := e.lessons.FindByID(session.CurrentLessonID)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			// 当前课被管理端删除，只能放弃本轮测验
			session.State = model.StateMainMenu
			session.CurrentLessonID = 0
			return []OutboundAction{sendText(msgSemLicoes)}, nil
		}
		return nil, err
	}

	if answer != strings.ToUpper(lesson.Correta) {
		session.State = model.StateMainMenu
		session.CurrentLessonID = 0
		session.Score = 0
		return []OutboundAction{sendText(licaoIncorretaMessage(lesson.Pergunta, strings.ToUpper(lesson.Correta)))}, nil
	}

	session.Score++

	next, err := e.lessons.FindByID(session.CurrentLessonID + 1)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) {
			// 题库到头，测验完成，累计得分保留到下一轮开始
			session.State = model.StateMainMenu
			session.CurrentLessonID = 0
			return []OutboundAction{sendText(licaoCompletaMessage(session.Score))}, nil
		}
		return nil, err
	}

	session.CurrentLessonID = next.ID
	return []OutboundAction{licaoMenu(next, msgProximaLicao)}, nil
}

// startDynamicExercise 主菜单选项 2。未定级先去定级；生成失败留在主菜单。
// 答对后的连续出题也走这里，保证两条路径行为一致。
func (e *Engine) startDynamicExercise(ctx context.Context, session *model.UserSession) []OutboundAction {
	if !session.HasLevel() {
		session.State = model.StateLevelSelection
		return []OutboundAction{sendMenu(msgDefinaNivelPrimeiro, nivelOptionsA)}
	}

	ex, err := e.ai.GenerateExercise(ctx, session.EnglishLevel)
	if err != nil {
		session.ClearExercise()
		session.State = model.StateMainMenu
		if util.IsExerciseContentError(err) {
			logger.Log.Warn("练习内容不合法",
				zap.String("jid", session.WaJID),
				zap.Error(err))
			return []OutboundAction{sendText(msgExercicioInvalido)}
		}
		logger.Log.Error("练习生成失败",
			zap.String("jid", session.WaJID),
			zap.Error(err))
		return []OutboundAction{sendText(msgExercicioIndisponivel)}
	}

	payload, err := json.Marshal(ex)
	if err != nil {
		session.ClearExercise()
		session.State = model.StateMainMenu
		return []OutboundAction{sendText(msgExercicioIndisponivel)}
	}

	session.State = model.StateAwaitingExercise
	session.SetExercise(ex.Tipo, strings.ToUpper(ex.Correta), payload)

	if ex.Tipo == model.ExerciseChoice {
		return []OutboundAction{exercicioMenu(ex)}
	}
	return []OutboundAction{sendText(fmt.Sprintf("🧩 *Exercício de Inglês*\n\n%s\n\n(Responda com texto livre)", ex.Pergunta))}
}

func (e *Engine) onAwaitingExercise(ctx context.Context, session *model.UserSession, input string) ([]OutboundAction, error) {
	if session.ExerciseKind == model.ExerciseOpen {
		session.ClearExercise()
		session.State = model.StateMainMenu
		return []OutboundAction{sendText(msgCorrecaoEmBreve)}, nil
	}

	if input == "" {
		return []OutboundAction{sendText(msgComandoInvalidoExercicio)}, nil
	}

	session.ExerciseAttempts++

	if strings.ToUpper(input) == session.ExerciseAnswer {
		session.ExerciseHits++
		correct := sendText(exercicioCorretoMessage(session.ExerciseHits))
		// 连胜：答对直接出下一题，不回主菜单
		next := e.startDynamicExercise(ctx, session)
		return append([]OutboundAction{correct}, next...), nil
	}

	// 答错：取回原题上下文让 AI 讲解，然后回主菜单
	var ex model.DynamicExercise
	question := ""
	if err := json.Unmarshal(session.ExercisePayload, &ex); err == nil {
		question = ex.Pergunta
	}
	correctAnswer := session.ExerciseAnswer

	session.ClearExercise()
	session.State = model.StateMainMenu

	explanation := e.ai.GenerateReinforcement(ctx, session.EnglishLevel, question, input, correctAnswer)
	return []OutboundAction{sendText(reforcoMessage(explanation))}, nil
}
