package service

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"english_bot_backend/internal/model"
	"english_bot_backend/internal/util"
	"english_bot_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	os.Exit(m.Run())
}

// fakeLessonStore 固定课程表，id 连续
type fakeLessonStore struct {
	lessons map[uint]*model.Lesson
}

func (f *fakeLessonStore) FindByID(id uint) (*model.Lesson, error) {
	lesson, ok := f.lessons[id]
	if !ok {
		return nil, util.ErrLessonNotFound
	}
	return lesson, nil
}

// fakeAI 可编程的 AI 网关替身
type fakeAI struct {
	replyText       string
	plan            string
	exercises       []*model.DynamicExercise
	exerciseErr     error
	exerciseCalls   int
	reinforcement   string
	reinforceCalls  int
	lastReplyPrompt string
}

func (f *fakeAI) GenerateReply(_ context.Context, prompt string) string {
	f.lastReplyPrompt = prompt
	return f.replyText
}

func (f *fakeAI) GenerateStudyPlan(_ context.Context, _ string) string {
	return f.plan
}

func (f *fakeAI) GenerateExercise(_ context.Context, _ string) (*model.DynamicExercise, error) {
	f.exerciseCalls++
	if f.exerciseErr != nil {
		return nil, f.exerciseErr
	}
	ex := f.exercises[0]
	if len(f.exercises) > 1 {
		f.exercises = f.exercises[1:]
	}
	return ex, nil
}

func (f *fakeAI) GenerateReinforcement(_ context.Context, _, _, _, _ string) string {
	f.reinforceCalls++
	return f.reinforcement
}

type fakeChecker struct {
	state ConnectivityState
}

func (f *fakeChecker) InstanceStatus(_ context.Context) ConnectivityState {
	return f.state
}

func defaultLessons() *fakeLessonStore {
	return &fakeLessonStore{lessons: map[uint]*model.Lesson{
		1: {ID: 1, Topico: "Saudações", Pergunta: "Como se diz 'bom dia'?",
			OpcaoA: "Good night", OpcaoB: "Good morning", OpcaoC: "Goodbye", OpcaoD: "Good luck", Correta: "B"},
		2: {ID: 2, Topico: "Verb To Be", Pergunta: "She ___ a teacher.",
			OpcaoA: "are", OpcaoB: "am", OpcaoC: "is", OpcaoD: "be", Correta: "C"},
	}}
}

func choiceExercise() *model.DynamicExercise {
	return &model.DynamicExercise{
		ID:       "ex-1",
		Tipo:     model.ExerciseChoice,
		Pergunta: "I ___ to school every day.",
		Opcoes:   []string{"go", "goes", "going", "gone"},
		Correta:  "go",
	}
}

func newTestEngine(lessons *fakeLessonStore, ai *fakeAI, checker *fakeChecker) *Engine {
	if lessons == nil {
		lessons = defaultLessons()
	}
	if ai == nil {
		ai = &fakeAI{}
	}
	if checker == nil {
		checker = &fakeChecker{state: ConnectivityConnected}
	}
	return NewEngine(lessons, ai, checker)
}

func newSession(state model.SessionState, level string) *model.UserSession {
	return &model.UserSession{
		WaJID:        "5511999999999@s.whatsapp.net",
		Name:         "Maria",
		EnglishLevel: level,
		State:        state,
	}
}

// 练习上下文字段必须与状态同生共死
func assertExerciseInvariant(t *testing.T, s *model.UserSession) {
	t.Helper()
	if s.State == model.StateAwaitingExercise {
		assert.NotEmpty(t, s.ExerciseKind)
		assert.NotEmpty(t, s.ExerciseAnswer)
		assert.NotEmpty(t, []byte(s.ExercisePayload))
	} else {
		assert.Empty(t, s.ExerciseKind)
		assert.Empty(t, s.ExerciseAnswer)
		assert.Empty(t, []byte(s.ExercisePayload))
	}
}

func TestReset_WithoutLevelGoesToLevelSelection(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)

	for _, keyword := range []string{"oi", "olá", "ola", "menu", "OI", "Menu"} {
		session := newSession(model.StateFinished, model.LevelUndefined)
		actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: keyword})
		require.NoError(t, err)

		assert.Equal(t, model.StateLevelSelection, session.State, "keyword %q", keyword)
		require.Len(t, actions, 1)
		assert.Equal(t, ActionSendMenu, actions[0].Kind)
		require.Len(t, actions[0].Options, 2)
		assert.Equal(t, "A", actions[0].Options[0].ControlID)
		assert.Equal(t, "B", actions[0].Options[1].ControlID)
	}
}

func TestReset_WithLevelGoesToMainMenu(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateChattingWithAI, "INICIANTE")

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "menu"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionSendText, actions[0].Kind)
	assert.Equal(t, MenuPrincipal, actions[0].Text)
}

func TestReset_ClearsPendingExercise(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateAwaitingExercise, "BASICO")
	session.SetExercise(model.ExerciseChoice, "GO", []byte(`{"pergunta":"x"}`))

	_, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "oi"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	assertExerciseInvariant(t, session)
}

func TestLevelSelection(t *testing.T) {
	t.Run("option A asks for level", func(t *testing.T) {
		engine := newTestEngine(nil, nil, nil)
		session := newSession(model.StateLevelSelection, model.LevelUndefined)

		actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "a"})
		require.NoError(t, err)

		assert.Equal(t, model.StateAwaitingLevel, session.State)
		require.Len(t, actions, 1)
		assert.Equal(t, ActionSendMenu, actions[0].Kind)
		assert.Len(t, actions[0].Options, 5)
	})

	t.Run("option B not implemented returns to menu", func(t *testing.T) {
		engine := newTestEngine(nil, nil, nil)
		session := newSession(model.StateLevelSelection, model.LevelUndefined)

		actions, err := engine.Transition(context.Background(), session, InboundEvent{ControlID: "B"})
		require.NoError(t, err)

		assert.Equal(t, model.StateMainMenu, session.State)
		require.Len(t, actions, 2)
		assert.Contains(t, actions[0].Text, "desenvolvimento")
		assert.Equal(t, MenuPrincipal, actions[1].Text)
	})

	t.Run("invalid input re-emits menu", func(t *testing.T) {
		engine := newTestEngine(nil, nil, nil)
		session := newSession(model.StateLevelSelection, model.LevelUndefined)

		actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "xyz"})
		require.NoError(t, err)

		assert.Equal(t, model.StateLevelSelection, session.State)
		require.Len(t, actions, 2)
		assert.Equal(t, ActionSendMenu, actions[1].Kind)
	})
}

func TestAwaitingLevel_AcceptsAccentedInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"INICIANTE", "INICIANTE"},
		{"iniciante", "INICIANTE"},
		{"Básico", "BASICO"},
		{"basico", "BASICO"},
		{"intermediário alto", "INTERMEDIARIO ALTO"},
		{"INTERMEDIARIO  ALTO", "INTERMEDIARIO ALTO"},
		{"Avançado", "AVANCADO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ai := &fakeAI{plan: "Plano semanal: vocabulário básico."}
			engine := newTestEngine(nil, ai, nil)
			session := newSession(model.StateAwaitingLevel, model.LevelUndefined)

			actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: tt.input})
			require.NoError(t, err)

			assert.Equal(t, tt.want, session.EnglishLevel)
			assert.Equal(t, model.StateMainMenu, session.State)
			require.Len(t, actions, 1)
			assert.Contains(t, actions[0].Text, tt.want)
			assert.Contains(t, actions[0].Text, ai.plan)
		})
	}
}

func TestAwaitingLevel_RejectsUnknownLevel(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateAwaitingLevel, model.LevelUndefined)

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "fluente"})
	require.NoError(t, err)

	assert.Equal(t, model.StateAwaitingLevel, session.State)
	assert.Equal(t, model.LevelUndefined, session.EnglishLevel)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionSendMenu, actions[0].Kind)
}

func TestMainMenu_Option1GoesToLevelSelection(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateMainMenu, "INICIANTE")

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "1"})
	require.NoError(t, err)

	assert.Equal(t, model.StateLevelSelection, session.State)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionSendMenu, actions[0].Kind)
}

func TestMainMenu_Option2WithoutLevelRedirects(t *testing.T) {
	ai := &fakeAI{exercises: []*model.DynamicExercise{choiceExercise()}}
	engine := newTestEngine(nil, ai, nil)
	session := newSession(model.StateMainMenu, model.LevelUndefined)

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "2"})
	require.NoError(t, err)

	assert.Equal(t, model.StateLevelSelection, session.State)
	assert.Zero(t, ai.exerciseCalls)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionSendMenu, actions[0].Kind)
}

func TestMainMenu_Option2StartsChoiceExercise(t *testing.T) {
	ai := &fakeAI{exercises: []*model.DynamicExercise{choiceExercise()}}
	engine := newTestEngine(nil, ai, nil)
	session := newSession(model.StateMainMenu, "BASICO")

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "2"})
	require.NoError(t, err)

	assert.Equal(t, model.StateAwaitingExercise, session.State)
	assert.Equal(t, model.ExerciseChoice, session.ExerciseKind)
	assert.Equal(t, "GO", session.ExerciseAnswer)
	assertExerciseInvariant(t, session)

	require.Len(t, actions, 1)
	assert.Equal(t, ActionSendMenu, actions[0].Kind)
	require.Len(t, actions[0].Options, 4)
	// 按钮控件 id 绑定选项文本本身
	assert.Equal(t, "go", actions[0].Options[0].ControlID)
	assert.Equal(t, "go", actions[0].Options[0].Label)

	var stored model.DynamicExercise
	require.NoError(t, json.Unmarshal(session.ExercisePayload, &stored))
	assert.Equal(t, "I ___ to school every day.", stored.Pergunta)
}

func TestMainMenu_Option2ContentErrorStaysOnMenu(t *testing.T) {
	ai := &fakeAI{exerciseErr: &util.ExerciseContentError{Reason: "opções duplicadas"}}
	engine := newTestEngine(nil, ai, nil)
	session := newSession(model.StateMainMenu, "BASICO")

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "2"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	assertExerciseInvariant(t, session)
	require.Len(t, actions, 1)
	assert.Equal(t, msgExercicioInvalido, actions[0].Text)
}

func TestMainMenu_Option3EntersConversation(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateMainMenu, "AVANCADO")

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "3"})
	require.NoError(t, err)

	assert.Equal(t, model.StateChattingWithAI, session.State)
	require.Len(t, actions, 1)
	assert.Equal(t, msgGreetingConversa, actions[0].Text)
}

func TestMainMenu_Option4ReportsStatus(t *testing.T) {
	engine := newTestEngine(nil, nil, &fakeChecker{state: ConnectivityDisconnected})
	session := newSession(model.StateMainMenu, "INICIANTE")

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "4"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Text, "DISCONNECTED")
}

func TestMainMenu_Option5AndStopWordsFinish(t *testing.T) {
	for _, input := range []string{"5", "sair", "parar"} {
		engine := newTestEngine(nil, nil, nil)
		session := newSession(model.StateMainMenu, "INICIANTE")

		actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: input})
		require.NoError(t, err)

		assert.Equal(t, model.StateFinished, session.State, "input %q", input)
		require.Len(t, actions, 1)
		assert.Equal(t, msgSair, actions[0].Text)
	}
}

func TestMainMenu_Option6StartsLessonQuiz(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateMainMenu, "INICIANTE")
	session.Score = 3

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "6"})
	require.NoError(t, err)

	assert.Equal(t, model.StateStudyingLesson, session.State)
	assert.Equal(t, uint(1), session.CurrentLessonID)
	assert.Zero(t, session.Score)

	require.Len(t, actions, 1)
	assert.Equal(t, ActionSendMenu, actions[0].Kind)
	require.Len(t, actions[0].Options, 4)
	assert.Equal(t, "A", actions[0].Options[0].ControlID)
	assert.Equal(t, "A: Good night", actions[0].Options[0].Label)
	assert.Contains(t, actions[0].Text, "Saudações")
}

func TestMainMenu_Option6WithoutLessons(t *testing.T) {
	engine := newTestEngine(&fakeLessonStore{lessons: map[uint]*model.Lesson{}}, nil, nil)
	session := newSession(model.StateMainMenu, "INICIANTE")

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "6"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	require.Len(t, actions, 1)
	assert.Equal(t, msgSemLicoes, actions[0].Text)
}

func TestMainMenu_UnknownInputFallsBack(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateFinished, "INICIANTE")

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "qualquer coisa"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Text, "Não entendi 'qualquer coisa'")
	assert.Contains(t, actions[0].Text, MenuPrincipal)
}

func TestConversation_ForwardsFreeTextToAI(t *testing.T) {
	ai := &fakeAI{replyText: "Look é olhar, see é ver, watch é assistir."}
	engine := newTestEngine(nil, ai, nil)
	session := newSession(model.StateChattingWithAI, "INTERMEDIARIO")

	actions, err := engine.Transition(context.Background(), session, InboundEvent{
		RawText: "qual a diferença entre look, see e watch?",
	})
	require.NoError(t, err)

	assert.Equal(t, model.StateChattingWithAI, session.State)
	assert.Equal(t, "qual a diferença entre look, see e watch?", ai.lastReplyPrompt)
	require.Len(t, actions, 1)
	assert.Equal(t, ai.replyText, actions[0].Text)
}

func TestStudyingLesson_CorrectAnswerAdvances(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateStudyingLesson, "INICIANTE")
	session.CurrentLessonID = 1

	actions, err := engine.Transition(context.Background(), session, InboundEvent{ControlID: "B"})
	require.NoError(t, err)

	assert.Equal(t, model.StateStudyingLesson, session.State)
	assert.Equal(t, uint(2), session.CurrentLessonID)
	assert.Equal(t, 1, session.Score)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Text, "Verb To Be")
}

func TestStudyingLesson_AnswerIsCaseInsensitive(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateStudyingLesson, "INICIANTE")
	session.CurrentLessonID = 1

	_, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "b"})
	require.NoError(t, err)

	assert.Equal(t, 1, session.Score)
	assert.Equal(t, uint(2), session.CurrentLessonID)
}

func TestStudyingLesson_LastLessonCompletesQuiz(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateStudyingLesson, "INICIANTE")
	session.CurrentLessonID = 2
	session.Score = 1

	actions, err := engine.Transition(context.Background(), session, InboundEvent{ControlID: "C"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	assert.Zero(t, session.CurrentLessonID)
	// 完成测验保留累计得分
	assert.Equal(t, 2, session.Score)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Text, "Parabéns")
	assert.Contains(t, actions[0].Text, "2")
}

func TestStudyingLesson_WrongAnswerResetsQuiz(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateStudyingLesson, "INICIANTE")
	session.CurrentLessonID = 2
	session.Score = 1

	actions, err := engine.Transition(context.Background(), session, InboundEvent{ControlID: "A"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	assert.Zero(t, session.CurrentLessonID)
	assert.Zero(t, session.Score)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Text, "Incorreto")
	assert.Contains(t, actions[0].Text, "era C")
}

func TestStudyingLesson_InvalidInputKeepsState(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.StateStudyingLesson, "INICIANTE")
	session.CurrentLessonID = 1
	session.Score = 0

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "talvez"})
	require.NoError(t, err)

	assert.Equal(t, model.StateStudyingLesson, session.State)
	assert.Equal(t, uint(1), session.CurrentLessonID)
	require.Len(t, actions, 1)
	assert.Equal(t, msgComandoInvalidoLicao, actions[0].Text)
}

func TestAwaitingExercise_CorrectAnswerChainsNextExercise(t *testing.T) {
	first := choiceExercise()
	second := &model.DynamicExercise{
		ID:       "ex-2",
		Tipo:     model.ExerciseChoice,
		Pergunta: "She ___ coffee.",
		Opcoes:   []string{"drink", "drinks", "drinking", "drank"},
		Correta:  "drinks",
	}
	ai := &fakeAI{exercises: []*model.DynamicExercise{second}}
	engine := newTestEngine(nil, ai, nil)

	session := newSession(model.StateAwaitingExercise, "BASICO")
	payload, _ := json.Marshal(first)
	session.SetExercise(first.Tipo, "GO", payload)

	actions, err := engine.Transition(context.Background(), session, InboundEvent{ControlID: "go"})
	require.NoError(t, err)

	assert.Equal(t, 1, session.ExerciseHits)
	assert.Equal(t, 1, session.ExerciseAttempts)
	assert.Equal(t, 1, ai.exerciseCalls)

	// 答对后直接出下一题，不回主菜单
	assert.Equal(t, model.StateAwaitingExercise, session.State)
	assert.Equal(t, "DRINKS", session.ExerciseAnswer)
	assertExerciseInvariant(t, session)

	require.Len(t, actions, 2)
	assert.Contains(t, actions[0].Text, "Correto")
	assert.Equal(t, ActionSendMenu, actions[1].Kind)
	assert.Contains(t, actions[1].Text, "She ___ coffee.")
}

func TestAwaitingExercise_WrongAnswerGetsReinforcement(t *testing.T) {
	ai := &fakeAI{reinforcement: "'go' é usado com 'I'; 'goes' só na terceira pessoa."}
	engine := newTestEngine(nil, ai, nil)

	session := newSession(model.StateAwaitingExercise, "BASICO")
	payload, _ := json.Marshal(choiceExercise())
	session.SetExercise(model.ExerciseChoice, "GO", payload)

	actions, err := engine.Transition(context.Background(), session, InboundEvent{ControlID: "goes"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	assert.Zero(t, session.ExerciseHits)
	assert.Equal(t, 1, session.ExerciseAttempts)
	assert.Equal(t, 1, ai.reinforceCalls)
	assertExerciseInvariant(t, session)

	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Text, ai.reinforcement)
	assert.Contains(t, actions[0].Text, MenuPrincipal)
}

func TestAwaitingExercise_EmptyInputKeepsState(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)

	session := newSession(model.StateAwaitingExercise, "BASICO")
	payload, _ := json.Marshal(choiceExercise())
	session.SetExercise(model.ExerciseChoice, "GO", payload)

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: ""})
	require.NoError(t, err)

	assert.Equal(t, model.StateAwaitingExercise, session.State)
	assert.Zero(t, session.ExerciseAttempts)
	require.Len(t, actions, 1)
	assert.Equal(t, msgComandoInvalidoExercicio, actions[0].Text)
}

func TestAwaitingExercise_OpenExercisePendingCorrection(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)

	session := newSession(model.StateAwaitingExercise, "AVANCADO")
	session.SetExercise(model.ExerciseOpen, "ANY", []byte(`{"pergunta":"Describe your day."}`))

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "i wake up early"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	assertExerciseInvariant(t, session)
	require.Len(t, actions, 1)
	assert.Equal(t, msgCorrecaoEmBreve, actions[0].Text)
}

func TestUnknownStateResetsSession(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	session := newSession(model.SessionState("estado_legado"), "INICIANTE")

	actions, err := engine.Transition(context.Background(), session, InboundEvent{RawText: "1"})
	require.NoError(t, err)

	assert.Equal(t, model.StateMainMenu, session.State)
	require.Len(t, actions, 1)
	assert.Equal(t, MenuPrincipal, actions[0].Text)
}
