package service

import (
	"english_bot_backend/internal/model"
	"fmt"
	"strings"
)

// 主菜单。选项 2 是 IA 动态练习，固定词汇课程挪到了选项 6。
const MenuPrincipal = "Olá! Bem-vindo ao English Bot! Escolha uma opção:\n\n" +
	"1. Meu Nível de Inglês e Plano de Estudos\n" +
	"2. Exercício Dinâmico com IA\n" +
	"3. Prática de Conversação com IA (PLN)\n" +
	"4. Status da Conexão\n" +
	"5. Sair / Desligar (digite 'parar')\n" +
	"6. Iniciar Lição de Vocabulário (Quiz)"

const (
	msgEscolhaNivel = "Ótima escolha! Para criar seu plano, como você quer definir seu nível?\n\n" +
		"A. Escolher meu nível (Ex: Iniciante, Intermediário Alto)\n" +
		"B. Fazer um pequeno Teste de Nível com a IA (Em Breve)"

	msgEscolhaNivelInvalida = "Opção inválida. Por favor, escolha A ou B para continuar."

	msgAvaliacaoEmBreve = "A avaliação de nível por IA (Opção B) está em desenvolvimento. " +
		"Por favor, tente a Opção A ou volte ao menu."

	msgSelecioneNivel = "Certo. Por favor, selecione o seu nível de inglês atual:"

	msgNivelInvalido = "Nível inválido. Por favor, selecione um dos níveis disponíveis:"

	msgDefinaNivelPrimeiro = "Antes de praticar com a IA, preciso saber o seu nível de inglês. " +
		"Como você quer definir?"

	msgGreetingConversa = "Me diga sobre o que podemos conversar em inglês. " +
		"Ex: 'Qual a diferença entre look, see e watch?'"

	msgNaoEntendi = "Não entendi '%s'. Por favor, digite 'oi' ou uma opção numérica do menu.\n\n%s"

	msgComandoInvalidoLicao = "Comando inválido. Por favor, clique em um dos botões (A, B, C ou D)."

	msgComandoInvalidoExercicio = "Comando inválido. Por favor, responda o exercício acima."

	msgSair = "Certo. Saindo do sistema. Para reiniciar, envie 'oi' ou 'menu'."

	msgSemLicoes = "🚨 Erro: Nenhuma lição de inglês encontrada no banco de dados. " +
		"Cadastre lições pela API administrativa."

	msgExercicioInvalido = "⚠️ A IA retornou um exercício em formato inválido. " +
		"Por favor, tente novamente enviando a opção 2."

	msgExercicioIndisponivel = "🤖 Não foi possível gerar um exercício agora. " +
		"Tente novamente mais tarde."

	msgCorrecaoEmBreve = "✍️ Recebido! A correção de respostas abertas está em desenvolvimento. " +
		"Voltando ao menu principal.\n\n" + MenuPrincipal

	msgErroInterno = "😔 Tivemos um problema técnico ao processar sua mensagem. " +
		"Tente novamente em instantes."

	msgIniciandoLicoes = "***-- INICIANDO LIÇÕES --***"

	msgProximaLicao = "✅ *Correto!* Excelente. Próxima Lição:"
)

// NiveisConhecidos 可选英语等级的固定集合，控件 id 是去重音的大写规范形式
var NiveisConhecidos = []MenuOption{
	{Label: "Iniciante", ControlID: "INICIANTE"},
	{Label: "Básico", ControlID: "BASICO"},
	{Label: "Intermediário", ControlID: "INTERMEDIARIO"},
	{Label: "Intermediário Alto", ControlID: "INTERMEDIARIO ALTO"},
	{Label: "Avançado", ControlID: "AVANCADO"},
}

var nivelOptionsA = []MenuOption{
	{Label: "A: Escolher meu nível", ControlID: "A"},
	{Label: "B: Teste de Nível com IA", ControlID: "B"},
}

// accentReplacer 葡语输入的去重音归一化，等级匹配用
var accentReplacer = strings.NewReplacer(
	"Á", "A", "À", "A", "Â", "A", "Ã", "A",
	"É", "E", "Ê", "E",
	"Í", "I",
	"Ó", "O", "Ô", "O", "Õ", "O",
	"Ú", "U",
	"Ç", "C",
)

// NormalizeLevel 大写 + 去重音 + 压缩空白，返回规范等级 id
func NormalizeLevel(input string) string {
	up := accentReplacer.Replace(strings.ToUpper(strings.TrimSpace(input)))
	return strings.Join(strings.Fields(up), " ")
}

// KnownLevel 输入是否命中固定等级集合
func KnownLevel(input string) (string, bool) {
	norm := NormalizeLevel(input)
	for _, opt := range NiveisConhecidos {
		if norm == opt.ControlID {
			return opt.ControlID, true
		}
	}
	return "", false
}

func nivelSalvoMessage(level, plan string) string {
	return fmt.Sprintf("✨ Nível salvo como: *%s*.\n\n"+
		"🧠 *Seu Plano de Estudos Personalizado:*\n%s\n\n"+
		"Voltando ao menu principal.\n\n%s", level, plan, MenuPrincipal)
}

func statusMessage(status ConnectivityState) string {
	return fmt.Sprintf("📢 STATUS DA INSTÂNCIA:\n\nSua instância está atualmente: *%s*.\n\n"+
		"Se o status for 'DISCONNECTED', seu token pode ter expirado.", status)
}

func licaoCompletaMessage(score int) string {
	return fmt.Sprintf("🎉 *Parabéns! Você completou a lição introdutória!*\n"+
		"Total de acertos: %d.\n\n"+
		"Voltando ao menu principal.\n\n%s", score, MenuPrincipal)
}

func licaoIncorretaMessage(pergunta, correta string) string {
	return fmt.Sprintf("❌ *Incorreto.* A resposta correta para '%s' era %s.\n"+
		"Estude mais e tente novamente!\n\n"+
		"Voltando ao menu principal.\n\n%s", pergunta, correta, MenuPrincipal)
}

func exercicioCorretoMessage(hits int) string {
	return fmt.Sprintf("✅ *Correto!* Excelente. Acertos em exercícios: %d.\n"+
		"Preparando o próximo exercício...", hits)
}

func reforcoMessage(explanation string) string {
	return fmt.Sprintf("❌ *Incorreto.*\n\n%s\n\n"+
		"Voltando ao menu principal.\n\n%s", explanation, MenuPrincipal)
}

// licaoMenu 把一节课渲染成按钮菜单动作，字母前缀在这里拼接
func licaoMenu(lesson *model.Lesson, header string) OutboundAction {
	letters := []string{"A", "B", "C", "D"}
	opts := make([]MenuOption, 0, 4)
	for i, text := range lesson.Options() {
		opts = append(opts, MenuOption{
			Label:     fmt.Sprintf("%s: %s", letters[i], text),
			ControlID: letters[i],
		})
	}

	text := fmt.Sprintf("%s\n\n*%s*\nResponda: %s", header, lesson.Topico, lesson.Pergunta)
	return sendMenu(text, opts)
}

// exercicioMenu 动态选择题的按钮菜单，控件 id 绑定选项文本本身
func exercicioMenu(ex *model.DynamicExercise) OutboundAction {
	opts := make([]MenuOption, 0, len(ex.Opcoes))
	for _, opcao := range ex.Opcoes {
		opts = append(opts, MenuOption{Label: opcao, ControlID: opcao})
	}
	text := fmt.Sprintf("🧩 *Exercício de Inglês*\n\n%s", ex.Pergunta)
	return sendMenu(text, opts)
}
