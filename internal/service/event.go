package service

// InboundEvent 适配器归一化后的入站事件，引擎的唯一输入形态。
type InboundEvent struct {
	// SenderJID 渠道下发的用户标识
	SenderJID string
	// SenderName 仅在首次建会话时使用
	SenderName string
	// RawText 自由文本，已小写并去首尾空白
	RawText string
	// ControlID 按钮点击时绑定的控件 id，原样保留；非点击事件为空
	ControlID string
}

// Input 有按钮点击时优先取控件 id，否则取文本
func (e InboundEvent) Input() string {
	if e.ControlID != "" {
		return e.ControlID
	}
	return e.RawText
}

// ActionKind 出站动作类型
type ActionKind string

const (
	ActionSendText ActionKind = "text"
	ActionSendMenu ActionKind = "menu"
)

// MenuOption 按钮菜单的一项。顺序就是展示顺序，label/controlID 显式成对，
// 不依赖任何 map 的遍历顺序。
type MenuOption struct {
	Label     string
	ControlID string
}

// OutboundAction 引擎产出的出站动作，按序经消息网关投递
type OutboundAction struct {
	Kind    ActionKind
	Text    string
	Options []MenuOption
}

func sendText(text string) OutboundAction {
	return OutboundAction{Kind: ActionSendText, Text: text}
}

func sendMenu(text string, options []MenuOption) OutboundAction {
	return OutboundAction{Kind: ActionSendMenu, Text: text, Options: options}
}
