// Package conversation 维护每个提问者的会话连续性：
// 会话标识与本轮运行内的提问历史.
package conversation

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Manager 按提问者维护会话标识与提问历史.
//
// 同一提问者的行由单个分组顺序处理，但不同提问者的分组并发运行，
// 共享的两张表用互斥锁保护。每轮运行开始时必须 Reset，避免跨轮泄漏.
type Manager struct {
	mu sync.Mutex
	// 提问者 → 会话标识（远端首次应答后才有）
	conversations map[string]string
	// 提问者 → 本轮已提问题的有序列表
	history map[string][]string

	chainContext bool
	logger       *zap.Logger
}

// NewManager 创建会话管理器。chainContext 开启后，在拿到会话标识前
// 会把同一提问者先前的问题拼入当前消息.
func NewManager(chainContext bool, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		conversations: make(map[string]string),
		history:       make(map[string][]string),
		chainContext:  chainContext,
		logger:        logger,
	}
}

// Reset 清空全部会话状态，在每轮运行开始时调用.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = make(map[string]string)
	m.history = make(map[string][]string)
}

// ConversationID 返回提问者当前的会话标识，尚未建立时返回空串.
func (m *Manager) ConversationID(questioner string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conversations[questioner]
}

// SetConversationID 记录远端返回的会话标识。空标识不覆盖已有值.
func (m *Manager) SetConversationID(questioner, conversationID string) {
	if conversationID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[questioner]; !ok {
		m.logger.Debug("conversation established",
			zap.String("questioner", questioner),
			zap.String("conversation_id", conversationID))
	}
	m.conversations[questioner] = conversationID
}

// BuildMessage 记录当前问题并构造要发送的消息.
//
// 尚无会话标识、开启了上下文拼接且历史中有先前问题时，构造一条把全部
// 先前问题编号列出、末尾附当前问题的组合消息；否则原样返回当前问题。
// 会话标识建立后，服务端自行承载上下文，始终发送原始问题.
func (m *Manager) BuildMessage(questioner, question string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history[questioner] = append(m.history[questioner], question)

	if !m.chainContext {
		return question
	}
	if m.conversations[questioner] != "" {
		return question
	}
	prior := m.history[questioner][:len(m.history[questioner])-1]
	if len(prior) == 0 {
		return question
	}

	var b strings.Builder
	b.WriteString("以下是此前的提问记录：\n")
	for i, q := range prior {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, q))
	}
	b.WriteString(fmt.Sprintf("%d. %s\n", len(prior)+1, question))
	b.WriteString("请只回答最后一个问题。")
	return b.String()
}

// DropLastQuestion 把提问者历史中最近一次出现的 question 移除.
// 补偿重试前调用，避免重建消息时把该行自己的问题重复计入。
// 同一提问者多行失败时，先补偿的行不在历史末尾，所以从尾部向前找.
func (m *Manager) DropLastQuestion(questioner, question string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.history[questioner]
	for i := len(h) - 1; i >= 0; i-- {
		if h[i] == question {
			m.history[questioner] = append(h[:i], h[i+1:]...)
			return
		}
	}
}

// HistoryLen 返回提问者已记录的问题数，供测试与统计使用.
func (m *Manager) HistoryLen(questioner string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history[questioner])
}
