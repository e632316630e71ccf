package conversation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManagerConversationID(t *testing.T) {
	t.Run("unknown questioner has empty conversation", func(t *testing.T) {
		m := NewManager(true, nil)
		assert.Equal(t, "", m.ConversationID("alice"))
	})

	t.Run("set then get round trips", func(t *testing.T) {
		m := NewManager(true, nil)
		m.SetConversationID("alice", "conv-1")
		assert.Equal(t, "conv-1", m.ConversationID("alice"))
	})

	t.Run("empty id does not overwrite", func(t *testing.T) {
		m := NewManager(true, nil)
		m.SetConversationID("alice", "conv-1")
		m.SetConversationID("alice", "")
		assert.Equal(t, "conv-1", m.ConversationID("alice"))
	})

	t.Run("questioners are isolated", func(t *testing.T) {
		m := NewManager(true, nil)
		m.SetConversationID("alice", "conv-a")
		assert.Equal(t, "", m.ConversationID("bob"))
	})

	t.Run("reset clears all state", func(t *testing.T) {
		m := NewManager(true, nil)
		m.SetConversationID("alice", "conv-1")
		m.BuildMessage("alice", "q1")
		m.Reset()
		assert.Equal(t, "", m.ConversationID("alice"))
		assert.Equal(t, 0, m.HistoryLen("alice"))
	})
}

func TestManagerBuildMessage(t *testing.T) {
	t.Run("first question is sent verbatim", func(t *testing.T) {
		m := NewManager(true, nil)
		assert.Equal(t, "退货流程是什么", m.BuildMessage("alice", "退货流程是什么"))
	})

	t.Run("without conversation prior questions are chained", func(t *testing.T) {
		m := NewManager(true, nil)
		m.BuildMessage("alice", "第一问")
		msg := m.BuildMessage("alice", "第二问")

		assert.Contains(t, msg, "1. 第一问")
		assert.Contains(t, msg, "2. 第二问")
		assert.Contains(t, msg, "请只回答最后一个问题")
	})

	t.Run("established conversation sends raw question", func(t *testing.T) {
		m := NewManager(true, nil)
		m.BuildMessage("alice", "第一问")
		m.SetConversationID("alice", "conv-1")
		assert.Equal(t, "第二问", m.BuildMessage("alice", "第二问"))
	})

	t.Run("chaining disabled sends raw question always", func(t *testing.T) {
		m := NewManager(false, nil)
		m.BuildMessage("alice", "第一问")
		assert.Equal(t, "第二问", m.BuildMessage("alice", "第二问"))
	})

	t.Run("history counts every built message", func(t *testing.T) {
		m := NewManager(true, nil)
		m.BuildMessage("alice", "q1")
		m.BuildMessage("alice", "q2")
		assert.Equal(t, 2, m.HistoryLen("alice"))
		assert.Equal(t, 0, m.HistoryLen("bob"))
	})

	t.Run("chained message lists questions in order", func(t *testing.T) {
		m := NewManager(true, nil)
		m.BuildMessage("alice", "q1")
		m.BuildMessage("alice", "q2")
		msg := m.BuildMessage("alice", "q3")

		i1 := strings.Index(msg, "q1")
		i2 := strings.Index(msg, "q2")
		i3 := strings.Index(msg, "q3")
		assert.True(t, i1 < i2 && i2 < i3)
	})
}

func TestManagerDropLastQuestion(t *testing.T) {
	t.Run("removes matching tail entry", func(t *testing.T) {
		m := NewManager(true, nil)
		m.BuildMessage("alice", "q1")
		m.BuildMessage("alice", "q2")
		m.DropLastQuestion("alice", "q2")
		assert.Equal(t, 1, m.HistoryLen("alice"))
	})

	t.Run("removes mid-history entry when later questions exist", func(t *testing.T) {
		m := NewManager(true, nil)
		m.BuildMessage("alice", "q1")
		m.BuildMessage("alice", "q2")

		// q1 不在末尾，仍然要被摘除
		m.DropLastQuestion("alice", "q1")
		msg := m.BuildMessage("alice", "q1")

		assert.Equal(t, 1, strings.Count(msg, "q1"))
		assert.Equal(t, 1, strings.Count(msg, "q2"))
	})

	t.Run("removes only the most recent occurrence", func(t *testing.T) {
		m := NewManager(true, nil)
		m.BuildMessage("alice", "q1")
		m.BuildMessage("alice", "q2")
		m.BuildMessage("alice", "q1")

		m.DropLastQuestion("alice", "q1")
		assert.Equal(t, 2, m.HistoryLen("alice"))

		// 剩下的历史是 q1, q2
		msg := m.BuildMessage("alice", "q3")
		assert.Equal(t, 1, strings.Count(msg, "q1"))
	})

	t.Run("non matching tail is kept", func(t *testing.T) {
		m := NewManager(true, nil)
		m.BuildMessage("alice", "q1")
		m.DropLastQuestion("alice", "别的问题")
		assert.Equal(t, 1, m.HistoryLen("alice"))
	})

	t.Run("empty history is a no-op", func(t *testing.T) {
		m := NewManager(true, nil)
		m.DropLastQuestion("alice", "q1")
		assert.Equal(t, 0, m.HistoryLen("alice"))
	})

	t.Run("drop then rebuild does not duplicate the question", func(t *testing.T) {
		m := NewManager(true, nil)
		m.BuildMessage("alice", "q1")
		m.BuildMessage("alice", "q2")

		// 补偿重试前摘除，再重建同一问题
		m.DropLastQuestion("alice", "q2")
		msg := m.BuildMessage("alice", "q2")

		assert.Equal(t, 1, strings.Count(msg, "q2"))
		assert.Equal(t, 2, m.HistoryLen("alice"))
	})
}
