package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseExpectedSegments(t *testing.T) {
	t.Run("empty text returns nil", func(t *testing.T) {
		assert.Nil(t, ParseExpectedSegments("", nil))
		assert.Nil(t, ParseExpectedSegments("   \n\t  ", nil))
	})

	t.Run("text without separators returns single segment", func(t *testing.T) {
		segments := ParseExpectedSegments("  整段内容没有分隔符  ", nil)
		assert.Len(t, segments, 1)
		assert.Equal(t, "整段内容没有分隔符", segments[0].Text)
		assert.Equal(t, 0, segments[0].Index)
	})

	t.Run("dash separator splits into segments", func(t *testing.T) {
		segments := ParseExpectedSegments("第一段---第二段---第三段", nil)
		assert.Len(t, segments, 3)
		assert.Equal(t, "第一段", segments[0].Text)
		assert.Equal(t, "第二段", segments[1].Text)
		assert.Equal(t, "第三段", segments[2].Text)
	})

	t.Run("pipe separator splits into segments", func(t *testing.T) {
		segments := ParseExpectedSegments("alpha|||beta", nil)
		assert.Len(t, segments, 2)
		assert.Equal(t, "alpha", segments[0].Text)
		assert.Equal(t, "beta", segments[1].Text)
	})

	t.Run("blank line separator splits into segments", func(t *testing.T) {
		segments := ParseExpectedSegments("段落一\n\n段落二", nil)
		assert.Len(t, segments, 2)
	})

	t.Run("mixed separators apply in sequence", func(t *testing.T) {
		segments := ParseExpectedSegments("a---b|||c\n\nd", nil)
		assert.Len(t, segments, 4)
		assert.Equal(t, "a", segments[0].Text)
		assert.Equal(t, "d", segments[3].Text)
	})

	t.Run("empty parts are dropped", func(t *testing.T) {
		segments := ParseExpectedSegments("a--- ---b", nil)
		assert.Len(t, segments, 2)
		assert.Equal(t, "a", segments[0].Text)
		assert.Equal(t, "b", segments[1].Text)
	})

	t.Run("segments are trimmed", func(t *testing.T) {
		segments := ParseExpectedSegments("  a  ---  b  ", nil)
		assert.Equal(t, "a", segments[0].Text)
		assert.Equal(t, "b", segments[1].Text)
	})

	t.Run("custom separators override defaults", func(t *testing.T) {
		segments := ParseExpectedSegments("a##b---c", []string{"##"})
		assert.Len(t, segments, 2)
		assert.Equal(t, "a", segments[0].Text)
		assert.Equal(t, "b---c", segments[1].Text)
	})

	t.Run("indexes follow segment order", func(t *testing.T) {
		segments := ParseExpectedSegments("x---y---z", nil)
		for i, seg := range segments {
			assert.Equal(t, i, seg.Index)
		}
	})
}
