package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WantedChef/chefchat/internal/provider/models"
)

func intPtr(i int) *int { return &i }

func textChunk(text string) *models.Chunk {
	return &models.Chunk{Message: models.Message{Role: models.RoleAssistant, Content: text}}
}

func TestAccumulatorText(t *testing.T) {
	t.Run("EmitsTextSoFarEveryBatch", func(t *testing.T) {
		var emitted []string
		acc := newAccumulator(3, func(s string) { emitted = append(emitted, s) })

		for _, s := range []string{"a", "b", "c", "d"} {
			require.NoError(t, acc.Add(textChunk(s)))
		}
		require.NoError(t, acc.Add(&models.Chunk{Usage: &models.Usage{PromptTokens: 1}}))

		final, err := acc.Finalize()
		require.NoError(t, err)

		// Each emission carries the whole text so far, so a consumer that
		// missed one is caught up by the next.
		assert.Equal(t, []string{"abc", "abcd"}, emitted)
		assert.Equal(t, "abcd", final.Message.Content)
	})

	t.Run("EmptyFragmentsDoNotCount", func(t *testing.T) {
		var emitted []string
		acc := newAccumulator(2, func(s string) { emitted = append(emitted, s) })

		require.NoError(t, acc.Add(textChunk("a")))
		require.NoError(t, acc.Add(textChunk("")))
		require.NoError(t, acc.Add(textChunk("")))
		assert.Empty(t, emitted)

		require.NoError(t, acc.Add(textChunk("b")))
		assert.Equal(t, []string{"ab"}, emitted)
	})

	t.Run("FinalizeDoesNotRepeatFlushedText", func(t *testing.T) {
		var emitted []string
		acc := newAccumulator(2, func(s string) { emitted = append(emitted, s) })

		require.NoError(t, acc.Add(textChunk("a")))
		require.NoError(t, acc.Add(textChunk("b")))
		require.NoError(t, acc.Add(&models.Chunk{Usage: &models.Usage{}}))

		_, err := acc.Finalize()
		require.NoError(t, err)
		assert.Equal(t, []string{"ab"}, emitted)
	})
}

func TestAccumulatorToolCalls(t *testing.T) {
	t.Run("AssemblesFragmentsByIndex", func(t *testing.T) {
		acc := newAccumulator(5, nil)

		require.NoError(t, acc.Add(&models.Chunk{Message: models.Message{ToolCalls: []models.ToolCall{
			{Index: intPtr(0), ID: "call_a", Name: "bash", Arguments: `{"comm`},
		}}}))
		require.NoError(t, acc.Add(&models.Chunk{Message: models.Message{ToolCalls: []models.ToolCall{
			{Index: intPtr(1), ID: "call_b", Name: "read_file", Arguments: `{"path":"x"}`},
		}}}))
		require.NoError(t, acc.Add(&models.Chunk{Message: models.Message{ToolCalls: []models.ToolCall{
			{Index: intPtr(0), Arguments: `and":"ls"}`},
		}}}))
		require.NoError(t, acc.Add(&models.Chunk{Usage: &models.Usage{}}))

		final, err := acc.Finalize()
		require.NoError(t, err)
		require.Len(t, final.Message.ToolCalls, 2)
		assert.Equal(t, "call_a", final.Message.ToolCalls[0].ID)
		assert.Equal(t, `{"command":"ls"}`, final.Message.ToolCalls[0].Arguments)
		assert.Equal(t, "call_b", final.Message.ToolCalls[1].ID)
	})

	t.Run("MissingIndexIsProtocolError", func(t *testing.T) {
		acc := newAccumulator(5, nil)
		err := acc.Add(&models.Chunk{Message: models.Message{ToolCalls: []models.ToolCall{
			{ID: "call_a", Name: "bash"},
		}}})
		var streamErr *MalformedStreamError
		require.True(t, errors.As(err, &streamErr))
		assert.Contains(t, streamErr.Reason, "index")
	})

	t.Run("NonContiguousIndexesAreProtocolError", func(t *testing.T) {
		acc := newAccumulator(5, nil)
		require.NoError(t, acc.Add(&models.Chunk{Message: models.Message{ToolCalls: []models.ToolCall{
			{Index: intPtr(0), ID: "a", Name: "bash"},
			{Index: intPtr(2), ID: "c", Name: "bash"},
		}}}))
		require.NoError(t, acc.Add(&models.Chunk{Usage: &models.Usage{}}))

		_, err := acc.Finalize()
		var streamErr *MalformedStreamError
		require.True(t, errors.As(err, &streamErr))
	})
}

func TestAccumulatorMetadata(t *testing.T) {
	t.Run("FirstFinishReasonWins", func(t *testing.T) {
		acc := newAccumulator(5, nil)
		require.NoError(t, acc.Add(&models.Chunk{FinishReason: "tool_calls"}))
		require.NoError(t, acc.Add(&models.Chunk{FinishReason: "stop", Usage: &models.Usage{}}))

		final, err := acc.Finalize()
		require.NoError(t, err)
		assert.Equal(t, "tool_calls", final.FinishReason)
	})

	t.Run("LastUsageWins", func(t *testing.T) {
		acc := newAccumulator(5, nil)
		require.NoError(t, acc.Add(&models.Chunk{Usage: &models.Usage{PromptTokens: 1}}))
		require.NoError(t, acc.Add(&models.Chunk{Usage: &models.Usage{PromptTokens: 7, CompletionTokens: 3}}))

		final, err := acc.Finalize()
		require.NoError(t, err)
		assert.Equal(t, 7, final.Usage.PromptTokens)
		assert.Equal(t, 3, final.Usage.CompletionTokens)
	})

	t.Run("MissingUsageIsProtocolError", func(t *testing.T) {
		acc := newAccumulator(5, nil)
		require.NoError(t, acc.Add(textChunk("hello")))

		_, err := acc.Finalize()
		var streamErr *MalformedStreamError
		require.True(t, errors.As(err, &streamErr))
		assert.Contains(t, streamErr.Reason, "usage")
	})

	t.Run("DefaultFinishReasonIsStop", func(t *testing.T) {
		acc := newAccumulator(5, nil)
		require.NoError(t, acc.Add(&models.Chunk{Usage: &models.Usage{}}))

		final, err := acc.Finalize()
		require.NoError(t, err)
		assert.Equal(t, "stop", final.FinishReason)
	})
}
