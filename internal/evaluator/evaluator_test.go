package evaluator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperFeed/internal/domain"
	"PaperFeed/internal/ports"
)

type scriptedChat struct {
	replies []string
	err     error
	calls   []ports.ChatRequest
}

func (s *scriptedChat) Complete(_ context.Context, req ports.ChatRequest) (string, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

func (s *scriptedChat) lastPrompt() string {
	last := s.calls[len(s.calls)-1]
	return last.Messages[len(last.Messages)-1].Content
}

func testPaper() domain.Paper {
	return domain.Paper{ExternalID: "2401.00001", Title: "Sparse Attention", Abstract: "We study sparse attention.", Categories: []string{"cs.LG", "stat.ML"}}
}

func TestScoreParsesFencedReply(t *testing.T) {
	chat := &scriptedChat{replies: []string{"Sure!\n```json\n{\"is_recommended\": true, \"reason\": \"matches attention interests\"}\n```"}}
	ev := New(chat, Config{}, nil)

	verdict, err := ev.Score(context.Background(), testPaper(), "efficient transformers", "likes sparsity")
	require.NoError(t, err)
	assert.True(t, verdict.Recommended)
	assert.Equal(t, "matches attention interests", verdict.Reason)

	prompt := chat.lastPrompt()
	assert.Contains(t, prompt, "efficient transformers")
	assert.Contains(t, prompt, "likes sparsity")
	assert.Contains(t, prompt, "Sparse Attention")
	assert.Contains(t, prompt, "Paper categories: cs.LG, stat.ML")
	assert.Equal(t, 500, chat.calls[0].MaxTokens)
	assert.InDelta(t, 0.7, chat.calls[0].Temperature, 1e-6)
}

func TestScoreAcceptsStringBoolean(t *testing.T) {
	chat := &scriptedChat{replies: []string{`{"is_recommended": "false", "reason": "off topic"}`}}
	verdict, err := New(chat, Config{}, nil).Score(context.Background(), testPaper(), "robotics", "")
	require.NoError(t, err)
	assert.False(t, verdict.Recommended)
	assert.Equal(t, "off topic", verdict.Reason)
	assert.NotContains(t, chat.lastPrompt(), "favorited")
}

func TestScoreMalformedReplyIsNegativeVerdict(t *testing.T) {
	chat := &scriptedChat{replies: []string{"I think so, yes."}}
	verdict, err := New(chat, Config{}, nil).Score(context.Background(), testPaper(), "robotics", "")
	require.NoError(t, err)
	assert.False(t, verdict.Recommended)
	assert.Equal(t, FailedReason, verdict.Reason)
}

func TestScoreClipsReason(t *testing.T) {
	long := strings.Repeat("é", 80)
	chat := &scriptedChat{replies: []string{`{"is_recommended": true, "reason": "` + long + `"}`}}
	verdict, err := New(chat, Config{}, nil).Score(context.Background(), testPaper(), "x", "")
	require.NoError(t, err)
	assert.Len(t, []rune(verdict.Reason), 50)
}

func TestScorePropagatesTransportError(t *testing.T) {
	chat := &scriptedChat{err: domain.ErrUpstream}
	_, err := New(chat, Config{}, nil).Score(context.Background(), testPaper(), "x", "")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestTranslate(t *testing.T) {
	chat := &scriptedChat{replies: []string{`{"translated_title": " 稀疏注意力 ", "translated_abstract": "我们研究稀疏注意力。"}`}}
	ev := New(chat, Config{TargetLanguage: "Chinese"}, nil)

	tr, err := ev.Translate(context.Background(), "Sparse Attention", "We study sparse attention.")
	require.NoError(t, err)
	assert.Equal(t, "稀疏注意力", tr.Title)
	assert.Equal(t, "我们研究稀疏注意力。", tr.Abstract)
	assert.Equal(t, 1000, chat.calls[0].MaxTokens)
	assert.Contains(t, chat.lastPrompt(), "into Chinese")
}

func TestTranslateMalformedReplyIsEmpty(t *testing.T) {
	chat := &scriptedChat{replies: []string{"not json"}}
	tr, err := New(chat, Config{}, nil).Translate(context.Background(), "t", "a")
	require.NoError(t, err)
	assert.Empty(t, tr.Title)
	assert.Empty(t, tr.Abstract)
}

func TestRefineInterests(t *testing.T) {
	chat := &scriptedChat{replies: []string{"Refined profile."}}
	ev := New(chat, Config{}, nil)

	refined, err := ev.RefineInterests(context.Background(), "  llms and agents ")
	require.NoError(t, err)
	assert.Equal(t, "Refined profile.", refined)
	assert.Contains(t, chat.lastPrompt(), "llms and agents")

	_, err = ev.RefineInterests(context.Background(), "   ")
	assert.Error(t, err)
}

func TestSummarizeFavoritesPrompts(t *testing.T) {
	chat := &scriptedChat{replies: []string{"first summary", "second summary"}}
	ev := New(chat, Config{}, nil)

	long := testPaper()
	long.Abstract = strings.Repeat("a", 300)

	summary, err := ev.SummarizeFavorites(context.Background(), []domain.Paper{long}, "")
	require.NoError(t, err)
	assert.Equal(t, "first summary", summary)
	assert.NotContains(t, chat.lastPrompt(), "Current summary")
	assert.Contains(t, chat.lastPrompt(), strings.Repeat("a", 200)+"...")
	assert.NotContains(t, chat.lastPrompt(), strings.Repeat("a", 201))

	summary, err = ev.SummarizeFavorites(context.Background(), []domain.Paper{testPaper()}, "first summary")
	require.NoError(t, err)
	assert.Equal(t, "second summary", summary)
	assert.Contains(t, chat.lastPrompt(), "Current summary of the reader's favorite papers:\nfirst summary")
	assert.Contains(t, chat.lastPrompt(), "Preserve the themes already established.")
	assert.Contains(t, chat.lastPrompt(), "Extend them only if the new papers show a genuinely new research direction.")
	assert.NotContains(t, chat.lastPrompt(), "also covers them")
}

func TestSummarizeFavoritesEmptyBatchKeepsPrior(t *testing.T) {
	chat := &scriptedChat{}
	summary, err := New(chat, Config{}, nil).SummarizeFavorites(context.Background(), nil, "prior")
	require.NoError(t, err)
	assert.Equal(t, "prior", summary)
	assert.Empty(t, chat.calls)
}

func TestTestConnection(t *testing.T) {
	ok := &scriptedChat{replies: []string{"hi"}}
	assert.True(t, New(ok, Config{}, nil).TestConnection(context.Background()))
	assert.Equal(t, 10, ok.calls[0].MaxTokens)

	failing := &scriptedChat{err: domain.ErrUnconfigured}
	assert.False(t, New(failing, Config{}, nil).TestConnection(context.Background()))
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		A int `json:"a"`
	}
	require.NoError(t, decodeJSON("noise {\"a\": 3} trailing", &v))
	assert.Equal(t, 3, v.A)

	assert.ErrorIs(t, decodeJSON("no braces", &v), domain.ErrParse)
	assert.ErrorIs(t, decodeJSON("{broken", &v), domain.ErrParse)
	assert.ErrorIs(t, decodeJSON(`{"a": "x"}`, &v), domain.ErrParse)
}
