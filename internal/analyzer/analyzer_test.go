package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartlink/internal/config"
	"smartlink/internal/domain"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// stubCompleter returns a canned answer and records the last request.
type stubCompleter struct {
	content string
	err     error
	last    CompletionRequest
}

func (s *stubCompleter) Complete(_ context.Context, req CompletionRequest) (*Completion, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &Completion{Content: s.content, PromptTokens: 10, CompletionTokens: 5}, nil
}

func TestAnalyzer_RequestShape(t *testing.T) {
	stub := &stubCompleter{content: `{"title":"t","summary":"s","keywords":["기술"],"categorySuggestion":"기술"}`}
	a := New(stub, "", testLogger())

	page := &domain.PageData{
		URL:          "https://example.com/post",
		Title:        "Meta Title",
		Description:  "Meta Description",
		SiteName:     "Example",
		MetaKeywords: []string{"go", "rust"},
		Content:      strings.Repeat("가", 4000),
	}

	_, err := a.AnalyzePage(context.Background(), page.URL, page)
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, stub.last.Model)
	assert.Equal(t, MaxCompletionTokens, stub.last.MaxTokens)
	require.Len(t, stub.last.Messages, 2)
	assert.Equal(t, RoleSystem, stub.last.Messages[0].Role)
	for _, c := range domain.AllowedCategories {
		assert.Contains(t, stub.last.Messages[0].Content, c)
	}

	user := stub.last.Messages[1].Content
	assert.Contains(t, user, "https://example.com/post")
	assert.Contains(t, user, "Meta Title")
	assert.Contains(t, user, "Meta Description")
	assert.Contains(t, user, "Example")
	assert.Contains(t, user, "go, rust")
	assert.NotContains(t, user, "영상 정보", "video section omitted when absent")
	assert.Contains(t, user, strings.Repeat("가", promptContentLength))
	assert.NotContains(t, user, strings.Repeat("가", promptContentLength+1))
}

func TestAnalyzer_VideoPageIsAlwaysVideo(t *testing.T) {
	stub := &stubCompleter{content: `{"title":"t","summary":"s","keywords":["음악"],"categorySuggestion":"음악","contentType":"article"}`}
	a := New(stub, "", testLogger())

	page := &domain.PageData{
		URL:   "https://youtu.be/abc12345678",
		Title: "Live Session",
		Video: &domain.VideoInfo{Title: "Live Session", Channel: "Band"},
	}

	got, err := a.AnalyzePage(context.Background(), page.URL, page)
	require.NoError(t, err)
	assert.Equal(t, domain.ContentTypeVideo, got.ContentType)
	assert.Contains(t, stub.last.Messages[1].Content, "채널명: Band")
}

func TestAnalyzer_URLOnlyPageStillProducesTitleAndCategory(t *testing.T) {
	stub := &stubCompleter{content: `{"summary":"","keywords":[],"categorySuggestion":"없는카테고리"}`}
	a := New(stub, "", testLogger())

	page := &domain.PageData{URL: "https://example.com/only-url"}
	got, err := a.AnalyzePage(context.Background(), page.URL, page)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/only-url", got.Title)
	assert.True(t, domain.IsAllowedCategory(got.CategorySuggestion))
}

func TestAnalyzer_RawContentAndURLOnlyVariants(t *testing.T) {
	stub := &stubCompleter{content: `{"title":"t","summary":"s","keywords":[],"categorySuggestion":"문서"}`}
	a := New(stub, "custom-model", testLogger())

	_, err := a.AnalyzeContent(context.Background(), "https://example.com", strings.Repeat("a", 5000))
	require.NoError(t, err)
	assert.Equal(t, "custom-model", stub.last.Model)
	assert.Contains(t, stub.last.Messages[1].Content, strings.Repeat("a", rawContentLength))
	assert.NotContains(t, stub.last.Messages[1].Content, strings.Repeat("a", rawContentLength+1))

	_, err = a.AnalyzePage(context.Background(), "https://example.com/nil", nil)
	require.NoError(t, err)
	assert.Contains(t, stub.last.Messages[1].Content, "URL: https://example.com/nil")
}

func TestAnalyzer_UpstreamErrorIsTyped(t *testing.T) {
	boom := errors.New("connection reset")
	a := New(&stubCompleter{err: boom}, "", testLogger())

	_, err := a.AnalyzeURL(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.True(t, IsKind(err, UpstreamError))
	assert.ErrorIs(t, err, boom, "the upstream cause stays reachable")
}

func TestAnalyzer_MissingKeyIsConfigurationError(t *testing.T) {
	a := New(NewOpenAICompleter("", "", nil), "", testLogger())

	_, err := a.AnalyzeURL(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.NotErrorIs(t, err, ErrAnalysisFailed)
}

func TestAnalyzer_UnusableOutputIsTyped(t *testing.T) {
	a := New(&stubCompleter{content: "no json here"}, "", testLogger())

	_, err := a.AnalyzeURL(context.Background(), "https://example.com")
	assert.True(t, IsKind(err, NoJSONFound))
}

func TestOpenAICompleter_WireFormat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		content := "```json\n" + `{"title":"Hi","summary":"s","keywords":["뉴스"],"categorySuggestion":"뉴스"}` + "\n```"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
		})
	}))
	defer srv.Close()

	a := New(NewOpenAICompleter("sk-test", srv.URL, srv.Client()), "", testLogger())
	got, err := a.AnalyzeURL(context.Background(), "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, "Hi", got.Title)
	assert.Equal(t, "뉴스", got.CategorySuggestion)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.EqualValues(t, MaxCompletionTokens, body["max_completion_tokens"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAICompleter_HTTPErrorIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	a := New(NewOpenAICompleter("sk-wrong", srv.URL, srv.Client()), "", testLogger())
	_, err := a.AnalyzeURL(context.Background(), "https://example.com")
	assert.True(t, IsKind(err, UpstreamError))
}
