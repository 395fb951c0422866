package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksage/booksage/ai/llm"
	"github.com/booksage/booksage/ai/memory"
	"github.com/booksage/booksage/ai/orchestrator"
	"github.com/booksage/booksage/ai/retrieval"
	"github.com/booksage/booksage/ai/safety"
	"github.com/booksage/booksage/ai/tools"
	"github.com/booksage/booksage/internal/profile"
	"github.com/booksage/booksage/store"
)

// ---- stubs ----

type scriptedLLM struct {
	script    []*llm.ChatResponse
	chatReply string
}

func (s *scriptedLLM) ChatWithTools(context.Context, []llm.Message, []llm.ToolDescriptor, string) (*llm.ChatResponse, error) {
	if len(s.script) == 0 {
		return &llm.ChatResponse{}, nil
	}
	resp := s.script[0]
	s.script = s.script[1:]
	return resp, nil
}

func (s *scriptedLLM) Chat(context.Context, []llm.Message) (string, error) {
	return s.chatReply, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func (stubEmbedder) Dimensions() int { return 3 }

type stubIndex struct {
	hits    []*store.SearchHit
	entries map[string]*store.BookEmbedding
}

func (s *stubIndex) Migrate(context.Context) error                      { return nil }
func (s *stubIndex) Upsert(context.Context, *store.BookEmbedding) error { return nil }
func (s *stubIndex) Close() error                                       { return nil }

func (s *stubIndex) Search(context.Context, []float32, int) ([]*store.SearchHit, error) {
	return s.hits, nil
}

func (s *stubIndex) GetByTitle(_ context.Context, title string) (*store.BookEmbedding, error) {
	return s.entries[title], nil
}

type fakeTranscriber struct{ text string }

func (f *fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	return f.text, nil
}

func (f *fakeTranscriber) TranscribeBytes(context.Context, []byte, string) (string, error) {
	return f.text, nil
}

type fakeSynthesizer struct{ lastPath string }

func (f *fakeSynthesizer) SynthesizeToFile(_ context.Context, _ string, outPath string) (string, error) {
	f.lastPath = outPath
	return outPath, nil
}

func newTestServer(t *testing.T, model llm.Service, index *stubIndex) (*Server, *fakeSynthesizer) {
	t.Helper()

	p := &profile.Profile{
		Mode:           "dev",
		Port:           0,
		StaticDir:      t.TempDir(),
		FrontendOrigin: "http://localhost:5500",
		SafetyReply:    "safe reply",
	}

	summaryTool, err := tools.NewBookSummaryTool(index, func() (*store.Corpus, error) {
		return store.NewCorpus(nil), nil
	})
	require.NoError(t, err)

	orch, err := orchestrator.New(
		model,
		retrieval.NewRetriever(stubEmbedder{}, index),
		tools.NewRegistry(summaryTool),
		safety.NewScreener(safety.Config{Enabled: true}),
		memory.NewSessionStore(),
		nil,
		orchestrator.Config{SafeReply: p.SafetyReply, RetrieveK: 5},
	)
	require.NoError(t, err)

	synth := &fakeSynthesizer{}
	return NewServer(p, orch, &fakeTranscriber{text: "hello there"}, synth, nil), synth
}

func postChat(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, &scriptedLLM{}, &stubIndex{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
}

func TestChat_SetsSessionCookie(t *testing.T) {
	model := &scriptedLLM{script: []*llm.ChatResponse{{Content: "Sorry, I cannot help with that because it is not in the database."}}}
	s, _ := newTestServer(t, model, &stubIndex{})

	rec := postChat(t, s, `{"question": "anything"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	var sid *http.Cookie
	for _, c := range cookies {
		if c.Name == sessionCookieName {
			sid = c
		}
	}
	require.NotNil(t, sid)
	assert.Len(t, sid.Value, 24)
	assert.True(t, sid.HttpOnly)
}

func TestChat_BlockedInputReturnsSafeReply(t *testing.T) {
	s, synth := newTestServer(t, &scriptedLLM{}, &stubIndex{})

	rec := postChat(t, s, `{"question": "fuck you", "with_audio": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "safe reply", resp.Text)
	assert.Empty(t, resp.AudioURL)
	assert.Empty(t, synth.lastPath, "blocked replies must never reach synthesis")
}

func TestChat_RecommendationWithAudio(t *testing.T) {
	index := &stubIndex{
		hits: []*store.SearchHit{
			{Title: "The Hobbit", Summary: "A hobbit goes on an adventure.", Distance: 0.1},
		},
		entries: map[string]*store.BookEmbedding{
			"The Hobbit": {Title: "The Hobbit", FullSummary: "Bilbo's full story."},
		},
	}
	model := &scriptedLLM{
		script: []*llm.ChatResponse{{ToolCalls: []llm.ToolCall{{
			ID:       "call-1",
			Type:     "function",
			Function: llm.FunctionCall{Name: tools.BookSummaryToolName, Arguments: `{"title": "The Hobbit"}`},
		}}}},
		chatReply: "Recommendation: The Hobbit\nDetailed summary:\nBilbo's full story.",
	}
	s, synth := newTestServer(t, model, index)

	rec := postChat(t, s, `{"question": "something with dragons", "with_audio": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Text, "Recommendation: The Hobbit"))
	assert.Equal(t, "/static/audio/The_Hobbit.mp3", resp.AudioURL)
	assert.True(t, strings.HasSuffix(synth.lastPath, "The_Hobbit.mp3"))
}

func TestChat_NoAudioWhenNotRequested(t *testing.T) {
	model := &scriptedLLM{script: []*llm.ChatResponse{{Content: "Sorry, I cannot help with that because it is not in the database."}}}
	s, synth := newTestServer(t, model, &stubIndex{})

	rec := postChat(t, s, `{"question": "obscure request"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.AudioURL)
	assert.Empty(t, synth.lastPath)
}

func TestTranscribe(t *testing.T) {
	s, _ := newTestServer(t, &scriptedLLM{}, &stubIndex{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "clip.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake audio bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &body)
	req.Header.Set(echoHeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp TranscribeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello there", resp.Text)
}
