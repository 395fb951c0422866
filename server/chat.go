package server

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/booksage/booksage/ai/protocol"
	"github.com/booksage/booksage/ai/speech"
)

const sessionCookieName = "sid"

// ChatRequest is the chat endpoint payload.
type ChatRequest struct {
	Question  string `json:"question"`
	WithAudio bool   `json:"with_audio"`
}

// ChatResponse is the chat endpoint reply.
type ChatResponse struct {
	Text     string `json:"text"`
	AudioURL string `json:"audio_url,omitempty"`
}

// chat handles one conversational exchange. The session token is an opaque
// httponly cookie established on first contact; it only keys memory.
func (s *Server) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}

	sessionID := s.sessionID(c)

	resp, err := s.orchestrator.Chat(c.Request().Context(), sessionID, req.Question)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "chat failed").SetInternal(err)
	}

	out := ChatResponse{Text: resp.Text}

	// Synthesis runs only for opted-in recommendation replies.
	if req.WithAudio && !resp.Blocked && protocol.IsRecommendation(resp.Text) {
		title := resp.RecommendedTitle
		if title == "" {
			title = "recommendation"
		}
		filename := speech.SafeFilename(title) + ".mp3"
		outPath := filepath.Join(s.profile.AudioDir(), filename)
		written, err := s.synthesizer.SynthesizeToFile(c.Request().Context(), resp.Text, outPath)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "speech synthesis failed").SetInternal(err)
		}
		out.AudioURL = "/static/audio/" + filepath.Base(written)
	}

	return c.JSON(http.StatusOK, out)
}

// sessionID returns the request's session token, minting a cookie when the
// client has none yet.
func (s *Server) sessionID(c echo.Context) string {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token := newSessionToken()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})
	slog.Debug("server: new session", "session_id", token)
	return token
}

func newSessionToken() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(buf)
}
