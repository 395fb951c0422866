package server

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
)

// TranscribeResponse is the transcription endpoint reply.
type TranscribeResponse struct {
	Text string `json:"text"`
}

// transcribe accepts a multipart audio upload, writes it to a temp file and
// returns the transcription. The temp file is removed afterwards.
func (s *Server) transcribe(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing audio file").SetInternal(err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable audio file").SetInternal(err)
	}
	defer src.Close()

	suffix := filepath.Ext(fileHeader.Filename)
	if suffix == "" {
		suffix = ".webm"
	}
	tmp, err := os.CreateTemp("", "booksage-audio-*"+suffix)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to buffer audio").SetInternal(err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			slog.Warn("server: failed to remove temp audio", "path", tmpPath, "error", err)
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to buffer audio").SetInternal(err)
	}
	if err := tmp.Close(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to buffer audio").SetInternal(err)
	}

	text, err := s.transcriber.Transcribe(c.Request().Context(), tmpPath)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "transcription failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, TranscribeResponse{Text: text})
}
