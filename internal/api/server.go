// Package api serves speech-token generation over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/murmur/internal/store"
	"github.com/samcharles93/murmur/internal/version"
	"github.com/samcharles93/murmur/internal/webui"
)

type Server struct {
	service *SpeechService
}

func NewServer(service *SpeechService) *Server {
	return &Server{service: service}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.handleIndex)
	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/speech/tokens", s.handleCreateGeneration)
	e.GET("/v1/speech/tokens", s.handleListGenerations)
	e.GET("/v1/speech/tokens/:id", s.handleGetGeneration)
	e.DELETE("/v1/speech/tokens/:id", s.handleDeleteGeneration)
	e.POST("/v1/speech/prompt", s.handlePrompt)
}

func (s *Server) handleIndex(c *echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMETextHTMLCharsetUTF8, webui.Index())
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": version.String(),
	})
}

func (s *Server) handleCreateGeneration(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "speech service not configured")
	}
	req, err := decodeJSON[SpeechRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	var writer *SSEStreamWriter
	var streamWriter StreamWriter
	if req.Stream != nil && *req.Stream {
		w, err := NewSSEStreamWriter(c)
		if err != nil {
			return writeBadRequest(c, err.Error())
		}
		writer = w
		streamWriter = w
	}

	rec, err := s.service.Create(c.Request().Context(), &req, streamWriter)
	if err != nil {
		if writer != nil && writer.Started() {
			return nil
		}
		return writeServiceError(c, err)
	}
	if writer != nil {
		return nil
	}
	return c.JSON(http.StatusOK, toGeneration(*rec))
}

func (s *Server) handleGetGeneration(c *echo.Context) error {
	rec, err := s.service.Store().Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return writeNotFound(c, "generation not found")
	}
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toGeneration(rec))
}

func (s *Server) handleDeleteGeneration(c *echo.Context) error {
	id := c.Param("id")
	err := s.service.Store().Delete(c.Request().Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return writeNotFound(c, "generation not found")
	}
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, DeleteGenerationResp{
		ID:      id,
		Object:  objectGeneration,
		Deleted: true,
	})
}

func (s *Server) handleListGenerations(c *echo.Context) error {
	recs, err := s.service.Store().List(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	out := GenerationList{Object: "list", Data: make([]Generation, 0, len(recs))}
	for _, rec := range recs {
		out.Data = append(out.Data, toGeneration(rec))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handlePrompt(c *echo.Context) error {
	req, err := decodeJSON[SpeechRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	ids, err := s.service.Prompt(c.Request().Context(), req.Input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, PromptResponse{Object: objectPrompt, Tokens: ids, Count: len(ids)})
}
