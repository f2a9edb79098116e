package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/services"
)

// PlaygroundChat answers a free-form prompt with a selected tool
// (POST /api/v1/playground/chat)
func (s *Server) PlaygroundChat(c echo.Context) error {
	var req services.ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}
	switch req.Mode {
	case "":
		req.Mode = services.ModeAutomatic
	case services.ModeAutomatic, services.ModeManual:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be manual or automatic")
	}

	resp, err := s.Playground.Chat(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}
