package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jyoshithareddy08/McCarthy2.0/internal/apperr"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/logging"
	"github.com/jyoshithareddy08/McCarthy2.0/internal/repository"
	"github.com/jyoshithareddy08/McCarthy2.0/pkg/models"
)

// SelectionReason names how a tool was picked.
type SelectionReason string

const (
	ReasonManual       SelectionReason = "manual"
	ReasonSimilarity   SelectionReason = "similarity"
	ReasonEmptyPrompt  SelectionReason = "fallback_empty_prompt"
	ReasonServiceError SelectionReason = "fallback_service_error"
	ReasonNoScores     SelectionReason = "fallback_no_scores"
	ReasonUnknownTool  SelectionReason = "fallback_unknown_tool"
)

// Selection describes the outcome of a tool selection.
type Selection struct {
	Reason SelectionReason `json:"reason"`
	Score  float64         `json:"score,omitempty"`
}

// ToolSelector picks the tool for a playground prompt.
type ToolSelector struct {
	tools      repository.ToolStore
	similarity SimilarityClient
	logger     *logging.Logger
}

// NewToolSelector creates a ToolSelector.
func NewToolSelector(tools repository.ToolStore, similarity SimilarityClient, logger *logging.Logger) *ToolSelector {
	return &ToolSelector{tools: tools, similarity: similarity, logger: logger}
}

// SelectManual resolves a caller-supplied tool id.
func (s *ToolSelector) SelectManual(ctx context.Context, toolID string) (*models.Tool, Selection, error) {
	if toolID == "" {
		return nil, Selection{}, apperr.Validation("toolId is required in manual mode")
	}
	tool, err := s.tools.GetTool(ctx, toolID)
	if err != nil {
		return nil, Selection{}, err
	}
	return tool, Selection{Reason: ReasonManual}, nil
}

// SelectAutomatic asks the similarity service for the best tool. Service
// trouble never fails the call: the first stored tool is used instead.
func (s *ToolSelector) SelectAutomatic(ctx context.Context, prompt string) (*models.Tool, Selection, error) {
	tools, err := s.tools.ListTools(ctx)
	if err != nil {
		return nil, Selection{}, err
	}
	if len(tools) == 0 {
		return nil, Selection{}, apperr.NotFound("No tools configured. Add tools first.")
	}
	fallback := func(reason SelectionReason) (*models.Tool, Selection, error) {
		return tools[0], Selection{Reason: reason}, nil
	}

	query := strings.TrimSpace(prompt)
	if query == "" {
		return fallback(ReasonEmptyPrompt)
	}

	items := make([]SimilarityItem, 0, len(tools))
	for _, t := range tools {
		items = append(items, SimilarityItem{ID: t.ID, Texts: t.SimilarityTexts()})
	}

	scores, err := s.similarity.Rank(ctx, query, items)
	if err != nil {
		s.logger.Warn("similarity service failed, falling back to first tool", "error", err)
		return fallback(ReasonServiceError)
	}
	if len(scores) == 0 {
		s.logger.Warn("similarity service returned no scores, falling back to first tool")
		return fallback(ReasonNoScores)
	}

	best := scores[0]
	tool, err := s.tools.GetTool(ctx, best.ID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, Selection{}, err
		}
		s.logger.Warn("similarity service chose an unknown tool, falling back", "tool_id", best.ID)
		return fallback(ReasonUnknownTool)
	}
	s.logger.Debug("tool selected by similarity", "tool_id", tool.ID, "score", best.Score, "candidates", len(items))
	return tool, Selection{Reason: ReasonSimilarity, Score: best.Score}, nil
}
