package models

import (
	"errors"
	"time"
)

// ErrRunFinalized is returned when a terminal SegmentRun is asked to change.
var ErrRunFinalized = errors.New("segment run already finalized")

// Pipeline is an ordered chain of segments owned by one user.
// FinalResponse and OutputFiles are written once, after a successful run.
type Pipeline struct {
	ID            string    `json:"id" yaml:"id"`
	OwnerID       string    `json:"ownerId" yaml:"ownerId"`
	Name          string    `json:"name" yaml:"name"`
	Description   string    `json:"description,omitempty" yaml:"description"`
	FinalResponse string    `json:"finalResponse,omitempty" yaml:"-"`
	OutputFiles   []string  `json:"outputFiles" yaml:"-"`
	CreatedAt     time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt     time.Time `json:"updatedAt" yaml:"-"`
}

// InputSource selects which context a segment receives.
type InputSource string

const (
	InputSourcePrevious InputSource = "previous"
	InputSourceInitial  InputSource = "initial"
)

// Segment is one step of a pipeline.
type Segment struct {
	ID          string      `json:"id" yaml:"id"`
	PipelineID  string      `json:"pipelineId" yaml:"pipelineId"`
	Name        string      `json:"name" yaml:"name"`
	Order       int         `json:"order" yaml:"order"`
	Prompt      string      `json:"prompt" yaml:"prompt"`
	ToolID      string      `json:"toolId" yaml:"toolId"`
	Model       string      `json:"model,omitempty" yaml:"model"`
	InputSource InputSource `json:"inputSource" yaml:"inputSource"`
}

// Source returns the effective input source, previous when unset.
func (s *Segment) Source() InputSource {
	if s.InputSource == InputSourceInitial {
		return InputSourceInitial
	}
	return InputSourcePrevious
}

// RunStatus is the lifecycle state of a SegmentRun. It only moves forward:
// pending, running, then completed or failed.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// SegmentRun records what one segment received and produced during a run.
type SegmentRun struct {
	ID          string    `json:"id"`
	RunID       string    `json:"runId"`
	PipelineID  string    `json:"pipelineId"`
	SegmentID   string    `json:"segmentId"`
	Order       int       `json:"order"`
	InputText   string    `json:"inputText"`
	InputFiles  []string  `json:"inputFiles"`
	OutputText  string    `json:"outputText"`
	OutputFiles []string  `json:"outputFiles"`
	Status      RunStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Complete moves the run to completed with the given output.
func (r *SegmentRun) Complete(out Output, at time.Time) error {
	if r.Status.Terminal() {
		return ErrRunFinalized
	}
	r.Status = RunStatusCompleted
	r.OutputText = out.OutputText
	r.OutputFiles = cloneStrings(out.OutputFiles)
	r.UpdatedAt = at
	return nil
}

// Fail moves the run to failed with the given reason.
func (r *SegmentRun) Fail(reason string, at time.Time) error {
	if r.Status.Terminal() {
		return ErrRunFinalized
	}
	r.Status = RunStatusFailed
	r.Error = reason
	r.UpdatedAt = at
	return nil
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
