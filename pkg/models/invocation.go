package models

// Invocation is a single request to run a tool.
type Invocation struct {
	ToolID     string   `json:"toolId"`
	Prompt     string   `json:"prompt"`
	InputText  string   `json:"inputText"`
	InputFiles []string `json:"inputFiles"`
	Model      string   `json:"model,omitempty"`
}

// Input is the normalized text and file references handed to an adapter.
type Input struct {
	Text  string
	Files []string
}

// Input returns the normalized input of the invocation.
func (i Invocation) Input() Input {
	return Input{Text: i.InputText, Files: cloneStrings(i.InputFiles)}
}

// Output is what every adapter returns. OutputFiles is never nil once
// normalized.
type Output struct {
	OutputText  string   `json:"outputText"`
	OutputFiles []string `json:"outputFiles"`
}

// Normalize returns a copy of o with a non-nil file list.
func (o Output) Normalize() Output {
	return Output{OutputText: o.OutputText, OutputFiles: cloneStrings(o.OutputFiles)}
}

// RunRequest starts a pipeline run. Owner, when set, must match the
// pipeline owner.
type RunRequest struct {
	InitialInput string   `json:"initialInput"`
	InputFiles   []string `json:"inputFiles"`
	Owner        string   `json:"-"`
}

// RunResult is the outcome of a completed pipeline run.
type RunResult struct {
	RunID       string    `json:"runId"`
	OutputText  string    `json:"outputText"`
	OutputFiles []string  `json:"outputFiles"`
	Status      RunStatus `json:"status"`
}
