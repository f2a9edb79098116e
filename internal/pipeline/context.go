package pipeline

import "github.com/jyoshithareddy08/McCarthy2.0/pkg/models"

// InvocationContext is the text and file list threaded from one segment to
// the next. It is a value: Next returns a new context and the accessors copy.
type InvocationContext struct {
	text  string
	files []string
}

// NewContext creates a context holding text and a copy of files.
func NewContext(text string, files []string) InvocationContext {
	return InvocationContext{text: text, files: copyFiles(files)}
}

// Text returns the context text.
func (c InvocationContext) Text() string { return c.text }

// Files returns a copy of the context file list. It is never nil.
func (c InvocationContext) Files() []string { return copyFiles(c.files) }

// Next returns the context produced by a segment's output.
func (c InvocationContext) Next(out models.Output) InvocationContext {
	return NewContext(out.OutputText, out.OutputFiles)
}

func copyFiles(files []string) []string {
	out := make([]string, len(files))
	copy(out, files)
	return out
}
