package tools

import "github.com/chebykinn/browser-code/internal/providers"

// Result is the unified return type from tool execution.
type Result struct {
	ForLLM  string `json:"for_llm"`            // content sent to the LLM
	ForUser string `json:"for_user,omitempty"` // content shown to the user
	Silent  bool   `json:"silent"`             // suppress user message
	IsError bool   `json:"is_error"`           // marks error
	Async   bool   `json:"async"`              // running asynchronously
	Err     error  `json:"-"`                  // internal error (not serialized)

	// Image is set only by Read when the target is screenshot.png (spec
	// §4.C.3): the tool_result content becomes a [text, image] pair
	// instead of text alone.
	Image *ImageBlock `json:"-"`

	// Usage holds token usage from tools that make internal LLM calls.
	// When set, the agent loop records these on the tool span for tracing.
	Usage    *providers.Usage `json:"-"`
	Provider string           `json:"-"` // provider name (for tool span metadata)
	Model    string           `json:"-"` // model used (for tool span metadata)
}

// ImageBlock carries base64 image data for a tool_result's image block.
type ImageBlock struct {
	Base64    string
	MediaType string
}

func NewResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM}
}

func SilentResult(forLLM string) *Result {
	return &Result{ForLLM: forLLM, Silent: true}
}

func ErrorResult(message string) *Result {
	return &Result{ForLLM: message, IsError: true}
}

func UserResult(content string) *Result {
	return &Result{ForLLM: content, ForUser: content}
}

func AsyncResult(message string) *Result {
	return &Result{ForLLM: message, Async: true}
}

func ImageResult(forLLM string, img *ImageBlock) *Result {
	return &Result{ForLLM: forLLM, Image: img}
}

func (r *Result) WithError(err error) *Result {
	r.Err = err
	return r
}
