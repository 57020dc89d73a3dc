package events

// ChatMessage is one turn in the conversation history carried by LLM
// request payloads.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage is the payload for before/after:user:message:receive.
type UserMessage struct {
	Message string `json:"message"`
}

// LLMRequest is the payload for before/after:llm:request.
type LLMRequest struct {
	Messages []ChatMessage `json:"messages"`
	Provider string        `json:"provider,omitempty"`
}

// LLMChunk is the payload for on:llm:chunk.
type LLMChunk struct {
	Chunk string `json:"chunk"`
	Index int    `json:"index"`
}

// LLMComplete is the payload for on:llm:complete.
type LLMComplete struct {
	Response string `json:"response"`
}

// TTSGenerate is the payload for before/after:tts:generate.
type TTSGenerate struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// Speak is the payload for before:speak:start and after:speak:end.
type Speak struct {
	Text       string `json:"text"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// STTTranscribe is the payload for before/after:stt:transcribe.
type STTTranscribe struct {
	AudioBytes int    `json:"audio_bytes,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

// VisionCapture is the payload for before/after:vision:capture.
type VisionCapture struct {
	ImageData string `json:"image_data,omitempty"`
	Source    string `json:"source,omitempty"`
}

// VisionResponse is the payload for before/after:vision:response.
type VisionResponse struct {
	Description string `json:"description"`
}

// Animation is the payload for on:animation:play and on:animation:stop.
type Animation struct {
	Name string `json:"name"`
	Loop bool   `json:"loop,omitempty"`
}

// Expression is the payload for on:expression:change.
type Expression struct {
	Expression string  `json:"expression"`
	Weight     float64 `json:"weight"`
}

// ModelLoad is the payload for on:model:load.
type ModelLoad struct {
	ModelURL string `json:"model_url"`
}

// RoomLoad is the payload for on:room:load.
type RoomLoad struct {
	RoomURL string `json:"room_url"`
}

// Scenario is the payload for scenario:load and scenario:update.
type Scenario struct {
	Name  string         `json:"name"`
	State map[string]any `json:"state,omitempty"`
}

func (UserMessage) payload()    {}
func (LLMRequest) payload()     {}
func (LLMChunk) payload()       {}
func (LLMComplete) payload()    {}
func (TTSGenerate) payload()    {}
func (Speak) payload()          {}
func (STTTranscribe) payload()  {}
func (VisionCapture) payload()  {}
func (VisionResponse) payload() {}
func (Animation) payload()      {}
func (Expression) payload()     {}
func (ModelLoad) payload()      {}
func (RoomLoad) payload()       {}
func (Scenario) payload()       {}
