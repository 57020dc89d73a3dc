// Package events defines the catalog of avatar pipeline checkpoints.
//
// Every stage of the perception-to-action pipeline (speech input, LLM
// request/stream, speech synthesis, animation, vision) is identified by a
// Name. The catalog is closed: the set of names and the payload shape bound
// to each name are fixed at compile time.
//
// # Naming Convention
//
// Names follow the pattern "timing:subsystem:action" for interceptable
// checkpoints and "on:subsystem:action" for observation-only checkpoints:
//
//	before:llm:request      // about to send a request to the LLM provider
//	on:llm:chunk            // a streamed chunk arrived
//	scenario:update         // scenario state changed
package events

import (
	"encoding/json"
	"fmt"
)

// Name identifies a single pipeline checkpoint.
type Name string

const (
	// User message lifecycle
	BeforeUserMessageReceive Name = "before:user:message:receive"
	AfterUserMessageReceive  Name = "after:user:message:receive"

	// LLM request lifecycle
	BeforeLLMRequest Name = "before:llm:request"
	AfterLLMRequest  Name = "after:llm:request"
	OnLLMChunk       Name = "on:llm:chunk"
	OnLLMComplete    Name = "on:llm:complete"

	// Speech synthesis
	BeforeTTSGenerate Name = "before:tts:generate"
	AfterTTSGenerate  Name = "after:tts:generate"
	BeforeSpeakStart  Name = "before:speak:start"
	AfterSpeakEnd     Name = "after:speak:end"

	// Speech recognition
	BeforeSTTTranscribe Name = "before:stt:transcribe"
	AfterSTTTranscribe  Name = "after:stt:transcribe"

	// Vision
	BeforeVisionCapture  Name = "before:vision:capture"
	AfterVisionCapture   Name = "after:vision:capture"
	BeforeVisionResponse Name = "before:vision:response"
	AfterVisionResponse  Name = "after:vision:response"

	// Avatar state
	OnAnimationPlay    Name = "on:animation:play"
	OnAnimationStop    Name = "on:animation:stop"
	OnExpressionChange Name = "on:expression:change"
	OnModelLoad        Name = "on:model:load"
	OnRoomLoad         Name = "on:room:load"

	// Scenario
	ScenarioLoad   Name = "scenario:load"
	ScenarioUpdate Name = "scenario:update"
)

// Payload is implemented by every checkpoint payload type. The concrete type
// a trigger must carry is fixed per Name; see the decoder table below.
type Payload interface {
	payload()
}

type decoder func(json.RawMessage) (Payload, error)

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var p T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// decoders is the total Name -> payload shape mapping. Adding a Name without
// an entry here is a bug; TestCatalogTotal enforces the invariant.
var decoders = map[Name]decoder{
	BeforeUserMessageReceive: decodeAs[UserMessage],
	AfterUserMessageReceive:  decodeAs[UserMessage],
	BeforeLLMRequest:         decodeAs[LLMRequest],
	AfterLLMRequest:          decodeAs[LLMRequest],
	OnLLMChunk:               decodeAs[LLMChunk],
	OnLLMComplete:            decodeAs[LLMComplete],
	BeforeTTSGenerate:        decodeAs[TTSGenerate],
	AfterTTSGenerate:         decodeAs[TTSGenerate],
	BeforeSpeakStart:         decodeAs[Speak],
	AfterSpeakEnd:            decodeAs[Speak],
	BeforeSTTTranscribe:      decodeAs[STTTranscribe],
	AfterSTTTranscribe:       decodeAs[STTTranscribe],
	BeforeVisionCapture:      decodeAs[VisionCapture],
	AfterVisionCapture:       decodeAs[VisionCapture],
	BeforeVisionResponse:     decodeAs[VisionResponse],
	AfterVisionResponse:      decodeAs[VisionResponse],
	OnAnimationPlay:          decodeAs[Animation],
	OnAnimationStop:          decodeAs[Animation],
	OnExpressionChange:       decodeAs[Expression],
	OnModelLoad:              decodeAs[ModelLoad],
	OnRoomLoad:               decodeAs[RoomLoad],
	ScenarioLoad:             decodeAs[Scenario],
	ScenarioUpdate:           decodeAs[Scenario],
}

// names preserves catalog declaration order for All.
var names = []Name{
	BeforeUserMessageReceive,
	AfterUserMessageReceive,
	BeforeLLMRequest,
	AfterLLMRequest,
	OnLLMChunk,
	OnLLMComplete,
	BeforeTTSGenerate,
	AfterTTSGenerate,
	BeforeSpeakStart,
	AfterSpeakEnd,
	BeforeSTTTranscribe,
	AfterSTTTranscribe,
	BeforeVisionCapture,
	AfterVisionCapture,
	BeforeVisionResponse,
	AfterVisionResponse,
	OnAnimationPlay,
	OnAnimationStop,
	OnExpressionChange,
	OnModelLoad,
	OnRoomLoad,
	ScenarioLoad,
	ScenarioUpdate,
}

// All returns every catalog name in declaration order.
func All() []Name {
	out := make([]Name, len(names))
	copy(out, names)
	return out
}

// Valid reports whether name is part of the catalog.
func Valid(name Name) bool {
	_, ok := decoders[name]
	return ok
}

// Decode unmarshals raw JSON into the payload type bound to name. An empty
// raw message yields the zero payload for that name.
func Decode(name Name, raw json.RawMessage) (Payload, error) {
	dec, ok := decoders[name]
	if !ok {
		return nil, fmt.Errorf("unknown event %q", name)
	}
	p, err := dec(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding payload for %q: %w", name, err)
	}
	return p, nil
}
