package realtime

import "aurora-assistant/internal/tools"

// Client -> server events.

type sessionUpdateEvent struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Model            string           `json:"model"`
	Type             string           `json:"type"`
	Audio            audioConfig      `json:"audio"`
	Instructions     string           `json:"instructions"`
	OutputModalities []string         `json:"output_modalities"`
	Tools            []tools.Manifest `json:"tools"`
	ToolChoice       string           `json:"tool_choice"`
}

type audioConfig struct {
	Input  audioInputConfig  `json:"input"`
	Output audioOutputConfig `json:"output"`
}

type audioInputConfig struct {
	Format         audioFormat    `json:"format"`
	NoiseReduction noiseReduction `json:"noise_reduction"`
	TurnDetection  turnDetection  `json:"turn_detection"`
}

type audioOutputConfig struct {
	Format audioFormat `json:"format"`
	Speed  int         `json:"speed"`
	Voice  string      `json:"voice"`
}

type audioFormat struct {
	Type string `json:"type"`
	Rate int    `json:"rate"`
}

type noiseReduction struct {
	Type string `json:"type"`
}

type turnDetection struct {
	CreateResponse    bool   `json:"create_response"`
	InterruptResponse bool   `json:"interrupt_response"`
	Eagerness         string `json:"eagerness"`
	Type              string `json:"type"`
}

type audioAppendEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"` // base64 PCM
}

type itemCreateEvent struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

type conversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []itemContent `json:"content,omitempty"`
	Output  string        `json:"output,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
}

type itemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseCreateEvent struct {
	Type string `json:"type"`
}

func userTextItem(text string) itemCreateEvent {
	return itemCreateEvent{
		Type: "conversation.item.create",
		Item: conversationItem{
			Type:    "message",
			Role:    "user",
			Content: []itemContent{{Type: "input_text", Text: text}},
		},
	}
}

func functionCallOutputItem(callID, output string) itemCreateEvent {
	return itemCreateEvent{
		Type: "conversation.item.create",
		Item: conversationItem{
			Type:   "function_call_output",
			Output: output,
			CallID: callID,
		},
	}
}

// Server -> client events. One struct covers every event the session reacts
// to; unknown types are ignored.

type serverEvent struct {
	Type  string       `json:"type"`
	Error *serverError `json:"error,omitempty"`

	// response.output_audio.delta
	Delta string `json:"delta,omitempty"`

	// response.function_call_arguments.done
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

type serverError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
