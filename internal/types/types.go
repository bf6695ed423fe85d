package types

// Event types understood by the dispatcher.
const (
	EventPress      = "press"
	EventKeyDown    = "keydown"
	EventKeyUp      = "keyup"
	EventTap        = "tap"
	EventType       = "type"
	EventPaste      = "paste"
	EventShiftEnter = "shift_enter"
	EventTag        = "tag"
)

// Event represents incoming control messages from the client
type Event struct {
	Type          string      `json:"type"`
	Key           string      `json:"key,omitempty"`
	KeyCode       int         `json:"keyCode,omitempty"`
	Modifiers     []string    `json:"modifiers,omitempty"`
	Text          string      `json:"text,omitempty"`
	ClipboardText string      `json:"clipboardText,omitempty"`
	Tag           string      `json:"tag,omitempty"`
	Attributes    []Attribute `json:"attributes,omitempty"`
}

// Attribute is one key/value pair of a tag event. An empty value is a
// boolean attribute.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Reply is the outbound acknowledgement for one Event
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
