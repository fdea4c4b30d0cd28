package protocol

// HelloMsg subscribes a connection to the notices of one owner.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Owner           string `json:"owner"`
}

// StatusMsg answers HELLO with the owner's live sessions.
type StatusMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Tick            uint64          `json:"tick"`
	Owner           string          `json:"owner"`
	Sessions        []SessionStatus `json:"sessions"`
}

type SessionStatus struct {
	SessionID        string  `json:"session_id"`
	World            string  `json:"world"`
	Pattern          string  `json:"pattern"`
	Speed            string  `json:"speed"`
	Phase            string  `json:"phase"`
	Layer            int     `json:"layer"`
	LayersLeft       int     `json:"layers_left"`
	Percent          float64 `json:"percent"`
	Bins             int     `json:"bins"`
	Paused           bool    `json:"paused"`
	WaitingOnStorage bool    `json:"waiting_on_storage"`
}

// NoticeMsg is one session lifecycle change, pushed to every connection of the owner.
type NoticeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	SessionID       string `json:"session_id"`
	World           string `json:"world"`
	Kind            string `json:"kind"`
	Reason          string `json:"reason,omitempty"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
