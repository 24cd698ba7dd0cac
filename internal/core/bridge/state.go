package bridge

type State int

const (
	Idle State = iota
	// ResponsePending holds between the bridge writing a response into the
	// registers and the notification that write causes.
	ResponsePending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ResponsePending:
		return "response_pending"
	}
	return "unknown"
}

type ResponseMode int

const (
	// RESPONSE_VALUE writes only the encoded value into the response window.
	RESPONSE_VALUE ResponseMode = iota
	// RESPONSE_FRAME writes "vNNNNN=VALUE", as the physical device does.
	RESPONSE_FRAME
)

func ParseResponseMode(s string) (ResponseMode, bool) {
	switch s {
	case "", "value":
		return RESPONSE_VALUE, true
	case "frame":
		return RESPONSE_FRAME, true
	}
	return RESPONSE_VALUE, false
}

func (m ResponseMode) String() string {
	if m == RESPONSE_FRAME {
		return "frame"
	}
	return "value"
}
