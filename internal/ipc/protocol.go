package ipc

// Request is one control command sent to the running quiz session.
// Text carries a typed answer, Index/Text carry per-field edits, and
// Rating carries the star value for review questions.
type Request struct {
	Command string   `json:"command"`
	Text    string   `json:"text,omitempty"`
	Fields  []string `json:"fields,omitempty"`
	Index   int      `json:"index,omitempty"`
	Rating  int      `json:"rating,omitempty"`
}

type Response struct {
	OK       bool   `json:"ok"`
	State    string `json:"state,omitempty"`
	Question string `json:"question,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}
