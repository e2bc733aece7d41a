package event

// RequestData is the data for request.added and request.removed events.
type RequestData struct {
	RequestID string `json:"requestID"`
	Text      string `json:"text,omitempty"`
	AgentID   string `json:"agentID,omitempty"`
}

// BranchData is the data for branch.changed events.
type BranchData struct {
	BranchID  string `json:"branchID"`
	RequestID string `json:"requestID,omitempty"`
	Active    int    `json:"active"`
}

// ResponseData is the data for response.updated and response.completed events.
type ResponseData struct {
	RequestID       string   `json:"requestID"`
	ResponseID      string   `json:"responseID"`
	Kinds           []string `json:"kinds"`
	Complete        bool     `json:"complete"`
	Canceled        bool     `json:"canceled"`
	Error           string   `json:"error,omitempty"`
	WaitingForInput bool     `json:"waitingForInput,omitempty"`
}

// ChangeSetData is the data for changeset.updated events.
type ChangeSetData struct {
	URIs []string `json:"uris"`
}

// ContextData is the data for context.changed events.
type ContextData struct {
	Variables []string `json:"variables"`
}

// ToolCallConfirmationData is the data for toolcall.confirmation events.
type ToolCallConfirmationData struct {
	RequestID  string `json:"requestID"`
	ToolCallID string `json:"toolCallID"`
	Name       string `json:"name"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
}
