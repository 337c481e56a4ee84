package agent

// Event is a progress notification emitted by the engine while a request is
// being worked. The UI consumes these from a channel; the engine never
// blocks the loop on a slow consumer beyond channel capacity.
type Event interface {
	isEvent()
}

// AssistantTextEvent carries the assistant text accumulated so far for the
// turn in flight. Each event supersedes the previous one, so a consumer that
// missed an event catches up on the next.
type AssistantTextEvent struct {
	Text string
}

// ToolCallStartedEvent fires when a tool invocation begins authorization.
type ToolCallStartedEvent struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResultEvent fires when a tool invocation finished, was denied or was
// skipped.
type ToolResultEvent struct {
	ID      string
	Name    string
	Content string
	IsError bool
	Skipped bool
	Reason  string
}

// CompactStartEvent fires when transcript compaction begins.
type CompactStartEvent struct {
	EstimatedTokens int
}

// CompactEndEvent fires when compaction finished.
type CompactEndEvent struct {
	EstimatedTokensBefore int
	EstimatedTokensAfter  int
}

// InfoEvent carries operational notices such as injected middleware messages.
type InfoEvent struct {
	Text string
}

// StoppedEvent fires when a middleware ends the loop before completion.
type StoppedEvent struct {
	Reason string
}

func (AssistantTextEvent) isEvent()   {}
func (ToolCallStartedEvent) isEvent() {}
func (ToolResultEvent) isEvent()      {}
func (CompactStartEvent) isEvent()    {}
func (CompactEndEvent) isEvent()      {}
func (InfoEvent) isEvent()            {}
func (StoppedEvent) isEvent()         {}
