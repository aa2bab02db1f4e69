package models

import "fmt"

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message represents a single conversational message sent upstream.
type Message struct {
	Role    string
	Content string
}

// IncomingQuery is a caller's question together with their spending totals.
type IncomingQuery struct {
	Question           string
	FoodTotal          float64
	RentTotal          float64
	EntertainmentTotal float64
}

// UpstreamRequest is the chat completion derived from an IncomingQuery.
type UpstreamRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// ResultKind tags the outcome of a single upstream call.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultTransportFailure
	ResultStatusFailure
	ResultParseFailure
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultTransportFailure:
		return "transport_failure"
	case ResultStatusFailure:
		return "status_failure"
	case ResultParseFailure:
		return "parse_failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// UpstreamResult captures one upstream call. Which fields are set depends on Kind:
// Payload for ResultSuccess, StatusCode and Body for ResultStatusFailure, Err for
// the transport and parse failures.
type UpstreamResult struct {
	Kind       ResultKind
	Payload    []byte
	StatusCode int
	Body       string
	Err        error
}

// OutgoingAnswer is the text returned to the caller, answer or failure message.
type OutgoingAnswer struct {
	Text string
}
