package session

import (
	"net/http"

	"github.com/kelmah/sessionkit/httpclient"
)

// HeaderDegraded marks the synthetic response returned for a failed health
// check.
const HeaderDegraded = "X-Session-Degraded"

// Outcome classifies the result of a session request.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeDegraded
	// OutcomeUnauthorizedRecoverable is a 401 that can still be refreshed.
	// Client.Do reports it only as the initial outcome.
	OutcomeUnauthorizedRecoverable
	OutcomeUnauthorizedTerminal
	OutcomeNetworkUnreachable
	OutcomeOther
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDegraded:
		return "degraded"
	case OutcomeUnauthorizedRecoverable:
		return "unauthorized_recoverable"
	case OutcomeUnauthorizedTerminal:
		return "unauthorized_terminal"
	case OutcomeNetworkUnreachable:
		return "network_unreachable"
	default:
		return "other"
	}
}

// Classify maps a request and its result to an Outcome. A 401 is recoverable
// only while the request is still eligible for a refresh, so it describes a
// first attempt. Once Client.Do has handled a failure every 401 it returns is
// terminal. Do records both: the first attempt as session.initial_outcome and
// the returned result as session.outcome.
func Classify(req httpclient.Request, resp *httpclient.Response, err error) Outcome {
	if err == nil {
		if resp != nil && resp.Headers[HeaderDegraded] == "true" {
			return OutcomeDegraded
		}
		return OutcomeSuccess
	}
	if httpclient.IsNetworkUnreachable(err) {
		return OutcomeNetworkUnreachable
	}
	if httpclient.StatusCode(err) == http.StatusUnauthorized {
		if refreshEligible(req) {
			return OutcomeUnauthorizedRecoverable
		}
		return OutcomeUnauthorizedTerminal
	}
	return OutcomeOther
}

func refreshEligible(req httpclient.Request) bool {
	return !req.Retried && !req.SkipAuthRefresh && !req.SkipErrorHandling
}

func degradedResponse() *httpclient.Response {
	return &httpclient.Response{
		StatusCode: http.StatusServiceUnavailable,
		Headers: map[string]string{
			"Content-Type": "application/json",
			HeaderDegraded: "true",
		},
		Body: []byte(`{"message":"API unreachable"}`),
	}
}
