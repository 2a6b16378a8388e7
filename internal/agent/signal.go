package agent

import (
	"regexp"
	"strings"
)

const (
	completeMarker    = "<promise>COMPLETE</promise>"
	failureOpenMarker = "<promise>FAILED"

	// ReasonNoSignal means the output carried neither completion marker.
	ReasonNoSignal = "NO_COMPLETION_SIGNAL"

	// ReasonMalformed means a failure marker was opened but the reason
	// could not be recovered from it.
	ReasonMalformed = "MALFORMED_FAILURE_SIGNAL"
)

var failurePattern = regexp.MustCompile(`(?s)<promise>FAILED:\s*(.*?)</promise>`)

// Signal is the parsed completion claim from agent output.
type Signal struct {
	Complete bool
	Reason   string
}

// ParseCompletionSignal scans raw agent output for the completion
// sentinel. Absence of any marker is itself a failure: an agent that
// never claims completion did not complete.
func ParseCompletionSignal(output string) Signal {
	if strings.Contains(output, completeMarker) {
		return Signal{Complete: true}
	}

	if m := failurePattern.FindStringSubmatch(output); m != nil {
		reason := strings.TrimSpace(m[1])
		if reason == "" {
			return Signal{Reason: ReasonMalformed}
		}
		return Signal{Reason: reason}
	}

	if strings.Contains(output, failureOpenMarker) {
		return Signal{Reason: ReasonMalformed}
	}

	return Signal{Reason: ReasonNoSignal}
}
