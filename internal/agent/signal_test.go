package agent

import "testing"

func TestParseCompletionSignal(t *testing.T) {
	tests := []struct {
		name         string
		output       string
		wantComplete bool
		wantReason   string
	}{
		{
			name:         "complete marker",
			output:       "did the work\n<promise>COMPLETE</promise>\n",
			wantComplete: true,
		},
		{
			name:       "failure with reason",
			output:     "could not proceed\n<promise>FAILED: disk full</promise>",
			wantReason: "disk full",
		},
		{
			name:       "failure reason spans whitespace",
			output:     "<promise>FAILED:   tests keep flaking  </promise>",
			wantReason: "tests keep flaking",
		},
		{
			name:       "no marker at all",
			output:     "I made some changes and stopped.",
			wantReason: ReasonNoSignal,
		},
		{
			name:       "failure marker without closing tag",
			output:     "<promise>FAILED: everything broke",
			wantReason: ReasonMalformed,
		},
		{
			name:       "failure marker with empty reason",
			output:     "<promise>FAILED:</promise>",
			wantReason: ReasonMalformed,
		},
		{
			name:       "failure marker without colon",
			output:     "<promise>FAILED</promise>",
			wantReason: ReasonMalformed,
		},
		{
			name:         "complete wins over trailing failure text",
			output:       "<promise>COMPLETE</promise> but earlier I wrote <promise>FAILED: x</promise>",
			wantComplete: true,
		},
		{
			name:       "empty output",
			output:     "",
			wantReason: ReasonNoSignal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCompletionSignal(tt.output)
			if got.Complete != tt.wantComplete {
				t.Errorf("Complete = %v, want %v", got.Complete, tt.wantComplete)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}
