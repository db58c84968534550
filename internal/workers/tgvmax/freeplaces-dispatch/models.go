package freeplacesdispatch

import "freeplaces-workers/internal/dispatch"

// Input is the job variable envelope for one batch.
type Input struct {
	Operation      string                   `json:"operation,omitempty"`
	ContinueOnFail *bool                    `json:"continueOnFail,omitempty"`
	FanOutArrays   *bool                    `json:"fanOutArrays,omitempty"`
	Parameters     map[string]interface{}   `json:"parameters,omitempty"`
	Items          []map[string]interface{} `json:"items"`
}

type Output struct {
	RunID     string                `json:"runId"`
	Operation string                `json:"operation"`
	Results   []dispatch.OutputItem `json:"results"`
	Summary   Summary               `json:"summary"`
}

type Summary struct {
	Items      int `json:"items"`
	Emitted    int `json:"emitted"`
	Captured   int `json:"captured"`
	Normalized int `json:"normalized"`
}
