package dto

// ZeroShotParameters configures the zero-shot classification pipeline.
type ZeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label"`
}

type InferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// ZeroShotRequest is the Hugging Face inference payload.
type ZeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters ZeroShotParameters `json:"parameters"`
	Options    InferenceOptions   `json:"options"`
}

// ZeroShotResponse lists labels in descending score order.
type ZeroShotResponse struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}
