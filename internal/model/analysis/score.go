package analysis

// IdeaScore is the structured result of idea scoring.
type IdeaScore struct {
	PatentScore    float64 `json:"patentScore"`
	CopyrightScore float64 `json:"copyrightScore"`
	Details        string  `json:"details"`
}

// ScanResult mirrors the generic content-analysis result shown to the user.
type ScanResult struct {
	IsAI           bool     `json:"isAI"`
	Confidence     float64  `json:"confidence"`
	IPMatches      []string `json:"ipMatches"`
	Details        string   `json:"details"`
	PatentScore    *float64 `json:"patentScore,omitempty"`
	CopyrightScore *float64 `json:"copyrightScore,omitempty"`
}
