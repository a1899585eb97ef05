package analysis

// BoundingBox is [ymin, xmin, ymax, xmax] on a 0-1000 scale.
type BoundingBox [4]int

// Face is one entry of the face-analysis response.
type Face struct {
	BoundingBox     BoundingBox `json:"boundingBox"`
	Demographics    string      `json:"demographics"`
	Expression      string      `json:"expression"`
	IsReal          bool        `json:"isReal"`
	SimilarityScore float64     `json:"similarityScore"`
}

// FaceAnalysis is the full face-analysis response.
type FaceAnalysis struct {
	Faces []Face `json:"faces"`
}

// Overlay is a face region expressed as percentages of the image container.
type Overlay struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
}
