package deepface

// RepresentRequest for POST /represent
type RepresentRequest struct {
	Img              string `json:"img"`              // base64 encoded image
	Model            string `json:"model_name"`       // "Facenet512", "VGG-Face", etc
	Detector         string `json:"detector_backend"` // "retinaface", "mtcnn", etc
	EnforceDetection bool   `json:"enforce_detection"`
	Align            bool   `json:"align"`
}

// RepresentResponse from POST /represent
type RepresentResponse struct {
	Results []RepresentResult `json:"results"`
}

type RepresentResult struct {
	Embedding      []float64  `json:"embedding"`
	FacialArea     FacialArea `json:"facial_area"`
	FaceConfidence *float64   `json:"face_confidence,omitempty"`
}

type FacialArea struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}
