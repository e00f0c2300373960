package dto

// DetectionResult is one object found by the detection model in a sampled frame.
type DetectionResult struct {
	Label      string  `json:"label" msgpack:"label"`
	Confidence float64 `json:"confidence" msgpack:"confidence"`
	ClassID    int     `json:"classId" msgpack:"class_id"`
	X          int     `json:"x" msgpack:"x"`
	Y          int     `json:"y" msgpack:"y"`
	Width      int     `json:"width" msgpack:"width"`
	Height     int     `json:"height" msgpack:"height"`
}
