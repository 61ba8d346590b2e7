package model

type LengthResponse struct {
	Length int `json:"length"`
}

type TrackSummary struct {
	ID        string `json:"id"`
	InstClass string `json:"inst_class"`
	IsDrum    bool   `json:"is_drum"`
	NumNotes  int    `json:"num_notes"`
	NumPedals int    `json:"num_pedals"`
}

type ExampleResponse struct {
	Index       int            `json:"index"`
	DatasetName string         `json:"dataset_name"`
	AudioPath   string         `json:"audio_path"`
	StartTime   float64        `json:"start_time"`
	Duration    float64        `json:"duration"`
	Question    string         `json:"question"`
	Channels    int            `json:"channels"`
	Samples     int            `json:"samples"`
	NumBeats    int            `json:"num_beats"`
	Frames      int            `json:"frames,omitempty"`
	Tracks      []TrackSummary `json:"tracks"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
