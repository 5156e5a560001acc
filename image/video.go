package image

// VideoStatus is the canonical state of an image-to-video task.
type VideoStatus string

const (
	VideoPending    VideoStatus = "pending"
	VideoProcessing VideoStatus = "processing"
	VideoSuccess    VideoStatus = "success"
	VideoFailed     VideoStatus = "failed"
)

// Terminal reports whether no further polling is useful.
func (s VideoStatus) Terminal() bool {
	return s == VideoSuccess || s == VideoFailed
}

// VideoRequest asks for an image-to-video task.
type VideoRequest struct {
	ImageURL  string `json:"imageUrl"`
	Prompt    string `json:"prompt"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	AuthToken string `json:"-"`
}

// VideoTask is a snapshot of an upstream task. It is never cached; every read
// goes back upstream.
type VideoTask struct {
	TaskID   string      `json:"taskId"`
	Status   VideoStatus `json:"status"`
	VideoURL string      `json:"videoUrl,omitempty"`
	Error    string      `json:"error,omitempty"`
}
