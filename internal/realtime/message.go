package realtime

// Message types on the presenter/audience channel.
const (
	TypeCaption = "CAPTION"
	TypeTap     = "TAP"
)

// Envelope is the WebSocket message envelope. Type discriminates; the
// remaining fields are populated per type.
type Envelope struct {
	Type      string        `json:"type"`
	SegmentID string        `json:"segmentId,omitempty"`
	Final     bool          `json:"final,omitempty"`
	Words     []CaptionWord `json:"words,omitempty"`
	Lemma     string        `json:"lemma,omitempty"`
	Word      string        `json:"word,omitempty"`
}

// CaptionWord is a single word-timed token produced by the transcription
// pipeline. Text keeps its leading whitespace; the front end joins words
// verbatim.
type CaptionWord struct {
	ID   string  `json:"id"`
	Text string  `json:"text"`
	T0   float64 `json:"t0"`
	Conf float64 `json:"conf"`
}
