package types

// TimeWindow is an absolute span of the source video, in seconds.
type TimeWindow struct {
	Start float64
	End   float64
}

func (w TimeWindow) Duration() float64 { return w.End - w.Start }

// Clamp restricts the window to [0, max].
func (w TimeWindow) Clamp(max float64) TimeWindow {
	if w.Start < 0 {
		w.Start = 0
	}
	if w.End > max {
		w.End = max
	}
	if w.End < w.Start {
		w.End = w.Start
	}
	return w
}

// Segment is a time-ranged span of the source judged worth clipping.
// Produced upstream (LLM selection or a segments file); consumed read-only.
type Segment struct {
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	Text           string  `json:"text"`
	RelevanceScore float64 `json:"relevance_score"`
	Reasoning      string  `json:"reasoning"`
}

// WordTiming is one transcribed word with millisecond timing, ordered
// non-decreasing by StartMS. Cached once per source video.
type WordTiming struct {
	Text       string  `json:"text"`
	StartMS    int     `json:"start_ms"`
	EndMS      int     `json:"end_ms"`
	Confidence float64 `json:"confidence"`
}

// CropRegion is the rectangle cut from each source frame. All four values
// are even: the target codec family (H.264, 4:2:0) requires it.
type CropRegion struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ClipRecord describes one rendered clip. The transition assembler may
// rewrite Filename/Path/HasTransition; nothing else mutates a record after
// the renderer hands it onward.
type ClipRecord struct {
	Order          int     `json:"order"`
	Filename       string  `json:"filename"`
	Path           string  `json:"path"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	Duration       float64 `json:"duration"`
	Text           string  `json:"text"`
	RelevanceScore float64 `json:"relevance_score"`
	Reasoning      string  `json:"reasoning"`
	HasTransition  bool    `json:"has_transition"`
}

// Manifest is the run output contract. Requested vs Rendered makes partial
// success observable instead of silently swallowed.
type Manifest struct {
	Source      string       `json:"source"`
	SourceTitle string       `json:"source_title,omitempty"`
	RunID       string       `json:"run_id"`
	Requested   int          `json:"requested_segments"`
	Rendered    int          `json:"rendered_clips"`
	Clips       []ClipRecord `json:"clips"`
}
