package score

import (
	"math"
	"time"
)

// Weights sets how much each component contributes to the final score.
// Zero-valued Weights fall back to DefaultWeights.
type Weights struct {
	Recency    float64
	Frequency  float64
	Engagement float64
	Richness   float64
}

// DefaultWeights favours pages visited recently and often.
var DefaultWeights = Weights{
	Recency:    0.35,
	Frequency:  0.30,
	Engagement: 0.20,
	Richness:   0.15,
}

func (w Weights) total() float64 {
	return w.Recency + w.Frequency + w.Engagement + w.Richness
}

// Input holds the per-place data needed to score a highlight.
type Input struct {
	VisitCount    int
	LastVisit     time.Time
	TotalViewTime time.Duration
	Title         string
	PreviewImage  string
}

// Breakdown shows how each component contributed to the final score.
type Breakdown struct {
	Recency    float64
	Frequency  float64
	Engagement float64
	Richness   float64
	Final      float64
}

const (
	// halfLife is how long it takes a visit's recency to drop to 0.5.
	halfLife = 72 * time.Hour
	// frequencyScale is the visit count at which frequency reaches ~0.63.
	frequencyScale = 5.0
	// engagementCap is the total view time that counts as fully engaged.
	engagementCap = 5 * time.Minute
)

// Score computes a relevance score (0.0–10.0) for a place.
func Score(input Input, w Weights) float64 {
	return ScoreAt(input, w, time.Now()).Final
}

// ScoreAt scores relative to now and returns the component details.
func ScoreAt(input Input, w Weights, now time.Time) Breakdown {
	if w.total() <= 0 {
		w = DefaultWeights
	}

	b := Breakdown{
		Recency:    recencyScore(input.LastVisit, now),
		Frequency:  frequencyScore(input.VisitCount),
		Engagement: engagementScore(input.TotalViewTime),
		Richness:   richnessScore(input.Title, input.PreviewImage),
	}
	raw := (b.Recency*w.Recency +
		b.Frequency*w.Frequency +
		b.Engagement*w.Engagement +
		b.Richness*w.Richness) / w.total()
	b.Final = math.Round(raw*100) / 10
	return b
}

// recencyScore decays exponentially: 1.0 now, 0.5 after halfLife.
func recencyScore(last, now time.Time) float64 {
	if last.IsZero() {
		return 0.0
	}
	hours := now.Sub(last).Hours()
	if hours < 0 {
		hours = 0
	}
	return math.Exp(-math.Ln2 * hours / halfLife.Hours())
}

func frequencyScore(visits int) float64 {
	if visits <= 0 {
		return 0.0
	}
	return 1 - math.Exp(-float64(visits)/frequencyScale)
}

func engagementScore(viewTime time.Duration) float64 {
	if viewTime <= 0 {
		return 0.0
	}
	if viewTime >= engagementCap {
		return 1.0
	}
	return float64(viewTime) / float64(engagementCap)
}

// richnessScore rewards places that render well as a card.
func richnessScore(title, preview string) float64 {
	s := 0.0
	if title != "" {
		s += 0.5
	}
	if preview != "" {
		s += 0.5
	}
	return s
}
