// Package ranking builds the explore candidate set: a periodic scan of
// recent post snapshots scored by time-decayed engagement, diversified
// by author, and cached for the timeline to merge in. The same score
// feeds post search ordering.
package ranking

import (
	"math"
	"time"
)

// Engagement weights and decay. Replies weigh double a like since they
// cost the most effort; the +2h pad keeps brand-new posts from dividing
// by near-zero.
const (
	likeWeight   = 1.0
	replyWeight  = 2.0
	repostWeight = 1.5
	agePad       = 2.0
	gravity      = 1.8
)

// Score is the hot score: weighted engagement decayed by age.
func Score(likes, replies, reposts int, age time.Duration) float64 {
	engagement := float64(likes)*likeWeight + float64(replies)*replyWeight + float64(reposts)*repostWeight
	hours := age.Hours()
	if hours < 0 {
		hours = 0
	}
	return engagement / math.Pow(hours+agePad, gravity)
}

// SearchScore orders search hits: the hot score with a literal
// term-frequency boost on top.
func SearchScore(score float64, termFrequency int) float64 {
	return score*10 + float64(termFrequency)*5
}
