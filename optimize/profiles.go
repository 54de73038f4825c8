package optimize

import "math"

// BehaviorProfile is one of the fixed owner archetypes the optimizer
// classifies conversations into.
type BehaviorProfile string

const (
	// ProfileDetailed owners write long answers packed with information.
	ProfileDetailed BehaviorProfile = "detailed_responder"
	// ProfileBrief owners answer accurately but with a few words.
	ProfileBrief BehaviorProfile = "brief_responder"
	// ProfileQuestionAvoider owners routinely ignore what was asked.
	ProfileQuestionAvoider BehaviorProfile = "question_avoider"
	// ProfileContextProvider owners volunteer background beyond the question.
	ProfileContextProvider BehaviorProfile = "context_provider"
	// ProfileImpatient owners send short messages and interrupt often.
	ProfileImpatient BehaviorProfile = "impatient"
	// ProfileMethodical owners answer exactly what is asked, every time.
	ProfileMethodical BehaviorProfile = "methodical"
)

// profileCentroids places each archetype in pattern signal space. The
// classifier picks the nearest centroid.
var profileCentroids = map[BehaviorProfile]ConversationPattern{
	ProfileDetailed: {
		AvgInboundLength:      0.80,
		ResponseCompleteness:  0.75,
		AnswerRate:            0.80,
		TopicConsistency:      0.85,
		InterruptionFrequency: 0.10,
	},
	ProfileBrief: {
		AvgInboundLength:      0.15,
		ResponseCompleteness:  0.45,
		AnswerRate:            0.75,
		TopicConsistency:      0.85,
		InterruptionFrequency: 0.10,
	},
	ProfileQuestionAvoider: {
		AvgInboundLength:      0.35,
		ResponseCompleteness:  0.20,
		AnswerRate:            0.15,
		TopicConsistency:      0.60,
		InterruptionFrequency: 0.25,
	},
	ProfileContextProvider: {
		AvgInboundLength:      0.90,
		ResponseCompleteness:  0.60,
		AnswerRate:            0.55,
		TopicConsistency:      0.55,
		InterruptionFrequency: 0.20,
	},
	ProfileImpatient: {
		AvgInboundLength:      0.20,
		ResponseCompleteness:  0.30,
		AnswerRate:            0.50,
		TopicConsistency:      0.45,
		InterruptionFrequency: 0.60,
	},
	ProfileMethodical: {
		AvgInboundLength:      0.45,
		ResponseCompleteness:  0.65,
		AnswerRate:            0.95,
		TopicConsistency:      0.95,
		InterruptionFrequency: 0.05,
	},
}

// maxDistance is the diameter of the unit signal space, used to turn a
// distance into a confidence.
var maxDistance = math.Sqrt(5)

// ClassifyProfile returns the nearest behavior profile for a pattern and a
// confidence in [0,1] that grows as the pattern approaches the centroid.
func ClassifyProfile(p ConversationPattern) (BehaviorProfile, float64) {
	best := ProfileMethodical
	bestDist := math.Inf(1)
	for profile, centroid := range profileCentroids {
		d := p.distance(centroid)
		if d < bestDist || (d == bestDist && profile < best) {
			best = profile
			bestDist = d
		}
	}
	return best, clamp01(1 - bestDist/maxDistance)
}
