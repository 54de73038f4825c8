package optimize

// Strategy is one entry of the fixed question-asking strategy catalogue.
type Strategy string

const (
	// StrategyMultiFieldExtraction leans on verbose answers carrying
	// several fields at once.
	StrategyMultiFieldExtraction Strategy = "multi_field_extraction"
	// StrategyContextAware rephrases questions around what is already
	// known instead of asking them bare.
	StrategyContextAware Strategy = "context_aware_questioning"
	// StrategyPredictiveCompletion offers a predicted value for
	// confirmation instead of an open question.
	StrategyPredictiveCompletion Strategy = "predictive_completion"
	// StrategySmartSuggestions proposes concrete example answers.
	StrategySmartSuggestions Strategy = "smart_suggestions"
	// StrategyAdaptiveOrdering prefers fields the owner volunteers
	// spontaneously, within the fixed priority order.
	StrategyAdaptiveOrdering Strategy = "adaptive_field_ordering"
	// StrategyQuestionBatching compresses several questions into one
	// outbound message.
	StrategyQuestionBatching Strategy = "question_batching"
)

// strategySpec scores one strategy: a minimum confidence below which it is
// never recommended, a per-profile affinity, and a signal bonus computed
// from the raw pattern.
type strategySpec struct {
	minConfidence float64
	affinity      map[BehaviorProfile]float64
	signalBonus   func(p ConversationPattern) float64
}

var strategyCatalogue = map[Strategy]strategySpec{
	StrategyMultiFieldExtraction: {
		minConfidence: 0.5,
		affinity: map[BehaviorProfile]float64{
			ProfileDetailed:        0.9,
			ProfileContextProvider: 0.8,
			ProfileMethodical:      0.5,
			ProfileBrief:           0.2,
			ProfileQuestionAvoider: 0.2,
			ProfileImpatient:       0.3,
		},
		signalBonus: func(p ConversationPattern) float64 {
			return 0.2 * p.ResponseCompleteness
		},
	},
	StrategyContextAware: {
		minConfidence: 0.4,
		affinity: map[BehaviorProfile]float64{
			ProfileDetailed:        0.6,
			ProfileContextProvider: 0.9,
			ProfileMethodical:      0.6,
			ProfileBrief:           0.5,
			ProfileQuestionAvoider: 0.6,
			ProfileImpatient:       0.4,
		},
		signalBonus: func(p ConversationPattern) float64 {
			return 0.15 * p.TopicConsistency
		},
	},
	StrategyPredictiveCompletion: {
		minConfidence: 0.6,
		affinity: map[BehaviorProfile]float64{
			ProfileDetailed:        0.4,
			ProfileContextProvider: 0.5,
			ProfileMethodical:      0.4,
			ProfileBrief:           0.8,
			ProfileQuestionAvoider: 0.7,
			ProfileImpatient:       0.9,
		},
		signalBonus: func(p ConversationPattern) float64 {
			// Predicting answers pays off when answers are short or missing.
			return 0.2 * (1 - p.ResponseCompleteness)
		},
	},
	StrategySmartSuggestions: {
		minConfidence: 0.5,
		affinity: map[BehaviorProfile]float64{
			ProfileDetailed:        0.3,
			ProfileContextProvider: 0.4,
			ProfileMethodical:      0.5,
			ProfileBrief:           0.7,
			ProfileQuestionAvoider: 0.8,
			ProfileImpatient:       0.7,
		},
		signalBonus: func(p ConversationPattern) float64 {
			return 0.2 * (1 - p.AnswerRate)
		},
	},
	StrategyAdaptiveOrdering: {
		minConfidence: 0.55,
		affinity: map[BehaviorProfile]float64{
			ProfileDetailed:        0.5,
			ProfileContextProvider: 0.7,
			ProfileMethodical:      0.3,
			ProfileBrief:           0.4,
			ProfileQuestionAvoider: 0.6,
			ProfileImpatient:       0.5,
		},
		signalBonus: func(p ConversationPattern) float64 {
			return 0.15 * (1 - p.TopicConsistency)
		},
	},
	StrategyQuestionBatching: {
		minConfidence: 0.6,
		affinity: map[BehaviorProfile]float64{
			ProfileDetailed:        0.7,
			ProfileContextProvider: 0.6,
			ProfileMethodical:      0.8,
			ProfileBrief:           0.3,
			ProfileQuestionAvoider: 0.2,
			ProfileImpatient:       0.8,
		},
		signalBonus: func(p ConversationPattern) float64 {
			// Batching shortens the exchange, which impatient and reliable
			// answerers both benefit from.
			return 0.1*p.AnswerRate + 0.1*(1-p.InterruptionFrequency)
		},
	},
}

// BatchSize returns how many outstanding fields one outbound message may
// ask for under a strategy. The default is one field per message.
func BatchSize(s Strategy) int {
	switch s {
	case StrategyQuestionBatching:
		return 3
	case StrategyMultiFieldExtraction:
		return 2
	default:
		return 1
	}
}

// OffersSuggestion reports whether the strategy presents a predicted or
// example value for confirmation instead of an open question.
func OffersSuggestion(s Strategy) bool {
	return s == StrategyPredictiveCompletion || s == StrategySmartSuggestions
}
