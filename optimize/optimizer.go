package optimize

import (
	"sort"

	"github.com/fixado/dialog/core"
	"github.com/fixado/dialog/logging"
)

// DefaultThreshold is the global confidence a ranked strategy must clear
// before the turn processor applies it.
const DefaultThreshold = 0.6

// Options configures the optimizer.
type Options struct {
	// MinInbound is the number of inbound messages required before any
	// recommendation is made; earlier turns carry too little signal.
	MinInbound int
	// Threshold gates strategy application for callers using Best.
	Threshold float64
	// Logger receives classification decisions at debug level.
	Logger logging.Logger
}

// RankedStrategy pairs a strategy with its combined confidence.
type RankedStrategy struct {
	Strategy   Strategy `json:"strategy"`
	Confidence float64  `json:"confidence"`
}

// Recommendation is the advisory output for one turn.
type Recommendation struct {
	Profile           BehaviorProfile     `json:"profile"`
	ProfileConfidence float64             `json:"profile_confidence"`
	Pattern           ConversationPattern `json:"pattern"`
	// Strategies are ranked best first, already filtered to each
	// strategy's minimum confidence.
	Strategies []RankedStrategy `json:"strategies"`

	threshold float64
}

// Best returns the top-ranked strategy when it clears the global threshold.
func (r *Recommendation) Best() (RankedStrategy, bool) {
	if r == nil || len(r.Strategies) == 0 {
		return RankedStrategy{}, false
	}
	top := r.Strategies[0]
	if top.Confidence < r.threshold {
		return RankedStrategy{}, false
	}
	return top, true
}

// Optimizer classifies owner behavior and ranks question-asking strategies.
// It holds no per-session state and is safe for concurrent use.
type Optimizer struct {
	opts Options
}

// New creates an optimizer.
func New(optFns ...func(o *Options)) *Optimizer {
	opts := Options{
		MinInbound: 2,
		Threshold:  DefaultThreshold,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Optimizer{opts: opts}
}

// Suggest analyzes the session and returns a recommendation, or nil while
// the history is still too short to classify.
func (o *Optimizer) Suggest(session *core.Session) *Recommendation {
	var inbound int
	for _, msg := range session.RecentMessages() {
		if msg.Direction == core.DirectionInbound {
			inbound++
		}
	}
	if inbound < o.opts.MinInbound {
		return nil
	}

	pattern := ComputePattern(session)
	profile, profConf := ClassifyProfile(pattern)

	ranked := make([]RankedStrategy, 0, len(strategyCatalogue))
	for strategy, spec := range strategyCatalogue {
		conf := clamp01(spec.affinity[profile]*profConf + spec.signalBonus(pattern))
		if conf < spec.minConfidence {
			continue
		}
		ranked = append(ranked, RankedStrategy{Strategy: strategy, Confidence: conf})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Strategy < ranked[j].Strategy
	})

	o.opts.Logger.Debug("behavior classified",
		"session_id", session.ID,
		"profile", profile,
		"profile_confidence", profConf,
		"candidates", len(ranked),
	)

	return &Recommendation{
		Profile:           profile,
		ProfileConfidence: profConf,
		Pattern:           pattern,
		Strategies:        ranked,
		threshold:         o.opts.Threshold,
	}
}
