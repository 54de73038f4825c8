package optimize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixado/dialog/core"
)

func askThenAnswer(sess *core.Session, field core.Field, answer string, extracted bool) {
	sess.AppendMessage(core.NewOutboundMessage("question", "ask_"+string(field)))
	msg := core.NewInboundMessage(answer)
	if extracted {
		msg.ExtractedFields = map[core.Field]string{field: answer}
	}
	sess.AppendMessage(msg)
}

func TestComputePattern_FreshSessionHasNeutralPriors(t *testing.T) {
	sess := core.NewSession("owner-1", "web", time.Hour)

	p := ComputePattern(sess)

	assert.Zero(t, p.AvgInboundLength)
	assert.Zero(t, p.ResponseCompleteness)
	assert.Equal(t, 0.5, p.AnswerRate)
	assert.Equal(t, 1.0, p.TopicConsistency)
	assert.Zero(t, p.InterruptionFrequency)
}

func TestComputePattern_AnsweredQuestionsRaiseRate(t *testing.T) {
	sess := core.NewSession("owner-1", "web", time.Hour)
	askThenAnswer(sess, core.FieldServiceType, "de la plomberie, une fuite d'eau sous l'évier", true)
	askThenAnswer(sess, core.FieldLocation, "11 rue de la Roquette, 75011 Paris", true)

	p := ComputePattern(sess)

	assert.Equal(t, 1.0, p.AnswerRate)
	assert.Equal(t, 1.0, p.ResponseCompleteness)
	assert.Greater(t, p.AvgInboundLength, 0.0)
}

func TestComputePattern_TopicChangesErodeConsistency(t *testing.T) {
	sess := core.NewSession("owner-1", "web", time.Hour)
	sess.AppendMessage(core.NewInboundMessage("un devis"))
	sess.Interruption.Record(core.InterruptionRecord{Type: core.InterruptionTopicChange})
	sess.Interruption.Record(core.InterruptionRecord{Type: core.InterruptionNewRequest})

	p := ComputePattern(sess)

	assert.Equal(t, 0.5, p.TopicConsistency)
	assert.Greater(t, p.InterruptionFrequency, 0.0)
}

func TestClassifyProfile_CentroidMatchesExactly(t *testing.T) {
	for profile, centroid := range profileCentroids {
		got, conf := ClassifyProfile(centroid)
		assert.Equal(t, profile, got)
		assert.Equal(t, 1.0, conf)
	}
}

func TestOptimizer_TooFewInboundReturnsNil(t *testing.T) {
	o := New()
	sess := core.NewSession("owner-1", "web", time.Hour)
	sess.AppendMessage(core.NewInboundMessage("bonjour"))

	assert.Nil(t, o.Suggest(sess))
}

func TestOptimizer_DetailedResponderGetsMultiField(t *testing.T) {
	o := New()
	sess := core.NewSession("owner-1", "web", time.Hour)
	long := strings.Repeat("je vous explique tout en détail ", 5)
	askThenAnswer(sess, core.FieldServiceType, long, true)
	askThenAnswer(sess, core.FieldLocation, long, true)
	askThenAnswer(sess, core.FieldDescription, long, true)

	rec := o.Suggest(sess)
	require.NotNil(t, rec)

	assert.Equal(t, ProfileDetailed, rec.Profile)

	best, ok := rec.Best()
	require.True(t, ok)
	assert.Equal(t, StrategyMultiFieldExtraction, best.Strategy)
	assert.GreaterOrEqual(t, best.Confidence, DefaultThreshold)
}

func TestOptimizer_EvasiveShortAnswersGetSuggestions(t *testing.T) {
	o := New()
	sess := core.NewSession("owner-1", "web", time.Hour)
	askThenAnswer(sess, core.FieldServiceType, "euh", false)
	askThenAnswer(sess, core.FieldLocation, "bof", false)
	askThenAnswer(sess, core.FieldDescription, "sais pas", false)
	sess.Interruption.Record(core.InterruptionRecord{Type: core.InterruptionTopicChange})
	sess.Interruption.Record(core.InterruptionRecord{Type: core.InterruptionClarification})

	rec := o.Suggest(sess)
	require.NotNil(t, rec)

	best, ok := rec.Best()
	require.True(t, ok)
	assert.True(t, OffersSuggestion(best.Strategy),
		"short evasive answers should be met with suggested values, got %s", best.Strategy)
}

func TestRecommendation_BestRespectsThreshold(t *testing.T) {
	rec := &Recommendation{
		Strategies: []RankedStrategy{{Strategy: StrategyQuestionBatching, Confidence: 0.55}},
		threshold:  DefaultThreshold,
	}

	_, ok := rec.Best()
	assert.False(t, ok)

	var nilRec *Recommendation
	_, ok = nilRec.Best()
	assert.False(t, ok)
}

func TestBatchSize(t *testing.T) {
	assert.Equal(t, 3, BatchSize(StrategyQuestionBatching))
	assert.Equal(t, 2, BatchSize(StrategyMultiFieldExtraction))
	assert.Equal(t, 1, BatchSize(StrategyContextAware))
}
