package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fixado/dialog/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastChain(primary Extractor) *Chain {
	return NewChain(primary, func(o *ChainOptions) {
		o.Timeout = 100 * time.Millisecond
		o.MaxRetries = 2
		o.Backoff = time.Millisecond
	})
}

func TestChain_PrimarySuccess(t *testing.T) {
	mock := NewMockExtractor()
	mock.AddResult("J'ai une fuite d'eau", &Result{
		Fields: map[core.Field]Candidate{
			core.FieldDescription: {Value: "fuite d'eau", Confidence: 0.9},
		},
	})

	res, err := fastChain(mock).Extract(context.Background(), Request{Text: "J'ai une fuite d'eau"})
	require.NoError(t, err)
	assert.Equal(t, "fuite d'eau", res.Fields[core.FieldDescription].Value)
	assert.Equal(t, 1, mock.Calls())
}

func TestChain_RetriesThenDegrades(t *testing.T) {
	mock := NewMockExtractor()
	mock.FailWith(errors.New("provider unreachable"))

	res, err := fastChain(mock).Extract(context.Background(), Request{Text: "fuite d'eau sous l'évier à Lyon"})
	require.ErrorIs(t, err, ErrDegraded)
	require.NotNil(t, res)
	// 1 initial attempt + 2 retries.
	assert.Equal(t, 3, mock.Calls())
	// The keyword fallback still produced usable fields.
	assert.Equal(t, "plomberie", res.Fields[core.FieldServiceType].Value)
}

func TestChain_NilPrimaryGoesStraightToFallback(t *testing.T) {
	res, err := NewChain(nil).Extract(context.Background(), Request{Text: "la chaudière est en panne"})
	require.ErrorIs(t, err, ErrDegraded)
	assert.Equal(t, "chauffage", res.Fields[core.FieldServiceType].Value)
}

func TestChain_ContextCancelStopsRetrying(t *testing.T) {
	mock := NewMockExtractor()
	mock.FailWith(errors.New("slow provider"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := fastChain(mock).Extract(ctx, Request{Text: "fuite"})
	// Degrades rather than propagating the cancellation as a turn failure.
	require.ErrorIs(t, err, ErrDegraded)
	require.NotNil(t, res)
	assert.Equal(t, 1, mock.Calls())
}
