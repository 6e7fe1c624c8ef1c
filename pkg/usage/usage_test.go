package usage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsage_Add(t *testing.T) {
	a := Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120}
	b := Usage{InputTokens: 50, OutputTokens: 5, TotalTokens: 55}

	sum := a.Add(b)
	assert.Equal(t, 150, sum.InputTokens)
	assert.Equal(t, 25, sum.OutputTokens)
	assert.Equal(t, 175, sum.TotalTokens)
	assert.Nil(t, sum.Cost)

	cost := 0.5
	b.Cost = &cost
	sum = a.Add(b)
	require.NotNil(t, sum.Cost)
	assert.InDelta(t, 0.5, *sum.Cost, 1e-9)
}

func TestPricing_Apply(t *testing.T) {
	p := Pricing{InputPerMillion: 2, OutputPerMillion: 8}
	u := p.Apply(Usage{InputTokens: 1_000_000, OutputTokens: 500_000, TotalTokens: 1_500_000})

	require.NotNil(t, u.Cost)
	assert.InDelta(t, 6.0, *u.Cost, 1e-9)

	assert.Nil(t, Pricing{}.Apply(Usage{InputTokens: 10}).Cost)
}

func TestAccumulator(t *testing.T) {
	var acc Accumulator

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acc.Add(Usage{InputTokens: 10, OutputTokens: 1, TotalTokens: 11})
		}()
	}
	wg.Wait()

	total, turns := acc.Snapshot()
	assert.Equal(t, 10, turns)
	assert.Equal(t, 110, total.TotalTokens)

	acc.Reset()
	total, turns = acc.Snapshot()
	assert.True(t, total.IsZero())
	assert.Equal(t, 0, turns)
}
