package payment

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProcessorAcceptsKnownMethods(t *testing.T) {
	p := NewMockProcessor(false)
	for _, m := range KnownMethods {
		res, err := p.Attempt(context.Background(), m, 100000)
		require.NoError(t, err, m)
		assert.True(t, res.OK, m)
		assert.True(t, strings.HasPrefix(res.Reference, "PAY-"), res.Reference)
	}
}

func TestMockProcessorDeclinesTestFail(t *testing.T) {
	res, err := NewMockProcessor(false).Attempt(context.Background(), "TEST_FAIL", 100)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Empty(t, res.Reference)
}

func TestMockProcessorUnknownMethod(t *testing.T) {
	res, err := NewMockProcessor(false).Attempt(context.Background(), "bitcoin", 100)
	require.NoError(t, err)
	assert.True(t, res.OK)

	res, err = NewMockProcessor(true).Attempt(context.Background(), "bitcoin", 100)
	require.NoError(t, err)
	assert.False(t, res.OK)
}

func TestMockProcessorRejectsBadInput(t *testing.T) {
	_, err := NewMockProcessor(false).Attempt(context.Background(), "cash", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewMockProcessor(false).Attempt(ctx, "cash", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReferencesAreUnique(t *testing.T) {
	p := NewMockProcessor(false)
	a, _ := p.Attempt(context.Background(), "cash", 1)
	b, _ := p.Attempt(context.Background(), "cash", 1)
	assert.NotEqual(t, a.Reference, b.Reference)
}
