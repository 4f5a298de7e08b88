package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PaperFeed/internal/domain"
)

type namedScanner string

func (n namedScanner) Name() string { return string(n) }

func (n namedScanner) Scan(context.Context, Request) ([]domain.Paper, error) { return nil, nil }

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register(namedScanner("arxiv-list"))
	reg.Register(namedScanner("arxiv-api"))

	sc, err := reg.Resolve("arxiv-api")
	require.NoError(t, err)
	assert.Equal(t, "arxiv-api", sc.Name())
	assert.Equal(t, []string{"arxiv-api", "arxiv-list"}, reg.Names())

	_, err = reg.Resolve("ieee")
	assert.Error(t, err)
}

func TestRequestContainsIsInclusive(t *testing.T) {
	req := Request{
		From: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC),
	}
	assert.True(t, req.Contains(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, req.Contains(time.Date(2025, 3, 12, 23, 59, 0, 0, time.UTC)))
	assert.False(t, req.Contains(time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)))
	assert.False(t, req.Contains(time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC)))
}
