package system

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestClockIsUTC(t *testing.T) {
	require.Equal(t, "UTC", Clock{}.Now().Location().String())
}

func TestUUIDGeneratorIssuesDistinctIDs(t *testing.T) {
	gen := UUIDGenerator{}
	first, err := gen.NewID(context.Background())
	require.NoError(t, err)
	second, err := gen.NewID(context.Background())
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	_, err = uuid.Parse(first)
	require.NoError(t, err)
}
