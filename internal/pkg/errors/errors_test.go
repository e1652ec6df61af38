package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHelpers_MatchWrapped(t *testing.T) {
	require.True(t, IsNotFound(fmt.Errorf("load: %w", ErrNotFound)))
	require.True(t, IsTimeout(fmt.Errorf("unit 3: %w", ErrTaskTimeout)))
	require.True(t, IsExtraction(fmt.Errorf("read a.pdf: %w", ErrExtraction)))
	require.True(t, IsTotalFailure(ErrTotalFailure))
	require.False(t, IsNotFound(ErrInvalid))
}
