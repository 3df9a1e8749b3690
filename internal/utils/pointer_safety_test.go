package utils_test

import (
	"testing"

	"github.com/Carlvinchi/ams/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, "x", utils.Value(utils.Ptr("x")))
	require.Equal(t, int64(0), utils.Value[int64](nil))
}
