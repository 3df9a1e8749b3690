package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRestartOnError(t *testing.T) {
	t.Run("retries until a run succeeds", func(t *testing.T) {
		calls := 0
		err := restartOnError(5, 0, func() error {
			calls++
			if calls < 3 {
				return errors.New("listen failed")
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		calls := 0
		boom := errors.New("config not found")
		err := restartOnError(4, 0, func() error {
			calls++
			return boom
		})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 4, calls)
	})

	t.Run("clean stop runs once", func(t *testing.T) {
		calls := 0
		require.NoError(t, restartOnError(4, 0, func() error {
			calls++
			return nil
		}))
		require.Equal(t, 1, calls)
	})
}
