package logging_test

import (
	"bytes"
	"testing"

	"github.com/Carlvinchi/ams/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetupWriter(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.DebugLevel) })

	t.Run("production logs info and above", func(t *testing.T) {
		var buf bytes.Buffer
		logging.SetupWriter("PROD", &buf)

		log.Debug().Msg("hidden")
		log.Info().Str("user", "a@x.com").Msg("signed in")

		out := buf.String()
		require.NotContains(t, out, "hidden")
		require.Contains(t, out, "signed in")
		require.Contains(t, out, "env=PROD")
	})

	t.Run("dev logs debug", func(t *testing.T) {
		var buf bytes.Buffer
		logging.SetupWriter("DEV", &buf)

		log.Debug().Msg("visible")
		require.Contains(t, buf.String(), "visible")
	})
}
