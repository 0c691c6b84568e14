package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestComponentDefaultsToInfoLevel(t *testing.T) {
	l := Component("sccp")
	require.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestConfigureInvalidLevelFallsBackToInfo(t *testing.T) {
	Configure(Config{Level: "not-a-level"})
	l := Component("mgmt")
	require.Equal(t, zerolog.InfoLevel, l.GetLevel())
}

func TestConfigureAppliesParsedLevel(t *testing.T) {
	Configure(Config{Level: "warn"})
	l := Component("iax2")
	require.Equal(t, zerolog.WarnLevel, l.GetLevel())

	Configure(Config{Level: "info"}) // restore default for other tests in this package
}
