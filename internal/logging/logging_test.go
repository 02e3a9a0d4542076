package logging_test

import (
	"bytes"
	"testing"

	"github.com/jsirianni/publicip/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"INFO":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"bogus":   logrus.InfoLevel,
		"":        logrus.InfoLevel,
	}
	for in, want := range cases {
		require.Equal(t, want, logging.New(in, &bytes.Buffer{}).GetLevel(), in)
	}
}

func TestNew_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New("info", &buf)
	l.WithField("family", "ipv4").Info("address lookup succeeded")
	l.Debug("hidden")

	out := buf.String()
	require.Contains(t, out, "family=ipv4")
	require.Contains(t, out, "address lookup succeeded")
	require.NotContains(t, out, "hidden")
}
