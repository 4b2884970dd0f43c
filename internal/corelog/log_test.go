package corelog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConfiguresBackendAndLogs(t *testing.T) {
	var buf bytes.Buffer
	backend, err := New(&buf, "DEBUG")
	require.NoError(t, err)

	log := backend.GetLogger("test_component")
	log.Info("hello")

	require.Contains(t, buf.String(), "hello")
	require.Contains(t, buf.String(), "test_component")
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	_, err := New(&buf, "NOT_A_LEVEL")
	require.Error(t, err)
}
