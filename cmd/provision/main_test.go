package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
)

func writeSecretsFile(t *testing.T, dir string, s Secrets) string {
	t.Helper()
	path := filepath.Join(dir, "secrets.toml")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, toml.NewEncoder(f).Encode(s))
	return path
}

func hexBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i + 1)
	}
	return hex.EncodeToString(b)
}

func TestRunGeneratesConstantsFile(t *testing.T) {
	dir := t.TempDir()

	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	seed := priv.Seed()

	secrets := Secrets{
		DeploymentKey: hexBytes(32),
		Salt:          hexBytes(16),
		Channel0Key:   hexBytes(32),
		FlashKey:      hexBytes(32),
		SigningSK:     hex.EncodeToString(seed),
		DecoderID:     hexBytes(8),
	}
	secretsPath := writeSecretsFile(t, dir, secrets)
	outPath := filepath.Join(dir, "constants_gen.go")

	require.NoError(t, run(secretsPath, outPath, "provisioned"))

	contents, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(contents), "package provisioned")
	require.Contains(t, string(contents), "var DecoderKey = crypto.Key{")
	require.Contains(t, string(contents), "DO NOT EDIT")
}

func TestRunRejectsWrongLengthKey(t *testing.T) {
	dir := t.TempDir()
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	secrets := Secrets{
		DeploymentKey: hexBytes(32),
		Salt:          hexBytes(16),
		Channel0Key:   hexBytes(10), // wrong length
		FlashKey:      hexBytes(32),
		SigningSK:     hex.EncodeToString(priv.Seed()),
		DecoderID:     hexBytes(8),
	}
	secretsPath := writeSecretsFile(t, dir, secrets)
	outPath := filepath.Join(dir, "constants_gen.go")

	require.Error(t, run(secretsPath, outPath, "provisioned"))
}
