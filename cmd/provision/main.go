// main.go - build-time secret provisioning tool.
// Copyright (C) 2026  Decoder Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command provision derives a decoder's build-time key material from a
// deployment secrets file and emits a generated Go source file of
// embedded constants for cmd/decoder to compile in. It refuses to produce
// a decoder build with a weak public key; crypto.Bootstrap repeats the
// same check when the decoder starts.
package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"text/template"

	"github.com/BurntSushi/toml"
	"github.com/duskrelay/decoder/crypto"
)

// Secrets is the deployment secrets file format: every field is a hex
// string.
type Secrets struct {
	DeploymentKey string `toml:"deployment_key"`
	Salt          string `toml:"salt"`
	Channel0Key   string `toml:"channel_0_key"`
	FlashKey      string `toml:"flash_key"`
	SigningSK     string `toml:"signing_sk"`
	DecoderID     string `toml:"decoder_id"`
}

func main() {
	var secretsPath, outPath, pkgName string
	flag.StringVar(&secretsPath, "secrets", "secrets.toml", "deployment secrets file")
	flag.StringVar(&outPath, "out", "internal/provisioned/constants_gen.go", "generated constants file path")
	flag.StringVar(&pkgName, "package", "provisioned", "package name for the generated file")
	flag.Parse()

	if err := run(secretsPath, outPath, pkgName); err != nil {
		fmt.Fprintln(os.Stderr, "provision:", err)
		os.Exit(1)
	}
}

func run(secretsPath, outPath, pkgName string) error {
	var secrets Secrets
	if _, err := toml.DecodeFile(secretsPath, &secrets); err != nil {
		return fmt.Errorf("decode secrets file: %w", err)
	}

	deploymentKey, err := hex.DecodeString(secrets.DeploymentKey)
	if err != nil {
		return fmt.Errorf("deployment_key: %w", err)
	}
	salt, err := hex.DecodeString(secrets.Salt)
	if err != nil {
		return fmt.Errorf("salt: %w", err)
	}
	decoderID, err := hex.DecodeString(secrets.DecoderID)
	if err != nil {
		return fmt.Errorf("decoder_id: %w", err)
	}

	decoderKey, err := crypto.DeriveDecoderKey(deploymentKey, salt, decoderID)
	if err != nil {
		return fmt.Errorf("derive decoder key: %w", err)
	}

	channel0Key, err := decodeKey(secrets.Channel0Key, "channel_0_key")
	if err != nil {
		return err
	}
	flashKey, err := decodeKey(secrets.FlashKey, "flash_key")
	if err != nil {
		return err
	}

	signingSeed, err := hex.DecodeString(secrets.SigningSK)
	if err != nil {
		return fmt.Errorf("signing_sk: %w", err)
	}
	if len(signingSeed) != ed25519.SeedSize {
		return fmt.Errorf("signing_sk: want %d bytes, got %d", ed25519.SeedSize, len(signingSeed))
	}
	signingKey := ed25519.NewKeyFromSeed(signingSeed)
	pub := signingKey.Public().(ed25519.PublicKey)

	var verifyingKey crypto.PublicKey
	copy(verifyingKey[:], pub)
	if crypto.IsWeakPublicKey(verifyingKey) {
		return fmt.Errorf("refusing to provision firmware with a weak public key")
	}

	return writeConstants(outPath, pkgName, secrets.DecoderID, decoderKey, channel0Key, flashKey, verifyingKey)
}

func decodeKey(s, field string) (crypto.Key, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return crypto.Key{}, fmt.Errorf("%s: %w", field, err)
	}
	if len(raw) != crypto.KeySize {
		return crypto.Key{}, fmt.Errorf("%s: want %d bytes, got %d", field, crypto.KeySize, len(raw))
	}
	var key crypto.Key
	copy(key[:], raw)
	return key, nil
}

var constantsTemplate = template.Must(template.New("constants").Parse(`// Code generated by cmd/provision from {{.SecretsPath}}. DO NOT EDIT.

package {{.Package}}

import "github.com/duskrelay/decoder/crypto"

// DecoderID is the hex identity this set of constants was derived for.
const DecoderID = "{{.DecoderID}}"

// DecoderKey authenticates Subscribe request bodies sent to this decoder.
var DecoderKey = crypto.Key{ {{.DecoderKey}} }

// Channel0Key decrypts the always-valid emergency broadcast channel.
var Channel0Key = crypto.Key{ {{.Channel0Key}} }

// FlashKey encrypts the persistence layer's subscription-table snapshot.
var FlashKey = crypto.Key{ {{.FlashKey}} }

// VerifyingKey is the compressed Ed25519 public key frames are signed
// against. cmd/provision refuses to emit a weak (identity/low-order) key.
var VerifyingKey = crypto.PublicKey{ {{.VerifyingKey}} }
`))

func writeConstants(outPath, pkgName, decoderID string, decoderKey, channel0Key, flashKey crypto.Key, verifyingKey crypto.PublicKey) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	data := struct {
		SecretsPath, Package, DecoderID                 string
		DecoderKey, Channel0Key, FlashKey, VerifyingKey string
	}{
		SecretsPath:  "the deployment secrets file",
		Package:      pkgName,
		DecoderID:    decoderID,
		DecoderKey:   byteLiteral(decoderKey[:]),
		Channel0Key:  byteLiteral(channel0Key[:]),
		FlashKey:     byteLiteral(flashKey[:]),
		VerifyingKey: byteLiteral(verifyingKey[:]),
	}
	return constantsTemplate.Execute(f, data)
}

func byteLiteral(b []byte) string {
	s := ""
	for i, v := range b {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("0x%02x", v)
	}
	return s
}
