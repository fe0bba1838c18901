// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package keystore reads and writes the secp256k1 key files used by the
// trusted KYC signer. Keys are stored in a JSON envelope holding the
// CBOR-encoded key bytes as hex.
package keystore

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/fxamacker/cbor/v2"
)

const (
	SigningKeyType      = "KycSigningKey_secp256k1"
	VerificationKeyType = "KycVerificationKey_secp256k1"
)

var (
	ErrInsecureFileMode = errors.New("insecure file permissions")
	ErrWrongKeyType     = errors.New("wrong key type")
)

// Limit reads to guard against pointing at a large file by mistake
const maxKeyFileSize = 1 << 20

type keyFileEnvelope struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// GenerateKeyPair writes a new signing key and its verification key. The
// signing key file is created with owner-only permissions
func GenerateKeyPair(skeyPath, vkeyPath string) (*secp256k1.PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := WriteSigningKey(skeyPath, key); err != nil {
		return nil, err
	}
	if err := WriteVerificationKey(vkeyPath, key.PubKey()); err != nil {
		return nil, err
	}
	return key, nil
}

func WriteSigningKey(path string, key *secp256k1.PrivateKey) error {
	return writeKeyFile(
		path,
		SigningKeyType,
		"KYC Signing Key",
		key.Serialize(),
		0o600,
	)
}

func WriteVerificationKey(path string, key *secp256k1.PublicKey) error {
	return writeKeyFile(
		path,
		VerificationKeyType,
		"KYC Verification Key",
		key.SerializeCompressed(),
		0o644,
	)
}

// LoadSigningKey loads a signing key. It returns ErrInsecureFileMode if other
// users can access the file
func LoadSigningKey(path string) (*secp256k1.PrivateKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file %q: %w", path, err)
	}
	defer f.Close()
	if err := checkOpenFilePermissions(f); err != nil {
		return nil, err
	}
	keyBytes, err := readKeyFile(f, SigningKeyType)
	if err != nil {
		return nil, fmt.Errorf("failed to load key file %q: %w", path, err)
	}
	if len(keyBytes) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf(
			"invalid signing key length: expected %d, got %d",
			secp256k1.PrivKeyBytesLen,
			len(keyBytes),
		)
	}
	return secp256k1.PrivKeyFromBytes(keyBytes), nil
}

// LoadVerificationKey loads a public key. Verification keys are public so
// permissions are not checked
func LoadVerificationKey(path string) (*secp256k1.PublicKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file %q: %w", path, err)
	}
	defer f.Close()
	keyBytes, err := readKeyFile(f, VerificationKeyType)
	if err != nil {
		return nil, fmt.Errorf("failed to load key file %q: %w", path, err)
	}
	return secp256k1.ParsePubKey(keyBytes)
}

func readKeyFile(r io.Reader, keyType string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxKeyFileSize))
	if err != nil {
		return nil, err
	}
	var env keyFileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("could not parse key file envelope: %w", err)
	}
	if env.Type != keyType {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrWrongKeyType, keyType, env.Type)
	}
	cborData, err := hex.DecodeString(env.CborHex)
	if err != nil {
		return nil, fmt.Errorf("could not decode key from hex: %w", err)
	}
	var keyBytes []byte
	if err := cbor.Unmarshal(cborData, &keyBytes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal key CBOR: %w", err)
	}
	return keyBytes, nil
}

func writeKeyFile(
	path, keyType, description string,
	keyBytes []byte,
	perm os.FileMode,
) error {
	cborData, err := cbor.Marshal(keyBytes)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(
		keyFileEnvelope{
			Type:        keyType,
			Description: description,
			CborHex:     hex.EncodeToString(cborData),
		},
		"",
		"    ",
	)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create key file %q: %w", path, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write key file %q: %w", path, err)
	}
	return f.Close()
}
