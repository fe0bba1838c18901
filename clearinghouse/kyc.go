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

package clearinghouse

import (
	"errors"

	"github.com/blinklabs-io/causeway/database"
	"github.com/blinklabs-io/causeway/database/types"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/holiman/uint256"
)

// KycApproval is a trusted signer's approval for an account to convert
// into a cause's token
type KycApproval struct {
	Signature []byte
	KycID     types.Hash
	// Expiry is a unix timestamp in seconds. Zero never expires
	Expiry uint64
}

// KycDigest is the message the trusted signer signs
func KycDigest(kycID types.Hash, account types.Address, causeID, expiry uint64) types.Hash {
	return types.Blake2b256(
		kycID[:],
		account[:],
		types.Uint64ToBytes(causeID),
		types.Uint64ToBytes(expiry),
	)
}

// SignKyc produces a compact recoverable signature over the KYC digest
func SignKyc(
	key *secp256k1.PrivateKey,
	kycID types.Hash,
	account types.Address,
	causeID, expiry uint64,
) []byte {
	digest := KycDigest(kycID, account, causeID, expiry)
	return ecdsa.SignCompact(key, digest[:], true)
}

// ParseTrustedSigner decodes a serialized secp256k1 public key
func ParseTrustedSigner(data []byte) (*secp256k1.PublicKey, error) {
	if len(data) == 0 {
		return nil, errors.New("empty trusted signer key")
	}
	return secp256k1.ParsePubKey(data)
}

func (c *ClearingHouse) verifySignature(
	approval KycApproval,
	account types.Address,
	causeID uint64,
) bool {
	if c.config.TrustedSigner == nil {
		return false
	}
	digest := KycDigest(approval.KycID, account, causeID, approval.Expiry)
	pubKey, _, err := ecdsa.RecoverCompact(approval.Signature, digest[:])
	if err != nil {
		return false
	}
	return pubKey.IsEqual(c.config.TrustedSigner)
}

// checkKyc verifies the approval and records amount against the cumulative
// allowance for (kycID, causeID)
func (c *ClearingHouse) checkKyc(
	approval KycApproval,
	account types.Address,
	causeID uint64,
	amount *uint256.Int,
	txn *database.Txn,
) error {
	result := "ok"
	defer func() {
		if c.metrics != nil {
			c.metrics.kycChecks.WithLabelValues(result).Inc()
		}
	}()
	if !c.verifySignature(approval, account, causeID) {
		result = "invalid_signature"
		return ErrInvalidSignature
	}
	now := c.config.Clock.Now().Unix()
	if approval.Expiry != 0 && now > 0 && approval.Expiry < uint64(now) {
		result = "expired"
		return ErrApprovalExpired
	}
	key := types.KycUsageKey(approval.KycID, causeID)
	var used uint256.Int
	if _, err := c.db.GetRecord(key, &used, txn); err != nil {
		return err
	}
	total, err := types.CheckedAdd(&used, amount)
	if err != nil || total.Gt(c.config.KycAllowance) {
		result = "exceeded"
		return ErrUserAmountExceeded
	}
	return c.db.SetRecord(key, total, txn)
}

// KycUsage returns the amount already converted under a KYC approval for a
// cause
func (c *ClearingHouse) KycUsage(
	kycID types.Hash,
	causeID uint64,
	txn *database.Txn,
) (*uint256.Int, error) {
	var used uint256.Int
	if _, err := c.db.GetRecord(types.KycUsageKey(kycID, causeID), &used, txn); err != nil {
		return nil, err
	}
	return &used, nil
}
