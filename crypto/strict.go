// strict.go - non-malleable Ed25519 public key validation.
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

package crypto

import (
	"filippo.io/edwards25519"
)

// IsWeakPublicKey reports whether pub decodes to a point of small order
// (including the identity). The standard library's ed25519.Verify accepts
// such points; a decoder provisioned with one would accept signatures
// forgeable without the corresponding private key. This is checked once,
// at bootstrap, rather than per frame.
func IsWeakPublicKey(pub PublicKey) bool {
	p, err := new(edwards25519.Point).SetBytes(pub[:])
	if err != nil {
		// Not a valid point encoding at all; Verify would reject it too,
		// but treat it as weak so Bootstrap fails closed either way.
		return true
	}

	order8 := new(edwards25519.Point).MultByCofactor(p)
	return order8.Equal(edwards25519.NewIdentityPoint()) == 1
}
