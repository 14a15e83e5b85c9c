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

package ledger

// Authorized is implemented by records that store the key allowed to mutate
// or close them. Child records carry their own copy, captured at creation.
type Authorized interface {
	Authority() Address
}

// Authorize checks that the record's stored authority signed the
// transaction
func Authorize(rec Authorized, signers SignerSet) error {
	authority := rec.Authority()
	if !signers.Contains(authority) {
		return ErrUnauthorized.WithDetail("%s did not sign", authority)
	}
	return nil
}

// RequireSigner checks that key signed the transaction
func RequireSigner(key Address, signers SignerSet) error {
	if !signers.Contains(key) {
		return ErrUnauthorized.WithDetail("missing signature from %s", key)
	}
	return nil
}
