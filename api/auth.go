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

package api

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/blinklabs-io/taleledger/ledger"
	"github.com/mr-tron/base58"
)

const (
	HeaderSigner    = "X-Signer"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"

	maxRequestBodySize = 64 << 10

	// DefaultSignatureWindow bounds how far a request timestamp may be from
	// the server clock
	DefaultSignatureWindow = 5 * time.Minute
)

var (
	errMissingSignature = errors.New("missing signature headers")
	errStaleSignature   = errors.New("request timestamp outside the accepted window")
)

// SigningMessage returns the bytes a client signs for a request. The method
// and path are bound into the message so a signature is only valid for the
// route it was made for.
func SigningMessage(method string, path string, timestamp int64, body []byte) []byte {
	prefix := method + " " + path + "\n" + strconv.FormatInt(timestamp, 10) + "\n"
	ret := make([]byte, 0, len(prefix)+len(body))
	ret = append(ret, prefix...)
	return append(ret, body...)
}

// readSignedBody reads the request body and verifies the ed25519 signature
// carried in the request headers over the method, path, timestamp and body.
// The signer set holds the signing key on success.
func readSignedBody(
	r *http.Request,
	now time.Time,
	window time.Duration,
) ([]byte, ledger.SignerSet, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		return nil, ledger.SignerSet{}, fmt.Errorf("read request body: %w", err)
	}
	if len(body) > maxRequestBodySize {
		return nil, ledger.SignerSet{}, errors.New("request body too large")
	}
	signerHeader := r.Header.Get(HeaderSigner)
	sigHeader := r.Header.Get(HeaderSignature)
	tsHeader := r.Header.Get(HeaderTimestamp)
	if signerHeader == "" || sigHeader == "" || tsHeader == "" {
		return nil, ledger.SignerSet{}, errMissingSignature
	}
	timestamp, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return nil, ledger.SignerSet{}, fmt.Errorf("invalid %s header: %w", HeaderTimestamp, err)
	}
	skew := now.Sub(time.Unix(timestamp, 0))
	if skew > window || skew < -window {
		return nil, ledger.SignerSet{}, fmt.Errorf("%w: %s", errStaleSignature, skew)
	}
	signer, err := ledger.ParseAddress(signerHeader)
	if err != nil {
		return nil, ledger.SignerSet{}, err
	}
	sig, err := base58.Decode(sigHeader)
	if err != nil {
		return nil, ledger.SignerSet{}, ledger.ErrInvalidSignature.WithDetail("%s", err)
	}
	msg := SigningMessage(r.Method, r.URL.Path, timestamp, body)
	signers, err := ledger.VerifySigners(msg, ledger.Signature{
		PublicKey: signer,
		Signature: sig,
	})
	if err != nil {
		return nil, ledger.SignerSet{}, err
	}
	return body, signers, nil
}

// SignRequest signs a request carrying body with key, stamped with now
func SignRequest(r *http.Request, key ed25519.PrivateKey, body []byte, now time.Time) {
	timestamp := now.Unix()
	sig := ledger.Sign(key, SigningMessage(r.Method, r.URL.Path, timestamp, body))
	r.Header.Set(HeaderSigner, sig.PublicKey.String())
	r.Header.Set(HeaderSignature, base58.Encode(sig.Signature))
	r.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
}
