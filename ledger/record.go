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

import (
	"encoding/binary"
	"fmt"

	"github.com/blinklabs-io/gouroboros/cbor"
	"golang.org/x/crypto/blake2b"
)

// Record is a value stored at a derived address. Its domain tag and seeds
// determine the address, and MaxSize bounds the encoded body so the
// allocation made at creation never has to grow.
type Record interface {
	Authorized
	RecordDomain() string
	RecordSeeds() [][]byte
	MaxSize() int
}

// ChildRecord is implemented by records created under a parent record
type ChildRecord interface {
	ParentAddress() Address
}

const (
	discriminatorLength = 8
	// discriminator, deposit, nonce, body length
	recordHeaderSize = discriminatorLength + 8 + 1 + 4
)

// recordHeader precedes the CBOR body of every stored record
type recordHeader struct {
	discriminator [discriminatorLength]byte
	deposit       uint64
	nonce         uint8
	bodyLen       uint32
}

// Discriminator identifies the record type stored at an address
func Discriminator(domain string) [discriminatorLength]byte {
	var ret [discriminatorLength]byte
	sum := blake2b.Sum256([]byte("record:" + domain))
	copy(ret[:], sum[:discriminatorLength])
	return ret
}

// EncodedSize returns the encoded body size of a record value. Records use
// it on a maximally filled prototype to compute MaxSize.
func EncodedSize(rec any) int {
	body, err := cbor.Encode(rec)
	if err != nil {
		panic(fmt.Sprintf("encode record prototype %T: %s", rec, err))
	}
	return len(body)
}

// StoredSize is the number of bytes allocated for a record type
func StoredSize(rec Record) int {
	return recordHeaderSize + rec.MaxSize()
}

func encodeRecord(hdr recordHeader, body []byte, capacity int) []byte {
	ret := make([]byte, recordHeaderSize+capacity)
	copy(ret[0:8], hdr.discriminator[:])
	binary.BigEndian.PutUint64(ret[8:16], hdr.deposit)
	ret[16] = hdr.nonce
	binary.BigEndian.PutUint32(ret[17:21], uint32(len(body))) //nolint:gosec // bounded by capacity
	copy(ret[recordHeaderSize:], body)
	return ret
}

func decodeRecord(data []byte) (recordHeader, []byte, error) {
	var hdr recordHeader
	if len(data) < recordHeaderSize {
		return hdr, nil, ErrStorage.WithDetail("record of %d bytes is truncated", len(data))
	}
	copy(hdr.discriminator[:], data[0:8])
	hdr.deposit = binary.BigEndian.Uint64(data[8:16])
	hdr.nonce = data[16]
	hdr.bodyLen = binary.BigEndian.Uint32(data[17:21])
	if int(hdr.bodyLen) > len(data)-recordHeaderSize {
		return hdr, nil, ErrStorage.WithDetail("record body length %d exceeds allocation", hdr.bodyLen)
	}
	return hdr, data[recordHeaderSize : recordHeaderSize+int(hdr.bodyLen)], nil
}

// StringSeed converts a text field to a derivation seed
func StringSeed(s string) []byte {
	return []byte(s)
}
