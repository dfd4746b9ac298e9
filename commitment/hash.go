// Package commitment implements the one bit-exact surface of this module:
// the canonical byte encoding hashed to produce request and response
// commitments. Two independent implementations of this package must agree
// byte-for-byte, so nothing here is configurable.
package commitment

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/polytope-labs/go-ismp/types"
)

func be64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// encodeKeys is the canonical_encoding(keys) referenced by the Get hash:
// each key is prefixed with its own big-endian length so that distinct key
// lists never collide by concatenation alone.
func encodeKeys(keys [][]byte) []byte {
	var out []byte
	for _, k := range keys {
		out = append(out, be64(uint64(len(k)))...)
		out = append(out, k...)
	}
	return out
}

func hash(parts ...[]byte) types.Commitment {
	var buf []byte
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return types.Commitment(crypto.Keccak256Hash(buf))
}

// HashRequest computes the canonical commitment of a Post or Get request.
func HashRequest(r types.Request) types.Commitment {
	if r.IsPost() {
		p := r.Post
		return hash(
			[]byte(p.SourceChain.String()),
			[]byte(p.DestChain.String()),
			be64(p.Nonce),
			be64(p.TimeoutTimestamp),
			p.From,
			p.To,
			p.Data,
		)
	}
	g := r.Get
	return hash(
		[]byte(g.SourceChain.String()),
		[]byte(g.DestChain.String()),
		be64(g.Nonce),
		be64(g.Height),
		be64(g.TimeoutTimestamp),
		g.From,
		encodeKeys(g.Keys),
	)
}

// HashResponse computes the canonical commitment of a Response to a Post
// request. Calling this with a Response to a Get request is a programmer
// error: Get responses are never committed outbound (spec §4.6, §9).
func HashResponse(r types.Response) types.Commitment {
	if !r.Request.IsPost() {
		panic("commitment: responses to Get requests are not hashed")
	}
	p := r.Request.Post
	return hash(
		[]byte(p.SourceChain.String()),
		[]byte(p.DestChain.String()),
		be64(p.Nonce),
		be64(p.TimeoutTimestamp),
		p.Data,
		p.From,
		p.To,
		r.Response,
	)
}
