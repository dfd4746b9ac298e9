package types

import "encoding/hex"

// Commitment is a 32-byte keccak256 digest: the canonical identifier for a
// request or response, and the host storage key under which a request's
// commitment is tracked until it is answered or times out.
type Commitment [32]byte

func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

func (c Commitment) IsZero() bool {
	return c == Commitment{}
}
