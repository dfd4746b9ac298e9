package types

import "time"

// Post is a module-to-module message: arbitrary bytes sent from one module
// on SourceChain to a module on DestChain.
type Post struct {
	SourceChain     StateMachine
	DestChain       StateMachine
	Nonce           uint64
	From            []byte
	To              []byte
	TimeoutTimestamp uint64 // seconds
	Data            []byte
}

// Get is a remote storage read request: the destination module's state at
// Height is expected to be readable by the time a response is produced.
type Get struct {
	SourceChain      StateMachine
	DestChain        StateMachine
	Nonce            uint64
	From             []byte
	Keys             [][]byte
	Height           uint64
	TimeoutTimestamp uint64 // seconds
}

// Request is the sum type over Post and Get. Exactly one of Post/Get is
// non-nil; IsPost/IsGet report which.
type Request struct {
	Post *Post
	Get  *Get
}

func PostRequest(p Post) Request { return Request{Post: &p} }
func GetRequest(g Get) Request   { return Request{Get: &g} }

func (r Request) IsPost() bool { return r.Post != nil }
func (r Request) IsGet() bool  { return r.Get != nil }

// SourceChain returns the request's source, regardless of variant.
func (r Request) SourceChain() StateMachine {
	if r.Post != nil {
		return r.Post.SourceChain
	}
	return r.Get.SourceChain
}

// DestChain returns the request's destination, regardless of variant.
func (r Request) DestChain() StateMachine {
	if r.Post != nil {
		return r.Post.DestChain
	}
	return r.Get.DestChain
}

// Nonce returns the request's nonce, regardless of variant.
func (r Request) Nonce() uint64 {
	if r.Post != nil {
		return r.Post.Nonce
	}
	return r.Get.Nonce
}

// TimeoutTimestamp returns the request's timeout, as a Duration since the
// unix epoch, regardless of variant.
func (r Request) TimeoutTimestamp() time.Duration {
	var secs uint64
	if r.Post != nil {
		secs = r.Post.TimeoutTimestamp
	} else {
		secs = r.Get.TimeoutTimestamp
	}
	return time.Duration(secs) * time.Second
}

// TimedOut reports whether proofTimestamp has strictly passed the request's
// timeout (spec §4.5: equality does not count as timed out).
func (r Request) TimedOut(proofTimestamp time.Duration) bool {
	return proofTimestamp > r.TimeoutTimestamp()
}
