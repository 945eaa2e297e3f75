package model

import (
	"encoding/json"
	"time"
)

// Status is derived from the persisted flags; it is never stored directly.
type Status string

const (
	StatusPending    Status = "pending"
	StatusMined      Status = "mined"
	StatusSuperseded Status = "superseded"
	StatusStuck      Status = "stuck"
)

// Request is the unit of work and the audit record for one relayed
// transaction. The id is a client-chosen idempotency token; nonce is
// assigned exactly once and never reassigned to another request.
type Request struct {
	ID              string
	Chain           Chain
	Nonce           uint64
	Tx              Envelope
	Hash            string
	Mined           bool
	Superseded      bool
	Stuck           bool
	Attempts        int
	LastBroadcastAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Status derives the externally visible state. Mined wins over every
// other flag because a confirmed inclusion is final.
func (r *Request) Status() Status {
	switch {
	case r.Mined:
		return StatusMined
	case r.Superseded:
		return StatusSuperseded
	case r.Stuck:
		return StatusStuck
	default:
		return StatusPending
	}
}

// Intent is a validated client submission before a nonce is reserved.
type Intent struct {
	ID    string
	To    string
	Value string
	Data  []byte
}

// SignedTx is an opaque signed transaction produced by a Signer. Hash is
// the transaction hash the chain will report for Raw.
type SignedTx struct {
	Raw  []byte
	Hash string
}

// MarshalTx serializes the envelope for durable storage.
func MarshalTx(env Envelope) (json.RawMessage, error) {
	return json.Marshal(env)
}

// UnmarshalTx restores an envelope from its stored form.
func UnmarshalTx(raw json.RawMessage) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(raw, &env)
	return env, err
}
