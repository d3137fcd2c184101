package sdp

import "fmt"

// Payload is the strongly-typed byte buffer the public send interfaces
// accept (Design Notes §9: a typed byte-buffer input plus thin
// convenience constructors, replacing the source's dynamic mixed-type
// list). Zero value is the empty payload.
type Payload []byte

// FromBytes wraps an existing byte slice as a Payload, validating nothing
// beyond what the caller already guarantees are raw bytes.
func FromBytes(b []byte) Payload {
	return Payload(append([]byte(nil), b...))
}

// FromInts builds a Payload from a list of integers, each of which must
// lie in [0, 255] (§4.8). Returns ErrPayloadInvalid on the first
// out-of-range element.
func FromInts(values ...int) (Payload, error) {
	out := make(Payload, 0, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("%w: element %d value %d out of [0,255]", ErrPayloadInvalid, i, v)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// FromString expands a character sequence into its code-point sequence,
// each of which must lie in [0, 255] (§4.8). Returns ErrPayloadInvalid on
// the first code point outside that range, so multi-byte runes above
// Latin-1 are rejected rather than silently truncated.
func FromString(s string) (Payload, error) {
	runes := []rune(s)
	out := make(Payload, 0, len(runes))
	for i, r := range runes {
		if r < 0 || r > 255 {
			return nil, fmt.Errorf("%w: rune %d (%q) out of [0,255]", ErrPayloadInvalid, i, r)
		}
		out = append(out, byte(r))
	}
	return out, nil
}

// PayloadBuilder accumulates mixed integer and character-sequence elements
// (Design Notes §9) and validates each on append, so a single out-of-range
// element fails the whole build rather than surfacing only at send time.
type PayloadBuilder struct {
	out Payload
	err error
}

// NewPayloadBuilder returns an empty builder.
func NewPayloadBuilder() *PayloadBuilder {
	return &PayloadBuilder{}
}

// Int appends a single integer element.
func (b *PayloadBuilder) Int(v int) *PayloadBuilder {
	if b.err != nil {
		return b
	}
	if v < 0 || v > 255 {
		b.err = fmt.Errorf("%w: int element %d out of [0,255]", ErrPayloadInvalid, v)
		return b
	}
	b.out = append(b.out, byte(v))
	return b
}

// String appends a character sequence, expanded to code points.
func (b *PayloadBuilder) String(s string) *PayloadBuilder {
	if b.err != nil {
		return b
	}
	p, err := FromString(s)
	if err != nil {
		b.err = err
		return b
	}
	b.out = append(b.out, p...)
	return b
}

// Build returns the accumulated Payload, or the first validation error
// encountered.
func (b *PayloadBuilder) Build() (Payload, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.out, nil
}
