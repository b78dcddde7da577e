// Package didl encodes and decodes DIDL messages; self-describing binary messages carrying typed values,
// used for the arguments and results of calls to remote services.
//
// A message carries a table of the constructed types it uses, so a receiver can decode it without prior agreement on the schema.
// Decoding reconciles the types on the wire with the types the receiver expects:
// record fields are matched by id, fields the receiver doesn't know are skipped,
// optional fields the sender didn't send default to none, and extra values are dropped.
// This lets senders and receivers evolve their interfaces independently.
//
// Types are described with the idl package. Values are plain Go values; see idl.Validate for what each type accepts.
//
//	msg, err := didl.Encode([]*idl.Type{idl.TextType, idl.OptType(idl.NatType)}, []any{"hello", idl.Some(42)})
//	...
//	values, err := didl.Decode([]*idl.Type{idl.TextType}, msg)
//
// didl/encio provides the byte-level primitives and error kinds.
//
// didl/frame provides a compressed and checksummed envelope for storing and streaming messages.
package didl

import "github.com/stewi1014/didl/idl"

// Magic begins every DIDL message.
const Magic = "DIDL"

// Encode encodes values as types with the default configuration.
func Encode(types []*idl.Type, values []any) ([]byte, error) {
	return (*Config)(nil).Encode(types, values)
}

// Decode decodes a message as types with the default configuration.
func Decode(types []*idl.Type, data []byte) ([]any, error) {
	return (*Config)(nil).Decode(types, data)
}
