// Package core holds the PDF object model the decoder is driven by.
//
// The document layer that parses a file hands streams over as [Stream]
// values: the stream dictionary as a [Dict] of [Object]s, the raw body, and
// the [IndirectRef] of the object holding it. The eight basic object types
// are [Null], [Bool], [Int], [Real], [String], [Name], [Array] and [Dict].
//
// # Stream Decoding
//
// [Stream.Filters] turns the Filter and DecodeParms entries into the filter
// names and parameters the decode chain takes. [Stream.Decode] runs the chain
// over the whole body; [Stream.Reader] returns it as a streaming source and
// accepts an environment carrying a security handler for encrypted
// documents.
//
// # Encryption
//
// [EncryptInfo] reads the standard security handler's Encrypt dictionary so a
// password can be checked and the document key recovered.
package core
