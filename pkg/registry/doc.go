/*
Package registry maps payload type identifiers to protobuf codecs.

A TypeID is a protobuf type URL. The Registry answers one question: given
a TypeID, which Codec decodes, encodes and JSON-converts it. It is built
once at startup and never mutated afterwards, so lookups need no locking.

	reg, err := registry.NewBuilder().
		Add(registry.Known()...).
		AddFileDescriptorSet(fds). // vehicle schemas, optional
		Build()

Known lists the compiled-in schemas. Additional schemas come from a
FileDescriptorSet and are served by dynamicpb. The first registration of a
full name wins, so generated well-known types are never shadowed by a
dynamic copy pulled in through --include_imports.

A lookup miss is not an error of the registry. Decode turns it into a
DecodeError wrapping ErrUnknownType; DecodeEvent logs it, counts it and
returns nil so ingestion can drop the event and carry on.

Out-of-band resources carry a content type of the form

	application/json; type=<TypeID>
	application/protobuf; type=<TypeID>

which ParseContentType splits and DecodeContent uses to pick both the
codec and the JSON or binary decode path.
*/
package registry
