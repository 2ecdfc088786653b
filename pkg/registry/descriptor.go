package registry

import (
	"fmt"
	"os"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

// AddFileDescriptorSet registers every message declared in a descriptor
// set (as produced by protoc --include_imports --descriptor_set_out).
// Messages already registered, e.g. well-known types, keep their
// generated implementation.
func (b *Builder) AddFileDescriptorSet(fds *descriptorpb.FileDescriptorSet) *Builder {
	if b.err != nil {
		return b
	}
	files, err := protodesc.NewFiles(fds)
	if err != nil {
		b.err = fmt.Errorf("invalid descriptor set: %w", err)
		return b
	}
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		b.addMessages(fd.Messages())
		return b.err == nil
	})
	return b
}

func (b *Builder) addMessages(mds protoreflect.MessageDescriptors) {
	for i := 0; i < mds.Len(); i++ {
		md := mds.Get(i)
		if md.IsMapEntry() {
			continue
		}
		b.AddType(dynamicpb.NewMessageType(md))
		b.addMessages(md.Messages())
	}
}

// LoadDescriptorSetFile reads a serialized FileDescriptorSet
func LoadDescriptorSetFile(path string) (*descriptorpb.FileDescriptorSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor set: %w", err)
	}
	var fds descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(data, &fds); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor set %s: %w", path, err)
	}
	return &fds, nil
}
