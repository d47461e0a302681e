package kernel

import "fmt"

// memVM is the default VM: it keeps no page tables, only the size of each
// address space, which is all the process core needs.
type memVM struct{}

type memSpace struct {
	size int
}

func (memVM) New() (AddressSpace, error) {
	return &memSpace{size: pageSize}, nil
}

func (memVM) Copy(src AddressSpace, size int) (AddressSpace, error) {
	if _, ok := src.(*memSpace); !ok && src != nil {
		return nil, fmt.Errorf("copy: foreign address space %T", src)
	}
	return &memSpace{size: size}, nil
}

func (memVM) Resize(as AddressSpace, oldSize, newSize int) (int, error) {
	ms, ok := as.(*memSpace)
	if !ok {
		return oldSize, fmt.Errorf("resize: foreign address space %T", as)
	}
	if newSize < 0 {
		return oldSize, fmt.Errorf("resize: negative size %d", newSize)
	}
	ms.size = newSize
	return newSize, nil
}

func (memVM) Activate(AddressSpace) {}

func (memVM) Free(AddressSpace) {}
