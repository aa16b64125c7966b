package vm

import "github.com/holiman/uint256"

// evmStack is a fixed-capacity LIFO of 256-bit words (slice-backed,
// pre-sized).
type evmStack struct {
	data []*uint256.Int
}

func newStack() evmStack {
	return evmStack{data: make([]*uint256.Int, 0, 16)}
}

func (s *evmStack) push(v *uint256.Int) error {
	if len(s.data) >= maxStack {
		return ErrStackOverflow
	}
	s.data = append(s.data, v)
	return nil
}

func (s *evmStack) pop() (*uint256.Int, error) {
	n := len(s.data)
	if n == 0 {
		return nil, ErrStackUnderflow
	}
	v := s.data[n-1]
	s.data = s.data[:n-1]
	return v, nil
}

// pop2 pops two values, returning them in push order (first-pushed first),
// matching the convention operand stacks use for e.g. SUB: a - b.
func (s *evmStack) pop2() (a, b *uint256.Int, err error) {
	b, err = s.pop()
	if err != nil {
		return nil, nil, err
	}
	a, err = s.pop()
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func (s *evmStack) pop3() (a, b, c *uint256.Int, err error) {
	c, err = s.pop()
	if err != nil {
		return nil, nil, nil, err
	}
	b, err = s.pop()
	if err != nil {
		return nil, nil, nil, err
	}
	a, err = s.pop()
	if err != nil {
		return nil, nil, nil, err
	}
	return a, b, c, nil
}

func (s *evmStack) dup(n int) error {
	l := len(s.data)
	if n > l {
		return ErrStackUnderflow
	}
	if l >= maxStack {
		return ErrStackOverflow
	}
	v := new(uint256.Int).Set(s.data[l-n])
	s.data = append(s.data, v)
	return nil
}

func (s *evmStack) swap(n int) error {
	l := len(s.data)
	if n >= l {
		return ErrStackUnderflow
	}
	s.data[l-1], s.data[l-1-n] = s.data[l-1-n], s.data[l-1]
	return nil
}

// evmMemory is a byte-addressable, auto-growing scratch space
// (grow-on-demand, zero-filled).
type evmMemory struct {
	store []byte
}

func newMemory() evmMemory { return evmMemory{} }

func (m *evmMemory) ensure(size uint64) {
	if uint64(len(m.store)) >= size {
		return
	}
	grown := make([]byte, size)
	copy(grown, m.store)
	m.store = grown
}

func (m *evmMemory) write(offset uint64, data []byte) {
	if len(data) == 0 {
		return
	}
	m.ensure(offset + uint64(len(data)))
	copy(m.store[offset:], data)
}

func (m *evmMemory) read(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	m.ensure(offset + size)
	out := make([]byte, size)
	copy(out, m.store[offset:offset+size])
	return out
}

func (m *evmMemory) len() int { return len(m.store) }
