package state

import "fmt"

// KV is the narrow state surface the collection primitives are built on.
// *Manager satisfies it; tests may substitute their own implementation.
type KV interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
}

// NotFoundError reports a lookup of an index that was never assigned. The
// message is supplied by the caller so query layers can surface it verbatim.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// OutOfRangeError reports positional access beyond a collection's length.
type OutOfRangeError struct {
	Pos    uint64
	Length uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("position %d out of range, length %d", e.Pos, e.Length)
}

func lengthKey(prefix []byte) []byte {
	return []byte(fmt.Sprintf("%s/len", prefix))
}

func slotKey(prefix []byte, i uint64) []byte {
	return []byte(fmt.Sprintf("%s/%d", prefix, i))
}

func loadLength(kv KV, prefix []byte) (uint64, error) {
	var length uint64
	ok, err := kv.KVGet(lengthKey(prefix), &length)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return length, nil
}

// IndexedMap is a dense, append-only mapping from a sequential index to an
// opaque value. Indices are assigned starting at zero and every index below
// the recorded length holds a value; the length always equals one past the
// highest assigned index. Layout: one slot key per index plus a length key
// under the collection prefix.
type IndexedMap struct {
	kv     KV
	prefix []byte
}

// NewIndexedMap returns an indexed map persisting under the given prefix.
func NewIndexedMap(kv KV, prefix []byte) *IndexedMap {
	return &IndexedMap{kv: kv, prefix: prefix}
}

// Len returns the number of assigned indices.
func (m *IndexedMap) Len() (uint64, error) {
	return loadLength(m.kv, m.prefix)
}

// Append stores value under the next sequential index and returns that index.
func (m *IndexedMap) Append(value []byte) (uint64, error) {
	length, err := m.Len()
	if err != nil {
		return 0, err
	}
	if err := m.kv.KVPut(slotKey(m.prefix, length), value); err != nil {
		return 0, err
	}
	if err := m.kv.KVPut(lengthKey(m.prefix), length+1); err != nil {
		return 0, err
	}
	return length, nil
}

// Get returns the value stored at index. Lookups past the assigned range fail
// with a NotFoundError carrying the caller-supplied message.
func (m *IndexedMap) Get(index uint64, msg string) ([]byte, error) {
	length, err := m.Len()
	if err != nil {
		return nil, err
	}
	if index >= length {
		return nil, &NotFoundError{Msg: msg}
	}
	var value []byte
	ok, err := m.kv.KVGet(slotKey(m.prefix, index), &value)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Msg: msg}
	}
	return value, nil
}

// IntSet is an append-only positional collection of unsigned integers.
// Positions are stable once assigned; values are never reordered or removed.
// The primitive does not reject duplicates, callers enforce any uniqueness
// they need before appending.
type IntSet struct {
	kv     KV
	prefix []byte
}

// NewIntSet returns an integer set persisting under the given prefix.
func NewIntSet(kv KV, prefix []byte) *IntSet {
	return &IntSet{kv: kv, prefix: prefix}
}

// Len returns the number of stored values.
func (s *IntSet) Len() (uint64, error) {
	return loadLength(s.kv, s.prefix)
}

// Append adds value at the next position.
func (s *IntSet) Append(value uint64) error {
	length, err := s.Len()
	if err != nil {
		return err
	}
	if err := s.kv.KVPut(slotKey(s.prefix, length), value); err != nil {
		return err
	}
	return s.kv.KVPut(lengthKey(s.prefix), length+1)
}

// At returns the value at the given position, failing with an OutOfRangeError
// when the position was never assigned.
func (s *IntSet) At(pos uint64) (uint64, error) {
	length, err := s.Len()
	if err != nil {
		return 0, err
	}
	if pos >= length {
		return 0, &OutOfRangeError{Pos: pos, Length: length}
	}
	var value uint64
	ok, err := s.kv.KVGet(slotKey(s.prefix, pos), &value)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &OutOfRangeError{Pos: pos, Length: length}
	}
	return value, nil
}

// Contains scans the set for value. The scan is linear in the set size; the
// storage layout offers no faster membership test.
func (s *IntSet) Contains(value uint64) (bool, error) {
	length, err := s.Len()
	if err != nil {
		return false, err
	}
	for i := uint64(0); i < length; i++ {
		stored, err := s.At(i)
		if err != nil {
			return false, err
		}
		if stored == value {
			return true, nil
		}
	}
	return false, nil
}

// Values returns the stored values in insertion order.
func (s *IntSet) Values() ([]uint64, error) {
	length, err := s.Len()
	if err != nil {
		return nil, err
	}
	values := make([]uint64, 0, length)
	for i := uint64(0); i < length; i++ {
		value, err := s.At(i)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// AddressSet is the address-valued counterpart of IntSet with the same
// positional semantics and the same linear membership cost.
type AddressSet struct {
	kv     KV
	prefix []byte
}

// NewAddressSet returns an address set persisting under the given prefix.
func NewAddressSet(kv KV, prefix []byte) *AddressSet {
	return &AddressSet{kv: kv, prefix: prefix}
}

// Len returns the number of stored addresses.
func (s *AddressSet) Len() (uint64, error) {
	return loadLength(s.kv, s.prefix)
}

// Append adds addr at the next position.
func (s *AddressSet) Append(addr [20]byte) error {
	length, err := s.Len()
	if err != nil {
		return err
	}
	if err := s.kv.KVPut(slotKey(s.prefix, length), addr[:]); err != nil {
		return err
	}
	return s.kv.KVPut(lengthKey(s.prefix), length+1)
}

// At returns the address at the given position, failing with an
// OutOfRangeError when the position was never assigned.
func (s *AddressSet) At(pos uint64) ([20]byte, error) {
	var addr [20]byte
	length, err := s.Len()
	if err != nil {
		return addr, err
	}
	if pos >= length {
		return addr, &OutOfRangeError{Pos: pos, Length: length}
	}
	var raw []byte
	ok, err := s.kv.KVGet(slotKey(s.prefix, pos), &raw)
	if err != nil {
		return addr, err
	}
	if !ok || len(raw) != len(addr) {
		return addr, &OutOfRangeError{Pos: pos, Length: length}
	}
	copy(addr[:], raw)
	return addr, nil
}

// Contains scans the set for addr. Linear in the set size.
func (s *AddressSet) Contains(addr [20]byte) (bool, error) {
	length, err := s.Len()
	if err != nil {
		return false, err
	}
	for i := uint64(0); i < length; i++ {
		stored, err := s.At(i)
		if err != nil {
			return false, err
		}
		if stored == addr {
			return true, nil
		}
	}
	return false, nil
}

// Values returns the stored addresses in insertion order.
func (s *AddressSet) Values() ([][20]byte, error) {
	length, err := s.Len()
	if err != nil {
		return nil, err
	}
	values := make([][20]byte, 0, length)
	for i := uint64(0); i < length; i++ {
		addr, err := s.At(i)
		if err != nil {
			return nil, err
		}
		values = append(values, addr)
	}
	return values, nil
}
