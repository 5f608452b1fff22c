package transactor

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/DOIDFoundation/ethnode/store"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

var (
	accountPrefix = []byte("a") // accountPrefix + address -> account
	codePrefix    = []byte("c") // codePrefix + address -> code
	storagePrefix = []byte("s") // storagePrefix + address + slot -> value
)

// Reader is the committed state a State reads through, satisfied by iavl
// trees.
type Reader interface {
	Get(key []byte) ([]byte, error)
}

type account struct {
	Nonce   uint64
	Balance *uint256.Int
}

// State buffers writes on top of a Reader. It is not safe for concurrent
// use.
type State struct {
	base  Reader
	dirty map[string][]byte
	err   error
}

// NewState returns a State reading through base, a nil base is an empty
// state.
func NewState(base Reader) *State {
	return &State{base: base, dirty: make(map[string][]byte)}
}

// Copy returns an independent State sharing the same base.
func (s *State) Copy() *State {
	cpy := &State{base: s.base, dirty: make(map[string][]byte, len(s.dirty)), err: s.err}
	for k, v := range s.dirty {
		cpy.dirty[k] = v
	}
	return cpy
}

// Error returns the first error met reading the base.
func (s *State) Error() error {
	return s.err
}

func (s *State) get(key []byte) []byte {
	if v, ok := s.dirty[string(key)]; ok {
		return v
	}
	if s.base == nil {
		return nil
	}
	v, err := s.base.Get(key)
	if err != nil && s.err == nil {
		s.err = err
	}
	return v
}

func (s *State) set(key, value []byte) {
	if value == nil {
		value = []byte{}
	}
	s.dirty[string(key)] = value
}

func accountKey(addr common.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr.Bytes()...)
}

func codeKey(addr common.Address) []byte {
	return append(append([]byte{}, codePrefix...), addr.Bytes()...)
}

func storageKey(addr common.Address, slot common.Hash) []byte {
	return append(append(append([]byte{}, storagePrefix...), addr.Bytes()...), slot.Bytes()...)
}

func (s *State) account(addr common.Address) *account {
	acc := &account{Balance: new(uint256.Int)}
	bz := s.get(accountKey(addr))
	if len(bz) == 0 {
		return acc
	}
	if err := rlp.DecodeBytes(bz, acc); err != nil && s.err == nil {
		s.err = err
	}
	if acc.Balance == nil {
		acc.Balance = new(uint256.Int)
	}
	return acc
}

func (s *State) setAccount(addr common.Address, acc *account) {
	bz, err := rlp.EncodeToBytes(acc)
	if err != nil {
		panic(err)
	}
	s.set(accountKey(addr), bz)
}

func (s *State) Balance(addr common.Address) *big.Int {
	return s.account(addr).Balance.ToBig()
}

func (s *State) Nonce(addr common.Address) uint64 {
	return s.account(addr).Nonce
}

func (s *State) Code(addr common.Address) []byte {
	return s.get(codeKey(addr))
}

func (s *State) Storage(addr common.Address, slot common.Hash) common.Hash {
	return common.BytesToHash(s.get(storageKey(addr, slot)))
}

func (s *State) SetNonce(addr common.Address, nonce uint64) {
	acc := s.account(addr)
	acc.Nonce = nonce
	s.setAccount(addr, acc)
}

func (s *State) AddBalance(addr common.Address, amount *uint256.Int) {
	acc := s.account(addr)
	acc.Balance.Add(acc.Balance, amount)
	s.setAccount(addr, acc)
}

// SubBalance debits amount, returning false and leaving the account
// untouched if the balance is short.
func (s *State) SubBalance(addr common.Address, amount *uint256.Int) bool {
	acc := s.account(addr)
	if acc.Balance.Lt(amount) {
		return false
	}
	acc.Balance.Sub(acc.Balance, amount)
	s.setAccount(addr, acc)
	return true
}

func (s *State) SetCode(addr common.Address, code []byte) {
	s.set(codeKey(addr), code)
}

func (s *State) SetStorage(addr common.Address, slot, value common.Hash) {
	s.set(storageKey(addr, slot), value.Bytes())
}

// Writes returns the buffered updates ordered by key, so that applying them
// to a tree is deterministic.
func (s *State) Writes() []store.Write {
	writes := make([]store.Write, 0, len(s.dirty))
	for k, v := range s.dirty {
		writes = append(writes, store.Write{Key: []byte(k), Value: v})
	}
	sort.Slice(writes, func(i, j int) bool {
		return bytes.Compare(writes[i].Key, writes[j].Key) < 0
	})
	return writes
}
