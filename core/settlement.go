package core

import (
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"omenchain/core/types"
)

// Settlement is a pending outbound withdrawal. Withdrawals never leave the
// core directly: they queue here and the host drains the queue per block to
// build the settlement proof.
type Settlement struct {
	ID        [32]byte
	Recipient types.Address
	Amount    *big.Int
	Sequence  uint64
	CreatedAt uint64
}

// Clone returns a deep copy of the settlement record.
func (s *Settlement) Clone() *Settlement {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Amount != nil {
		clone.Amount = new(big.Int).Set(s.Amount)
	}
	return &clone
}

func settlementID(recipient types.Address, amount *big.Int, sequence uint64) [32]byte {
	seq := make([]byte, 8)
	binary.BigEndian.PutUint64(seq, sequence)
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(recipient[:], amount.Bytes(), seq))
	return id
}

func (s *StateDB) settlementList() []*Settlement {
	var list []*Settlement
	if !s.getRecord(keySettlements, &list) {
		return nil
	}
	return list
}

// SettlementAppend queues a withdrawal. The sequence number makes every
// settlement identifier unique even for repeated identical withdrawals.
func (s *StateDB) SettlementAppend(recipient types.Address, amount *big.Int, now int64) (*Settlement, error) {
	sequence := s.getCounter(keySettlementSeq) + 1
	record := &Settlement{
		ID:        settlementID(recipient, amount, sequence),
		Recipient: recipient,
		Amount:    new(big.Int).Set(amount),
		Sequence:  sequence,
		CreatedAt: uint64(now),
	}
	list := append(s.settlementList(), record)
	if err := s.putRecord(keySettlements, list); err != nil {
		return nil, err
	}
	if err := s.setCounter(keySettlementSeq, sequence); err != nil {
		return nil, err
	}
	return record.Clone(), nil
}

// SettlementsPending returns the queued withdrawals without draining them.
func (s *StateDB) SettlementsPending() []*Settlement {
	list := s.settlementList()
	out := make([]*Settlement, 0, len(list))
	for _, rec := range list {
		out = append(out, rec.Clone())
	}
	return out
}

// SettlementFlush drains the queue and returns the drained records exactly
// once. A second flush with no intervening withdrawals returns nothing.
func (s *StateDB) SettlementFlush() ([]*Settlement, error) {
	list := s.settlementList()
	if len(list) == 0 {
		return nil, nil
	}
	if err := s.putRecord(keySettlements, []*Settlement{}); err != nil {
		return nil, err
	}
	return list, nil
}
