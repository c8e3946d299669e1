package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/rlp"

	"omenchain/core/types"
	"omenchain/native/common"
	"omenchain/native/launchpad"
	"omenchain/native/market"
	"omenchain/storage"
)

// Key prefixes for the state records. Every record is RLP-encoded under a
// prefixed key so backends stay schema-free.
var (
	prefixAccount    = []byte("acct/")
	prefixPosition   = []byte("pos/")
	prefixProject    = []byte("project/")
	prefixInvestment = []byte("invest/")
	keyMarket        = []byte("market/state")
	keyProjectCount  = []byte("meta/projects")
	keyPlayerCount   = []byte("meta/players")
	keyCounter       = []byte("meta/counter")
	keySettlements   = []byte("meta/settlements")
	keySettlementSeq = []byte("meta/settlementseq")
)

func accountKey(addr types.Address) []byte {
	return append(append([]byte{}, prefixAccount...), addr[:]...)
}

func positionKey(addr types.Address) []byte {
	return append(append([]byte{}, prefixPosition...), addr[:]...)
}

func projectKey(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return append(append([]byte{}, prefixProject...), buf...)
}

func investmentKey(id uint64, addr types.Address) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	key := append(append([]byte{}, prefixInvestment...), buf...)
	key = append(key, '/')
	return append(key, addr[:]...)
}

// StateDB is the journaled state manager every engine runs against. Reads
// fall through to the backing store; writes buffer in an overlay until
// Commit. The processor snapshots around every command, so a failed command
// leaves the store byte-identical.
type StateDB struct {
	mu      sync.RWMutex
	db      storage.Database
	overlay map[string][]byte
	readErr error
}

// NewStateDB wraps a key-value backend in the overlay manager.
func NewStateDB(db storage.Database) *StateDB {
	return &StateDB{db: db, overlay: make(map[string][]byte)}
}

func (s *StateDB) rawGet(key []byte) ([]byte, bool) {
	s.mu.RLock()
	if buf, ok := s.overlay[string(key)]; ok {
		s.mu.RUnlock()
		return buf, true
	}
	s.mu.RUnlock()
	buf, err := s.db.Get(key)
	if err != nil {
		// A backend failure must not read as a missing record: the poisoned
		// transition is blocked at Commit instead.
		if !errors.Is(err, storage.ErrNotFound) {
			s.mu.Lock()
			if s.readErr == nil {
				s.readErr = err
			}
			s.mu.Unlock()
		}
		return nil, false
	}
	return buf, true
}

func (s *StateDB) rawPut(key []byte, value []byte) {
	s.mu.Lock()
	s.overlay[string(key)] = value
	s.mu.Unlock()
}

// Commit flushes every buffered write to the backing store and clears the
// overlay. A transition that saw a backend read failure never commits; its
// writes may have been derived from phantom-empty records.
func (s *StateDB) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return fmt.Errorf("statedb: backend read failed during transition: %w", s.readErr)
	}
	for key, value := range s.overlay {
		if err := s.db.Put([]byte(key), value); err != nil {
			return err
		}
	}
	s.overlay = make(map[string][]byte)
	return nil
}

// Revert discards every write buffered since the last Commit, along with any
// recorded backend read failure, so the next transition starts clean.
func (s *StateDB) Revert() {
	s.mu.Lock()
	s.overlay = make(map[string][]byte)
	s.readErr = nil
	s.mu.Unlock()
}

// Pending reports the number of uncommitted writes. Test helper.
func (s *StateDB) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overlay)
}

func (s *StateDB) putRecord(key []byte, record interface{}) error {
	buf, err := rlp.EncodeToBytes(record)
	if err != nil {
		return err
	}
	s.rawPut(key, buf)
	return nil
}

func (s *StateDB) getRecord(key []byte, out interface{}) bool {
	buf, ok := s.rawGet(key)
	if !ok {
		return false
	}
	return rlp.DecodeBytes(buf, out) == nil
}

func (s *StateDB) getCounter(key []byte) uint64 {
	var n uint64
	if !s.getRecord(key, &n) {
		return 0
	}
	return n
}

func (s *StateDB) setCounter(key []byte, n uint64) error {
	return s.putRecord(key, n)
}

// --- accounts ---

type storedAccount struct {
	Balance   *big.Int
	CreatedAt uint64
}

// HasAccount reports whether a player has been installed.
func (s *StateDB) HasAccount(addr types.Address) bool {
	_, ok := s.rawGet(accountKey(addr))
	return ok
}

// GetAccount loads an account; missing accounts return nil without error so
// engines can normalise with EnsureAccount.
func (s *StateDB) GetAccount(addr types.Address) (*types.Account, error) {
	var rec storedAccount
	if !s.getRecord(accountKey(addr), &rec) {
		return nil, nil
	}
	return &types.Account{Balance: rec.Balance, CreatedAt: int64(rec.CreatedAt)}, nil
}

// PutAccount persists an account record.
func (s *StateDB) PutAccount(addr types.Address, account *types.Account) error {
	account = types.EnsureAccount(account)
	return s.putRecord(accountKey(addr), &storedAccount{
		Balance:   account.Balance,
		CreatedAt: uint64(account.CreatedAt),
	})
}

// PlayerCount reports how many accounts have been installed.
func (s *StateDB) PlayerCount() uint64 { return s.getCounter(keyPlayerCount) }

// SetPlayerCount persists the installed-player counter.
func (s *StateDB) SetPlayerCount(n uint64) error { return s.setCounter(keyPlayerCount, n) }

// --- market ---

type storedMarket struct {
	Title              string
	YesLiquidity       *big.Int
	NoLiquidity        *big.Int
	Resolved           bool
	Outcome            bool
	TotalVolume        *big.Int
	TotalFeesCollected *big.Int
	StartTime          uint64
	EndTime            uint64
}

// MarketGet loads the singleton market aggregate.
func (s *StateDB) MarketGet() (*market.Market, bool) {
	var rec storedMarket
	if !s.getRecord(keyMarket, &rec) {
		return nil, false
	}
	return &market.Market{
		Title:              rec.Title,
		YesLiquidity:       rec.YesLiquidity,
		NoLiquidity:        rec.NoLiquidity,
		Resolved:           rec.Resolved,
		Outcome:            rec.Outcome,
		TotalVolume:        rec.TotalVolume,
		TotalFeesCollected: rec.TotalFeesCollected,
		StartTime:          int64(rec.StartTime),
		EndTime:            int64(rec.EndTime),
	}, true
}

// MarketPut persists the market aggregate.
func (s *StateDB) MarketPut(m *market.Market) error {
	return s.putRecord(keyMarket, &storedMarket{
		Title:              m.Title,
		YesLiquidity:       m.YesLiquidity,
		NoLiquidity:        m.NoLiquidity,
		Resolved:           m.Resolved,
		Outcome:            m.Outcome,
		TotalVolume:        m.TotalVolume,
		TotalFeesCollected: m.TotalFeesCollected,
		StartTime:          uint64(m.StartTime),
		EndTime:            uint64(m.EndTime),
	})
}

type storedPosition struct {
	YesShares *big.Int
	NoShares  *big.Int
	Claimed   bool
}

// PositionGet loads a user's market position.
func (s *StateDB) PositionGet(addr types.Address) (*market.Position, bool) {
	var rec storedPosition
	if !s.getRecord(positionKey(addr), &rec) {
		return nil, false
	}
	return &market.Position{YesShares: rec.YesShares, NoShares: rec.NoShares, Claimed: rec.Claimed}, true
}

// PositionPut persists a user's market position.
func (s *StateDB) PositionPut(addr types.Address, pos *market.Position) error {
	return s.putRecord(positionKey(addr), &storedPosition{
		YesShares: pos.YesShares,
		NoShares:  pos.NoShares,
		Claimed:   pos.Claimed,
	})
}

// --- launchpad ---

type storedProject struct {
	ID               uint64
	Name             string
	TokenName        string
	TokenSymbol      string
	TargetAmount     *big.Int
	TokenSupply      *big.Int
	MaxIndividualCap *big.Int
	StartTime        uint64
	EndTime          uint64
	TotalRaised      *big.Int
	InvestorCount    uint64
	Phase            byte
	Admin            types.Address
	CreatedAt        uint64
}

// ProjectGet loads a launchpad project by id.
func (s *StateDB) ProjectGet(id uint64) (*launchpad.Project, bool) {
	var rec storedProject
	if !s.getRecord(projectKey(id), &rec) {
		return nil, false
	}
	return &launchpad.Project{
		ID:               rec.ID,
		Name:             rec.Name,
		TokenName:        rec.TokenName,
		TokenSymbol:      rec.TokenSymbol,
		TargetAmount:     rec.TargetAmount,
		TokenSupply:      rec.TokenSupply,
		MaxIndividualCap: rec.MaxIndividualCap,
		StartTime:        int64(rec.StartTime),
		EndTime:          int64(rec.EndTime),
		TotalRaised:      rec.TotalRaised,
		InvestorCount:    rec.InvestorCount,
		Phase:            common.Phase(rec.Phase),
		Admin:            rec.Admin,
		CreatedAt:        int64(rec.CreatedAt),
	}, true
}

// ProjectPut persists a launchpad project.
func (s *StateDB) ProjectPut(p *launchpad.Project) error {
	return s.putRecord(projectKey(p.ID), &storedProject{
		ID:               p.ID,
		Name:             p.Name,
		TokenName:        p.TokenName,
		TokenSymbol:      p.TokenSymbol,
		TargetAmount:     p.TargetAmount,
		TokenSupply:      p.TokenSupply,
		MaxIndividualCap: p.MaxIndividualCap,
		StartTime:        uint64(p.StartTime),
		EndTime:          uint64(p.EndTime),
		TotalRaised:      p.TotalRaised,
		InvestorCount:    p.InvestorCount,
		Phase:            byte(p.Phase),
		Admin:            p.Admin,
		CreatedAt:        uint64(p.CreatedAt),
	})
}

// ProjectCount reports how many projects have been created.
func (s *StateDB) ProjectCount() uint64 { return s.getCounter(keyProjectCount) }

// SetProjectCount persists the project counter.
func (s *StateDB) SetProjectCount(n uint64) error { return s.setCounter(keyProjectCount, n) }

type storedInvestment struct {
	User            types.Address
	ProjectID       uint64
	Amount          *big.Int
	TokensWithdrawn bool
	RefundWithdrawn bool
	InvestedAt      uint64
}

// InvestmentGet loads a user's cumulative stake in a project.
func (s *StateDB) InvestmentGet(projectID uint64, addr types.Address) (*launchpad.Investment, bool) {
	var rec storedInvestment
	if !s.getRecord(investmentKey(projectID, addr), &rec) {
		return nil, false
	}
	return &launchpad.Investment{
		User:            rec.User,
		ProjectID:       rec.ProjectID,
		Amount:          rec.Amount,
		TokensWithdrawn: rec.TokensWithdrawn,
		RefundWithdrawn: rec.RefundWithdrawn,
		InvestedAt:      int64(rec.InvestedAt),
	}, true
}

// InvestmentPut persists a user's stake.
func (s *StateDB) InvestmentPut(inv *launchpad.Investment) error {
	return s.putRecord(investmentKey(inv.ProjectID, inv.User), &storedInvestment{
		User:            inv.User,
		ProjectID:       inv.ProjectID,
		Amount:          inv.Amount,
		TokensWithdrawn: inv.TokensWithdrawn,
		RefundWithdrawn: inv.RefundWithdrawn,
		InvestedAt:      uint64(inv.InvestedAt),
	})
}

// --- meta ---

// Counter returns the logical time, advanced only by Tick commands.
func (s *StateDB) Counter() uint64 { return s.getCounter(keyCounter) }

// SetCounter persists the logical time.
func (s *StateDB) SetCounter(n uint64) error { return s.setCounter(keyCounter, n) }
