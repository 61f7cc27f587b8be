package state

import (
	"cmp"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// DefaultRating is the ELO assigned to a player that has never been rated.
const DefaultRating uint64 = 1200

// NoAsset is the sentinel asset id meaning "none". Asset ids start at 1.
const NoAsset uint64 = 0

type State struct {
	Height int64 `json:"height"`

	Params Params `json:"params"`

	Accounts    map[string]uint64 `json:"accounts"`
	AccountKeys map[string][]byte `json:"accountKeys,omitempty"` // addr -> ed25519 pubkey (32 bytes)
	NonceMax    map[string]uint64 `json:"nonceMax,omitempty"`    // signer -> last accepted tx.nonce

	NextAssetID  uint64            `json:"nextAssetId"`
	Assets       map[uint64]*Asset `json:"assets"`
	StakedAssets map[uint64]bool   `json:"stakedAssets"`

	Stakes map[string]*StakeEntry `json:"stakes"`

	NextGameID uint64           `json:"nextGameId"`
	Games      map[uint64]*Game `json:"games"`

	Stats map[string]*PlayerStats `json:"stats"`

	Season       uint64                       `json:"season"`
	SeasonPoints map[uint64]map[string]uint64 `json:"seasonPoints"`

	// Platform share of settled prize pools, held in escrow until withdrawn.
	PlatformFees uint64 `json:"platformFees"`
}

func NewState() *State {
	st := &State{}
	st.normalize()
	return st
}

func (s *State) normalize() {
	if s.Accounts == nil {
		s.Accounts = map[string]uint64{}
	}
	if s.AccountKeys == nil {
		s.AccountKeys = map[string][]byte{}
	}
	if s.NonceMax == nil {
		s.NonceMax = map[string]uint64{}
	}
	if s.Assets == nil {
		s.Assets = map[uint64]*Asset{}
	}
	if s.StakedAssets == nil {
		s.StakedAssets = map[uint64]bool{}
	}
	if s.Stakes == nil {
		s.Stakes = map[string]*StakeEntry{}
	}
	if s.Games == nil {
		s.Games = map[uint64]*Game{}
	}
	if s.Stats == nil {
		s.Stats = map[string]*PlayerStats{}
	}
	if s.SeasonPoints == nil {
		s.SeasonPoints = map[uint64]map[string]uint64{}
	}
	if s.NextAssetID == 0 {
		s.NextAssetID = 1
	}
	if s.NextGameID == 0 {
		s.NextGameID = 1
	}
	if s.Season == 0 {
		s.Season = 1
	}
	if s.Params.EntryFee == 0 {
		s.Params.EntryFee = DefaultEntryFee
	}
	if s.Params.MaxDuration == 0 {
		s.Params.MaxDuration = DefaultMaxDuration
	}
}

func Load(home string) (*State, error) {
	path := filepath.Join(home, "state.json")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	st.normalize()
	return &st, nil
}

func (s *State) Save(home string) error {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return fmt.Errorf("mkdir home: %w", err)
	}
	path := filepath.Join(home, "state.json")
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	// Write-then-rename; a crash mid-write leaves the previous file intact.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

// Clone returns a deep copy of state suitable for staged tx execution.
func (s *State) Clone() (*State, error) {
	if s == nil {
		return nil, fmt.Errorf("state is nil")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state clone: %w", err)
	}
	var out State
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode state clone: %w", err)
	}
	out.normalize()
	return &out, nil
}

type kv[K cmp.Ordered, V any] struct {
	Key   K `json:"k"`
	Value V `json:"v"`
}

func sortedKV[K cmp.Ordered, V any](m map[K]V) []kv[K, V] {
	out := make([]kv[K, V], 0, len(m))
	for k, v := range m {
		out = append(out, kv[K, V]{Key: k, Value: v})
	}
	slices.SortFunc(out, func(a, b kv[K, V]) int { return cmp.Compare(a.Key, b.Key) })
	return out
}

func (s *State) AppHash() []byte {
	// encoding/json does NOT guarantee map key order for the hash input, so
	// every map is normalized into a sorted slice first.
	seasons := make([]kv[uint64, []kv[string, uint64]], 0, len(s.SeasonPoints))
	for _, e := range sortedKV(s.SeasonPoints) {
		seasons = append(seasons, kv[uint64, []kv[string, uint64]]{Key: e.Key, Value: sortedKV(e.Value)})
	}

	normalized := struct {
		Height       int64                              `json:"height"`
		Params       Params                             `json:"params"`
		Accounts     []kv[string, uint64]               `json:"accounts"`
		AccountKeys  []kv[string, []byte]               `json:"accountKeys"`
		NonceMax     []kv[string, uint64]               `json:"nonceMax"`
		NextAssetID  uint64                             `json:"nextAssetId"`
		Assets       []kv[uint64, *Asset]               `json:"assets"`
		StakedAssets []kv[uint64, bool]                 `json:"stakedAssets"`
		Stakes       []kv[string, *StakeEntry]          `json:"stakes"`
		NextGameID   uint64                             `json:"nextGameId"`
		Games        []kv[uint64, *Game]                `json:"games"`
		Stats        []kv[string, *PlayerStats]         `json:"stats"`
		Season       uint64                             `json:"season"`
		SeasonPoints []kv[uint64, []kv[string, uint64]] `json:"seasonPoints"`
		PlatformFees uint64                             `json:"platformFees"`
	}{
		Height:       s.Height,
		Params:       s.Params,
		Accounts:     sortedKV(s.Accounts),
		AccountKeys:  sortedKV(s.AccountKeys),
		NonceMax:     sortedKV(s.NonceMax),
		NextAssetID:  s.NextAssetID,
		Assets:       sortedKV(s.Assets),
		StakedAssets: sortedKV(s.StakedAssets),
		Stakes:       sortedKV(s.Stakes),
		NextGameID:   s.NextGameID,
		Games:        sortedKV(s.Games),
		Stats:        sortedKV(s.Stats),
		Season:       s.Season,
		SeasonPoints: seasons,
		PlatformFees: s.PlatformFees,
	}

	b, _ := json.Marshal(normalized)
	sum := sha256.Sum256(b)
	return sum[:]
}

// ---- Bank ----

func (s *State) Balance(addr string) uint64 {
	return s.Accounts[addr]
}

func (s *State) Credit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal > ^uint64(0)-amount {
		return fmt.Errorf("balance overflow: have=%d add=%d", bal, amount)
	}
	s.Accounts[addr] = bal + amount
	return nil
}

func (s *State) Debit(addr string, amount uint64) error {
	bal := s.Accounts[addr]
	if bal < amount {
		return fmt.Errorf("insufficient funds: have=%d need=%d", bal, amount)
	}
	s.Accounts[addr] = bal - amount
	return nil
}

// Transfer moves cash between two bank accounts.
func (s *State) Transfer(from, to string, amount uint64) error {
	if err := s.Debit(from, amount); err != nil {
		return err
	}
	return s.Credit(to, amount)
}
