package state

import (
	"fmt"
	"sort"
)

const (
	DefaultEntryFee    uint64 = 1_000_000
	DefaultMaxDuration uint64 = 7200 // seconds

	// SetSize is the number of pieces in one matched-color stake.
	SetSize = 16
)

type Params struct {
	Admin       string `json:"admin,omitempty"`
	EntryFee    uint64 `json:"entryFee"`
	MaxDuration uint64 `json:"maxDuration"` // seconds
}

// ---- Assets ----

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Valid() bool { return c == White || c == Black }

type Piece string

const (
	Pawn   Piece = "pawn"
	Knight Piece = "knight"
	Bishop Piece = "bishop"
	Rook   Piece = "rook"
	Queen  Piece = "queen"
	King   Piece = "king"
)

// SetComposition is how many pieces of each kind make up one complete color set.
var SetComposition = map[Piece]int{
	Pawn:   8,
	Knight: 2,
	Bishop: 2,
	Rook:   2,
	Queen:  1,
	King:   1,
}

func (p Piece) Valid() bool {
	_, ok := SetComposition[p]
	return ok
}

type Asset struct {
	ID    uint64 `json:"id"`
	Owner string `json:"owner"`
	Color Color  `json:"color"`
	Piece Piece  `json:"piece"`
}

func (s *State) MintAsset(owner string, color Color, piece Piece) (*Asset, error) {
	if owner == "" {
		return nil, fmt.Errorf("missing owner")
	}
	if !color.Valid() {
		return nil, fmt.Errorf("invalid color %q", color)
	}
	if !piece.Valid() {
		return nil, fmt.Errorf("invalid piece %q", piece)
	}
	id := s.NextAssetID
	s.NextAssetID++
	a := &Asset{ID: id, Owner: owner, Color: color, Piece: piece}
	s.Assets[id] = a
	return a, nil
}

// AssetsOwnedBy returns the ids owned by addr in ascending order.
func (s *State) AssetsOwnedBy(addr string) []uint64 {
	ids := []uint64{}
	for id, a := range s.Assets {
		if a.Owner == addr {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ---- Stakes ----

type StakeEntry struct {
	IsStaked bool     `json:"isStaked"`
	Color    Color    `json:"color"`
	AssetIDs []uint64 `json:"assetIds"`
	StakedAt int64    `json:"stakedAt"` // unix seconds
	GameID   uint64   `json:"gameId"`
}

// ActiveStake returns the player's stake entry, or nil when the player is not staked.
func (s *State) ActiveStake(player string) *StakeEntry {
	e := s.Stakes[player]
	if e == nil || !e.IsStaked {
		return nil
	}
	return e
}

// ---- Games ----

type GameStatus string

const (
	GameCreated   GameStatus = "created"
	GameActive    GameStatus = "active"
	GameCompleted GameStatus = "completed"
	GameCancelled GameStatus = "cancelled"
	// GameDisputed is declared for forward compatibility; nothing transitions into it yet.
	GameDisputed GameStatus = "disputed"
)

type Game struct {
	ID uint64 `json:"id"`

	Player1      string `json:"player1"`
	Player2      string `json:"player2,omitempty"`
	Player1Color Color  `json:"player1Color"`
	Player2Color Color  `json:"player2Color,omitempty"`

	// Cash contributed by each side; PrizePool is their sum until settlement.
	Player1Amount uint64 `json:"player1Amount"`
	Player2Amount uint64 `json:"player2Amount,omitempty"`
	PrizePool     uint64 `json:"prizePool"`

	// Time control is consumed by the off-chain engine and is not enforced here.
	TimePerPlayer uint64 `json:"timePerPlayer"` // seconds
	TimeIncrement uint64 `json:"timeIncrement"` // seconds
	MaxDuration   uint64 `json:"maxDuration"`   // seconds

	CreatedAt int64 `json:"createdAt"`
	StartTime int64 `json:"startTime,omitempty"` // 0 means unset
	Deadline  int64 `json:"deadline,omitempty"`  // advisory StartTime+MaxDuration; nothing expires games
	EndTime   int64 `json:"endTime,omitempty"`

	Status         GameStatus `json:"status"`
	Winner         string     `json:"winner,omitempty"`
	ClaimedAssetID uint64     `json:"claimedAssetId,omitempty"`
	ResultDigest   []byte     `json:"resultDigest,omitempty"` // 32 bytes once completed
}

// Joinable reports whether a second player may still join.
func (g *Game) Joinable() bool {
	return g != nil && g.Status == GameCreated && g.Player2 == ""
}

// Opponent returns the other participant, or "" when addr is not seated.
func (g *Game) Opponent(addr string) string {
	switch {
	case addr == "":
		return ""
	case addr == g.Player1:
		return g.Player2
	case addr == g.Player2:
		return g.Player1
	default:
		return ""
	}
}

// JoinableGameIDs lists games waiting for a second player in ascending id order.
func (s *State) JoinableGameIDs() []uint64 {
	ids := []uint64{}
	for id, g := range s.Games {
		if g.Joinable() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ---- Player stats / seasons ----

type PlayerStats struct {
	Elo           uint64 `json:"elo"`
	Wins          uint64 `json:"wins"`
	Losses        uint64 `json:"losses"`
	Draws         uint64 `json:"draws"`
	TotalWon      uint64 `json:"totalWon"`
	TotalLost     uint64 `json:"totalLost"`
	MatchesPlayed uint64 `json:"matchesPlayed"`
	Points        uint64 `json:"points"`
}

// Rating returns the player's ELO, defaulting to DefaultRating for players
// with no stats record. A rating that has floored at 0 stays 0.
func (s *State) Rating(player string) uint64 {
	ps := s.Stats[player]
	if ps == nil {
		return DefaultRating
	}
	return ps.Elo
}

// StatsFor returns the stats record for player, creating it lazily.
func (s *State) StatsFor(player string) *PlayerStats {
	ps := s.Stats[player]
	if ps == nil {
		ps = &PlayerStats{Elo: DefaultRating}
		s.Stats[player] = ps
	}
	return ps
}

func (s *State) SeasonPointsOf(season uint64, player string) uint64 {
	return s.SeasonPoints[season][player]
}

func (s *State) AddSeasonPoints(season uint64, player string, pts uint64) error {
	m := s.SeasonPoints[season]
	if m == nil {
		m = map[string]uint64{}
		s.SeasonPoints[season] = m
	}
	cur := m[player]
	if cur > ^uint64(0)-pts {
		return fmt.Errorf("season points overflow: have=%d add=%d", cur, pts)
	}
	m[player] = cur + pts
	return nil
}

type LeaderboardEntry struct {
	Player string `json:"player"`
	Points uint64 `json:"points"`
}

// Leaderboard ranks a season by points descending, ties broken by address.
func (s *State) Leaderboard(season uint64, limit int) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(s.SeasonPoints[season]))
	for p, pts := range s.SeasonPoints[season] {
		out = append(out, LeaderboardEntry{Player: p, Points: pts})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Player < out[j].Player
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
