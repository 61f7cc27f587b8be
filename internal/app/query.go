package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"

	"battlechess/internal/custody"
	"battlechess/internal/state"
)

// Query paths:
//   - /account/<addr>
//   - /asset/<id>
//   - /stake/<addr>
//   - /player/<addr>
//   - /game/<id>
//   - /games/joinable
//   - /season
//   - /season/<id>/points/<addr>
//   - /leaderboard[/<season>]
//   - /params
//   - /fees
func (a *BattleChessApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	v, err := a.query(strings.TrimSpace(req.Path))
	if err != nil {
		codespace, code, msg := errorsmod.ABCIInfo(err, false)
		return &abci.QueryResponse{Code: code, Codespace: codespace, Log: msg, Height: a.st.Height}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &abci.QueryResponse{Code: 0, Value: b, Height: a.st.Height}, nil
}

type accountView struct {
	Addr       string   `json:"addr"`
	Balance    uint64   `json:"balance"`
	Registered bool     `json:"registered"`
	Assets     []uint64 `json:"assets"`
}

type playerView struct {
	Player string `json:"player"`
	state.PlayerStats
	Staked bool `json:"staked"`
}

type seasonView struct {
	Season uint64 `json:"season"`
}

type seasonPointsView struct {
	Season uint64 `json:"season"`
	Player string `json:"player"`
	Points uint64 `json:"points"`
}

type feesView struct {
	PlatformFees  uint64 `json:"platformFees"`
	FeePercent    uint64 `json:"feePercent"`
	EscrowBalance uint64 `json:"escrowBalance"`
}

func parseID(raw, what string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidRequest.Wrapf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func (a *BattleChessApp) query(path string) (any, error) {
	st := a.st
	switch {
	case path == "/games/joinable":
		return st.JoinableGameIDs(), nil

	case path == "/season":
		return seasonView{Season: st.Season}, nil

	case path == "/params":
		return st.Params, nil

	case path == "/fees":
		return feesView{
			PlatformFees:  st.PlatformFees,
			FeePercent:    platformFeePercent,
			EscrowBalance: st.Balance(custody.EscrowAccount),
		}, nil

	case path == "/leaderboard":
		return st.Leaderboard(st.Season, 0), nil

	case strings.HasPrefix(path, "/leaderboard/"):
		season, err := parseID(strings.TrimPrefix(path, "/leaderboard/"), "season")
		if err != nil {
			return nil, err
		}
		return st.Leaderboard(season, 0), nil

	case strings.HasPrefix(path, "/season/"):
		// /season/<id>/points/<addr>
		parts := strings.SplitN(strings.TrimPrefix(path, "/season/"), "/", 3)
		if len(parts) != 3 || parts[1] != "points" || parts[2] == "" {
			return nil, ErrInvalidRequest.Wrapf("unknown query path %q", path)
		}
		season, err := parseID(parts[0], "season")
		if err != nil {
			return nil, err
		}
		return seasonPointsView{Season: season, Player: parts[2], Points: st.SeasonPointsOf(season, parts[2])}, nil

	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		return accountView{
			Addr:       addr,
			Balance:    st.Balance(addr),
			Registered: len(st.AccountKeys[addr]) != 0,
			Assets:     st.AssetsOwnedBy(addr),
		}, nil

	case strings.HasPrefix(path, "/asset/"):
		id, err := parseID(strings.TrimPrefix(path, "/asset/"), "asset")
		if err != nil {
			return nil, err
		}
		asset := st.Assets[id]
		if asset == nil {
			return nil, ErrInvalidRequest.Wrapf("asset %d not found", id)
		}
		return asset, nil

	case strings.HasPrefix(path, "/stake/"):
		addr := strings.TrimPrefix(path, "/stake/")
		if e := st.ActiveStake(addr); e != nil {
			return e, nil
		}
		return state.StakeEntry{AssetIDs: []uint64{}}, nil

	case strings.HasPrefix(path, "/player/"):
		addr := strings.TrimPrefix(path, "/player/")
		v := playerView{Player: addr, PlayerStats: state.PlayerStats{Elo: state.DefaultRating}}
		if ps := st.Stats[addr]; ps != nil {
			v.PlayerStats = *ps
		}
		v.Staked = st.ActiveStake(addr) != nil
		return v, nil

	case strings.HasPrefix(path, "/game/"):
		id, err := parseID(strings.TrimPrefix(path, "/game/"), "game")
		if err != nil {
			return nil, err
		}
		g := st.Games[id]
		if g == nil {
			return nil, ErrGameNotFound.Wrapf("game %d", id)
		}
		return g, nil

	default:
		return nil, ErrInvalidRequest.Wrapf("unknown query path %q", path)
	}
}
