package app

import (
	"fmt"
	"sort"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventTypeAccountRegistered     = "AccountRegistered"
	EventTypeBankMinted            = "BankMinted"
	EventTypeAssetsMinted          = "AssetsMinted"
	EventTypeAssetTransferred      = "AssetTransferred"
	EventTypeAssetsStaked          = "AssetsStaked"
	EventTypeAssetsReleased        = "AssetsReleased"
	EventTypeGameCreated           = "GameCreated"
	EventTypeGameJoined            = "GameJoined"
	EventTypeGameCompleted         = "GameCompleted"
	EventTypeRatingUpdated         = "RatingUpdated"
	EventTypeGameCancelled         = "GameCancelled"
	EventTypeSeasonStarted         = "SeasonStarted"
	EventTypePlatformFeesWithdrawn = "PlatformFeesWithdrawn"
	EventTypeParamsUpdated         = "ParamsUpdated"
)

func newEvent(typ string, attrs map[string]string) abci.Event {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return ev
}

func okEvent(typ string, attrs map[string]string) *abci.ExecTxResult {
	return &abci.ExecTxResult{
		Code:   0,
		Events: []abci.Event{newEvent(typ, attrs)},
	}
}

func okEvents(events ...abci.Event) *abci.ExecTxResult {
	return &abci.ExecTxResult{Code: 0, Events: events}
}

func u64(v uint64) string { return fmt.Sprintf("%d", v) }

func i64(v int64) string { return fmt.Sprintf("%d", v) }

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = u64(id)
	}
	return strings.Join(parts, ",")
}
