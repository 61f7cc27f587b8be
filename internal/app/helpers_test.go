package app

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	errorsmod "cosmossdk.io/errors"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/stretchr/testify/require"

	"battlechess/internal/codec"
	"battlechess/internal/state"
)

const (
	testHeight  = int64(1)
	testNow     = int64(1_700_000_000)
	testAdmin   = "admin"
	testCash    = uint64(10_000_000)
	testEntry   = state.DefaultEntryFee
	testTimeCtl = uint64(600)
)

// Nonces only need to increase per signer; one process-wide counter does that.
var testNonce atomic.Uint64

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func testEd25519Key(id string) (ed25519.PublicKey, ed25519.PrivateKey) {
	seed := sha256.Sum256([]byte("battlechess-test-key:" + id))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return priv.Public().(ed25519.PublicKey), priv
}

func txBytesSigned(t *testing.T, typ string, value any, signer string) []byte {
	t.Helper()
	_, priv := testEd25519Key(signer)
	valueBytes := mustMarshal(t, value)
	nonce := strconv.FormatUint(testNonce.Add(1), 10)
	sig := ed25519.Sign(priv, txAuthSignBytesV0(typ, valueBytes, nonce, signer))
	return mustMarshal(t, codec.TxEnvelope{
		Type:   typ,
		Value:  valueBytes,
		Nonce:  nonce,
		Signer: signer,
		Sig:    sig,
	})
}

func findEvent(events []abci.Event, typ string) *abci.Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func attr(ev *abci.Event, key string) string {
	if ev == nil {
		return ""
	}
	for _, a := range ev.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func parseU64(t *testing.T, s string) uint64 {
	t.Helper()
	n, err := strconv.ParseUint(s, 10, 64)
	require.NoError(t, err, "parse uint64 %q", s)
	return n
}

func parseIDs(t *testing.T, s string) []uint64 {
	t.Helper()
	var ids []uint64
	for _, p := range strings.Split(s, ",") {
		ids = append(ids, parseU64(t, p))
	}
	return ids
}

func testGenesis() Genesis {
	pub, _ := testEd25519Key(testAdmin)
	return Genesis{
		Admin:       testAdmin,
		AccountKeys: map[string][]byte{testAdmin: pub},
	}
}

func newTestAppAt(t *testing.T, home string, opts ...Option) *BattleChessApp {
	t.Helper()
	a, err := New(home, opts...)
	require.NoError(t, err)
	_, err = a.InitChain(context.Background(), &abci.InitChainRequest{
		AppStateBytes: mustMarshal(t, testGenesis()),
	})
	require.NoError(t, err)
	return a
}

func newTestApp(t *testing.T, opts ...Option) *BattleChessApp {
	t.Helper()
	return newTestAppAt(t, t.TempDir(), opts...)
}

func deliver(t *testing.T, a *BattleChessApp, typ string, value any, signer string) *abci.ExecTxResult {
	t.Helper()
	return a.deliverTx(txBytesSigned(t, typ, value, signer), testHeight, testNow)
}

func mustOk(t *testing.T, res *abci.ExecTxResult) *abci.ExecTxResult {
	t.Helper()
	require.Zero(t, res.Code, "expected ok, got codespace=%s code=%d log=%q", res.Codespace, res.Code, res.Log)
	return res
}

func requireCode(t *testing.T, res *abci.ExecTxResult, want *errorsmod.Error) {
	t.Helper()
	require.Equal(t, want.Codespace(), res.Codespace, "log=%q", res.Log)
	require.Equal(t, want.ABCICode(), res.Code, "log=%q", res.Log)
}

func registerTestAccount(t *testing.T, a *BattleChessApp, id string) {
	t.Helper()
	pub, _ := testEd25519Key(id)
	mustOk(t, deliver(t, a, codec.TypeAuthRegisterAccount, codec.AuthRegisterAccountTx{Account: id, PubKey: pub}, id))
}

func mintTestTokens(t *testing.T, a *BattleChessApp, to string, amount uint64) {
	t.Helper()
	mustOk(t, deliver(t, a, codec.TypeBankMint, codec.BankMintTx{To: to, Amount: amount}, testAdmin))
}

func mintTestAssets(t *testing.T, a *BattleChessApp, to string, specs []codec.AssetSpec) []uint64 {
	t.Helper()
	res := mustOk(t, deliver(t, a, codec.TypeAssetMint, codec.AssetMintTx{To: to, Assets: specs}, testAdmin))
	return parseIDs(t, attr(findEvent(res.Events, EventTypeAssetsMinted), "assetIds"))
}

// setSpecs lists one complete set, king first.
func setSpecs(color state.Color) []codec.AssetSpec {
	pieces := []state.Piece{
		state.King, state.Queen,
		state.Rook, state.Rook,
		state.Bishop, state.Bishop,
		state.Knight, state.Knight,
	}
	for i := 0; i < 8; i++ {
		pieces = append(pieces, state.Pawn)
	}
	specs := make([]codec.AssetSpec, len(pieces))
	for i, p := range pieces {
		specs[i] = codec.AssetSpec{Color: string(color), Piece: string(p)}
	}
	return specs
}

func mintTestSet(t *testing.T, a *BattleChessApp, to string, color state.Color) []uint64 {
	t.Helper()
	ids := mintTestAssets(t, a, to, setSpecs(color))
	require.Len(t, ids, state.SetSize)
	return ids
}

// newTestPlayer registers id, funds it and mints one complete set of color.
func newTestPlayer(t *testing.T, a *BattleChessApp, id string, color state.Color) []uint64 {
	t.Helper()
	registerTestAccount(t, a, id)
	mintTestTokens(t, a, id, testCash)
	return mintTestSet(t, a, id, color)
}

func createMsg(ids []uint64, color state.Color, amount uint64) codec.StakeAndCreateGameTx {
	return codec.StakeAndCreateGameTx{
		AssetIDs:      ids,
		Color:         string(color),
		TimePerPlayer: testTimeCtl,
		TimeIncrement: 5,
		Amount:        amount,
	}
}

func createTestGame(t *testing.T, a *BattleChessApp, player string, ids []uint64, color state.Color) uint64 {
	t.Helper()
	res := mustOk(t, deliver(t, a, codec.TypeStakeAndCreate, createMsg(ids, color, testEntry), player))
	return parseU64(t, attr(findEvent(res.Events, EventTypeGameCreated), "gameId"))
}

func joinMsg(gameID uint64, ids []uint64, color state.Color, amount uint64) codec.StakeAndJoinGameTx {
	return codec.StakeAndJoinGameTx{GameID: gameID, AssetIDs: ids, Color: string(color), Amount: amount}
}

func testDigest() []byte {
	d := sha256.Sum256([]byte("1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7#"))
	return d[:]
}

type activeGame struct {
	a        *BattleChessApp
	gameID   uint64
	aliceIDs []uint64
	bobIDs   []uint64
}

// setupActiveGame seats alice (white, creator) and bob (black) in an active
// game with equal contributions.
func setupActiveGame(t *testing.T, opts ...Option) activeGame {
	t.Helper()
	a := newTestApp(t, opts...)
	aliceIDs := newTestPlayer(t, a, "alice", state.White)
	bobIDs := newTestPlayer(t, a, "bob", state.Black)
	gameID := createTestGame(t, a, "alice", aliceIDs, state.White)
	mustOk(t, deliver(t, a, codec.TypeStakeAndJoin, joinMsg(gameID, bobIDs, state.Black, testEntry), "bob"))
	return activeGame{a: a, gameID: gameID, aliceIDs: aliceIDs, bobIDs: bobIDs}
}

func completeMsg(gameID, claimed uint64) codec.CompleteGameTx {
	return codec.CompleteGameTx{GameID: gameID, ResultDigest: testDigest(), ClaimedAssetID: claimed}
}

func queryJSON(t *testing.T, a *BattleChessApp, path string, out any) {
	t.Helper()
	res, err := a.Query(context.Background(), &abci.QueryRequest{Path: path})
	require.NoError(t, err)
	require.Zero(t, res.Code, "query %s: %s", path, res.Log)
	require.NoError(t, json.Unmarshal(res.Value, out))
}

func snapshotState(t *testing.T, a *BattleChessApp) *state.State {
	t.Helper()
	snap, err := a.st.Clone()
	require.NoError(t, err)
	return snap
}

// requireOnlyNonceSpent asserts a rejected tx left nothing behind but the
// signer's advanced nonce.
func requireOnlyNonceSpent(t *testing.T, a *BattleChessApp, before *state.State, signer string) {
	t.Helper()
	require.Greater(t, a.st.NonceMax[signer], before.NonceMax[signer])
	before.NonceMax[signer] = a.st.NonceMax[signer]
	require.Equal(t, before.AppHash(), a.st.AppHash())
}
