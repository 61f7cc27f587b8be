package app

import (
	"context"
	"testing"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"battlechess/internal/codec"
	"battlechess/internal/custody"
	"battlechess/internal/state"
)

func TestFinalizeBlockCommitAndReload(t *testing.T) {
	home := t.TempDir()
	a := newTestAppAt(t, home)
	ctx := context.Background()

	alicePub, _ := testEd25519Key("alice")
	txs := [][]byte{
		txBytesSigned(t, codec.TypeAuthRegisterAccount, codec.AuthRegisterAccountTx{Account: "alice", PubKey: alicePub}, "alice"),
		txBytesSigned(t, codec.TypeBankMint, codec.BankMintTx{To: "alice", Amount: testCash}, testAdmin),
		txBytesSigned(t, codec.TypeAssetMint, codec.AssetMintTx{To: "alice", Assets: setSpecs(state.White)}, testAdmin),
		[]byte("not json"),
	}
	blockTime := time.Unix(testNow, 0)
	res, err := a.FinalizeBlock(ctx, &abci.FinalizeBlockRequest{Height: 7, Time: blockTime, Txs: txs})
	require.NoError(t, err)
	require.Len(t, res.TxResults, 4)
	for _, r := range res.TxResults[:3] {
		require.Zero(t, r.Code, r.Log)
	}
	requireCode(t, res.TxResults[3], ErrInvalidRequest)
	require.Equal(t, a.st.AppHash(), res.AppHash)

	ids := make([]uint64, 0, state.SetSize)
	for id := uint64(1); id <= state.SetSize; id++ {
		ids = append(ids, id)
	}
	res, err = a.FinalizeBlock(ctx, &abci.FinalizeBlockRequest{
		Height: 8,
		Time:   blockTime.Add(5 * time.Second),
		Txs:    [][]byte{txBytesSigned(t, codec.TypeStakeAndCreate, createMsg(ids, state.White, testEntry), "alice")},
	})
	require.NoError(t, err)
	require.Zero(t, res.TxResults[0].Code, res.TxResults[0].Log)
	require.Equal(t, testNow+5, a.st.Games[1].CreatedAt)

	_, err = a.Commit(ctx, &abci.CommitRequest{})
	require.NoError(t, err)

	reloaded, err := New(home)
	require.NoError(t, err)
	info, err := reloaded.Info(ctx, &abci.InfoRequest{})
	require.NoError(t, err)
	require.Equal(t, int64(8), info.LastBlockHeight)
	require.Equal(t, res.AppHash, info.LastBlockAppHash)
	require.Equal(t, state.GameCreated, reloaded.st.Games[1].Status)
	require.Equal(t, testEntry, reloaded.st.Balance(custody.EscrowAccount))
	require.Equal(t, testAdmin, reloaded.st.Params.Admin)
}

func TestCheckTx(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	res, err := a.CheckTx(ctx, &abci.CheckTxRequest{Tx: []byte("{")})
	require.NoError(t, err)
	require.Equal(t, ErrInvalidRequest.ABCICode(), res.Code)

	unsigned := mustMarshal(t, map[string]any{"type": codec.TypeCancelGame, "value": codec.CancelGameTx{GameID: 1}})
	res, err = a.CheckTx(ctx, &abci.CheckTxRequest{Tx: unsigned})
	require.NoError(t, err)
	require.Equal(t, ErrUnauthorized.ABCICode(), res.Code)

	signed := txBytesSigned(t, codec.TypeCancelGame, codec.CancelGameTx{GameID: 1}, "alice")
	res, err = a.CheckTx(ctx, &abci.CheckTxRequest{Tx: signed})
	require.NoError(t, err)
	require.Zero(t, res.Code)
}

func TestInitChain_RejectsInvalidGenesis(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = a.InitChain(context.Background(), &abci.InitChainRequest{AppStateBytes: []byte(`{"admin":""}`)})
	require.ErrorContains(t, err, "admin is required")

	_, err = a.InitChain(context.Background(), &abci.InitChainRequest{AppStateBytes: []byte(`not json`)})
	require.ErrorContains(t, err, "invalid app_state")
}

func TestInitChain_AppliesGenesis(t *testing.T) {
	a, err := New(t.TempDir())
	require.NoError(t, err)

	gen := testGenesis()
	gen.Params = &GenesisParams{EntryFee: 5, MaxDuration: 120}
	gen.Accounts = map[string]uint64{"alice": 42}
	res, err := a.InitChain(context.Background(), &abci.InitChainRequest{AppStateBytes: mustMarshal(t, gen)})
	require.NoError(t, err)
	require.Equal(t, a.st.AppHash(), res.AppHash)

	require.Equal(t, state.Params{Admin: testAdmin, EntryFee: 5, MaxDuration: 120}, a.st.Params)
	require.Equal(t, uint64(42), a.st.Balance("alice"))
	require.Len(t, a.st.AccountKeys[testAdmin], 32)
}

func TestMetricsFollowCommittedTransitions(t *testing.T) {
	m := metricsRegistry()
	completed := testutil.ToFloat64(m.games.WithLabelValues(string(state.GameCompleted)))
	prize := testutil.ToFloat64(m.prizePaid)
	rejected := testutil.ToFloat64(m.rejected.WithLabelValues(Codespace, "15"))

	g := setupActiveGame(t, WithMetrics())
	a := g.a
	mustOk(t, deliver(t, a, codec.TypeCompleteGame, completeMsg(g.gameID, g.bobIDs[0]), "alice"))
	requireCode(t, deliver(t, a, codec.TypeCompleteGame, completeMsg(g.gameID, g.bobIDs[1]), "alice"), ErrNotActive)

	require.Equal(t, completed+1, testutil.ToFloat64(m.games.WithLabelValues(string(state.GameCompleted))))
	require.Equal(t, prize+1_800_000, testutil.ToFloat64(m.prizePaid))
	require.Equal(t, rejected+1, testutil.ToFloat64(m.rejected.WithLabelValues(Codespace, "15")))
}

func TestMetricsIgnoreRolledBackTransitions(t *testing.T) {
	m := metricsRegistry()
	var failID uint64
	g := setupActiveGame(t, WithMetrics(), withFlakyCustody(&failID))
	a := g.a
	failID = g.bobIDs[0]
	completed := testutil.ToFloat64(m.games.WithLabelValues(string(state.GameCompleted)))

	requireCode(t, deliver(t, a, codec.TypeCompleteGame, completeMsg(g.gameID, g.bobIDs[0]), "alice"), ErrTransferFailed)
	require.Equal(t, completed, testutil.ToFloat64(m.games.WithLabelValues(string(state.GameCompleted))))
}
