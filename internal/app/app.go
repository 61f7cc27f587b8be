package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	abci "github.com/cometbft/cometbft/abci/types"

	"battlechess/internal/codec"
	"battlechess/internal/custody"
	"battlechess/internal/state"
)

const (
	AppVersion uint64 = 1
)

// CustodyFactory binds an AssetCustody to the staged state of a single tx.
type CustodyFactory func(st *state.State) custody.AssetCustody

type BattleChessApp struct {
	*abci.BaseApplication

	home       string
	logger     log.Logger
	metrics    *appMetrics
	newCustody CustodyFactory
	guard      *reentrancyGuard

	mu       sync.Mutex
	st       *state.State
	lastHash []byte
	inFlight bool
}

type Option func(*BattleChessApp)

func WithLogger(l log.Logger) Option {
	return func(a *BattleChessApp) { a.logger = l }
}

// WithCustody replaces the built-in asset ledger.
func WithCustody(f CustodyFactory) Option {
	return func(a *BattleChessApp) { a.newCustody = f }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics() Option {
	return func(a *BattleChessApp) { a.metrics = metricsRegistry() }
}

func New(home string, opts ...Option) (*BattleChessApp, error) {
	appHome := filepath.Join(home, "app")
	st, err := state.Load(appHome)
	if err != nil {
		return nil, err
	}
	a := &BattleChessApp{
		BaseApplication: abci.NewBaseApplication(),
		home:            home,
		logger:          log.NewNopLogger(),
		newCustody:      func(st *state.State) custody.AssetCustody { return custody.NewLedger(st) },
		guard:           newReentrancyGuard(),
		st:              st,
		lastHash:        st.AppHash(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("module", "battlechess")
	return a, nil
}

func (a *BattleChessApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &abci.InfoResponse{
		Data:             "BattleChess (v0)",
		Version:          "v0",
		AppVersion:       AppVersion,
		LastBlockHeight:  a.st.Height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *BattleChessApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	env, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		codespace, code, msg := errorsmod.ABCIInfo(ErrInvalidRequest.Wrap(err.Error()), false)
		return &abci.CheckTxResponse{Code: code, Codespace: codespace, Log: msg}, nil
	}
	// Signatures are verified against state in FinalizeBlock; only shape is checked here.
	if err := requireSignedEnvelope(env); err != nil {
		codespace, code, msg := errorsmod.ABCIInfo(err, false)
		return &abci.CheckTxResponse{Code: code, Codespace: codespace, Log: msg}, nil
	}
	return &abci.CheckTxResponse{Code: 0}, nil
}

func (a *BattleChessApp) InitChain(_ context.Context, req *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(req.AppStateBytes) == 0 {
		return &abci.InitChainResponse{}, nil
	}
	var gen Genesis
	if err := json.Unmarshal(req.AppStateBytes, &gen); err != nil {
		return nil, fmt.Errorf("invalid app_state: %w", err)
	}
	if err := gen.apply(a.st); err != nil {
		return nil, err
	}
	a.lastHash = a.st.AppHash()
	a.logger.Info("genesis applied", "admin", a.st.Params.Admin, "accounts", len(gen.Accounts))
	return &abci.InitChainResponse{AppHash: a.lastHash}, nil
}

func (a *BattleChessApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Height = req.Height
	nowUnix := req.Time.Unix()

	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		res := a.deliverTx(txBytes, req.Height, nowUnix)
		txResults = append(txResults, res)
	}

	a.lastHash = a.st.AppHash()
	a.metrics.observeState(a.st.Height, a.st.Season)
	a.logger.Debug("finalized block", "height", req.Height, "txs", len(req.Txs))

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *BattleChessApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	appHome := filepath.Join(a.home, "app")
	if err := a.st.Save(appHome); err != nil {
		a.logger.Error("failed to persist state", "height", a.st.Height, "err", err)
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

// txContext is the staged view a single tx executes against. Nothing in it is
// visible outside the tx until deliverTx commits st.
type txContext struct {
	st      *state.State
	custody custody.AssetCustody
	height  int64
	now     int64

	// nonce is the signer nonce this tx consumed, 0 until it authenticated.
	nonce uint64

	// moves journals every custody transfer the tx applied, oldest first.
	moves []assetMove

	onCommit []func()
}

type assetMove struct {
	assetID  uint64
	from, to string
}

func (tc *txContext) afterCommit(f func()) {
	tc.onCommit = append(tc.onCommit, f)
}

// transfer moves an asset through custody and journals the move.
func (tc *txContext) transfer(from, to string, assetID uint64) error {
	if err := tc.custody.Transfer(from, to, assetID); err != nil {
		return err
	}
	tc.moves = append(tc.moves, assetMove{assetID: assetID, from: from, to: to})
	return nil
}

// undoTransfers reverses every journaled move, newest first. Custody that
// lives outside chain state is not reverted by discarding the staged copy.
func (tc *txContext) undoTransfers() error {
	var errs []error
	for i := len(tc.moves) - 1; i >= 0; i-- {
		m := tc.moves[i]
		if err := tc.custody.Transfer(m.to, m.from, m.assetID); err != nil {
			errs = append(errs, ErrInvariant.Wrapf("rollback asset %d: %v", m.assetID, err))
		}
	}
	tc.moves = nil
	return errors.Join(errs...)
}

// useNonce consumes env's nonce and remembers it for deliverTx.
func (tc *txContext) useNonce(env codec.TxEnvelope) error {
	if err := consumeNonce(tc.st, env); err != nil {
		return err
	}
	tc.nonce = tc.st.NonceMax[env.Signer]
	return nil
}

func (a *BattleChessApp) deliverTx(txBytes []byte, height int64, nowUnix int64) *abci.ExecTxResult {
	// Custody may call back into the app while a tx is executing. The staged
	// state of the outer tx would overwrite anything a nested tx committed.
	if a.inFlight {
		return a.reject(ErrReentrant.Wrap("nested tx execution"), "")
	}
	a.inFlight = true
	defer func() { a.inFlight = false }()

	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return a.reject(ErrInvalidRequest.Wrap(err.Error()), "")
	}

	staged, err := a.st.Clone()
	if err != nil {
		return a.reject(ErrInvariant.Wrapf("stage state: %v", err), env.Type)
	}
	tc := &txContext{
		st:      staged,
		custody: a.newCustody(staged),
		height:  height,
		now:     nowUnix,
	}

	res, err := a.execTx(tc, env)
	if err != nil {
		err = transferFailed(err, tc.undoTransfers())
		// Authenticated txs spend their nonce even when rejected.
		if tc.nonce != 0 {
			a.st.NonceMax[env.Signer] = tc.nonce
		}
		return a.reject(err, env.Type)
	}

	a.st = staged
	for _, f := range tc.onCommit {
		f()
	}
	return res
}

func (a *BattleChessApp) reject(err error, txType string) *abci.ExecTxResult {
	codespace, code, msg := errorsmod.ABCIInfo(err, false)
	a.metrics.txRejected(codespace, code)
	a.logger.Debug("tx rejected", "type", txType, "codespace", codespace, "code", code, "err", msg)
	return &abci.ExecTxResult{Code: code, Codespace: codespace, Log: msg}
}

func decodeValue[T any](env codec.TxEnvelope) (T, error) {
	var msg T
	if err := json.Unmarshal(env.Value, &msg); err != nil {
		return msg, ErrInvalidRequest.Wrapf("bad %s value: %v", env.Type, err)
	}
	return msg, nil
}

func (a *BattleChessApp) execTx(tc *txContext, env codec.TxEnvelope) (*abci.ExecTxResult, error) {
	if env.Type == codec.TypeAuthRegisterAccount {
		msg, err := decodeValue[codec.AuthRegisterAccountTx](env)
		if err != nil {
			return nil, err
		}
		if err := requireRegisterAccountAuth(tc.st, env, msg); err != nil {
			return nil, err
		}
		if err := tc.useNonce(env); err != nil {
			return nil, err
		}
		tc.st.AccountKeys[msg.Account] = append([]byte(nil), msg.PubKey...)
		return okEvent(EventTypeAccountRegistered, map[string]string{"account": msg.Account}), nil
	}

	switch env.Type {
	case codec.TypeBankMint, codec.TypeAssetMint, codec.TypeStartSeason, codec.TypeWithdrawFees, codec.TypeSetParams:
		caller, err := requireAdminAuth(tc.st, env)
		if err != nil {
			return nil, err
		}
		if err := tc.useNonce(env); err != nil {
			return nil, err
		}
		return a.execAdminTx(tc, caller, env)
	}

	caller, err := requireAccountAuth(tc.st, env)
	if err != nil {
		return nil, err
	}
	if err := tc.useNonce(env); err != nil {
		return nil, err
	}

	switch env.Type {
	case codec.TypeAssetTransfer:
		msg, err := decodeValue[codec.AssetTransferTx](env)
		if err != nil {
			return nil, err
		}
		return transferAsset(tc, caller, msg)

	case codec.TypeStakeAndCreate:
		msg, err := decodeValue[codec.StakeAndCreateGameTx](env)
		if err != nil {
			return nil, err
		}
		return a.stakeAndCreateGame(tc, caller, msg)

	case codec.TypeStakeAndJoin:
		msg, err := decodeValue[codec.StakeAndJoinGameTx](env)
		if err != nil {
			return nil, err
		}
		return a.stakeAndJoinGame(tc, caller, msg)

	case codec.TypeCompleteGame:
		msg, err := decodeValue[codec.CompleteGameTx](env)
		if err != nil {
			return nil, err
		}
		return a.completeGame(tc, caller, msg)

	case codec.TypeCancelGame:
		msg, err := decodeValue[codec.CancelGameTx](env)
		if err != nil {
			return nil, err
		}
		return a.cancelGame(tc, caller, msg)

	default:
		return nil, ErrInvalidRequest.Wrapf("unknown tx type: %s", env.Type)
	}
}

func (a *BattleChessApp) execAdminTx(tc *txContext, caller string, env codec.TxEnvelope) (*abci.ExecTxResult, error) {
	switch env.Type {
	case codec.TypeBankMint:
		msg, err := decodeValue[codec.BankMintTx](env)
		if err != nil {
			return nil, err
		}
		return bankMint(tc, msg)

	case codec.TypeAssetMint:
		msg, err := decodeValue[codec.AssetMintTx](env)
		if err != nil {
			return nil, err
		}
		return mintAssets(tc, msg)

	case codec.TypeStartSeason:
		if _, err := decodeValue[codec.StartSeasonTx](env); err != nil {
			return nil, err
		}
		return startSeason(tc)

	case codec.TypeWithdrawFees:
		msg, err := decodeValue[codec.WithdrawFeesTx](env)
		if err != nil {
			return nil, err
		}
		return withdrawFees(tc, caller, msg)

	default:
		msg, err := decodeValue[codec.SetParamsTx](env)
		if err != nil {
			return nil, err
		}
		return setParams(tc, msg)
	}
}
