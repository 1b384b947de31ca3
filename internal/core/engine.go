package core

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fairdex-labs/engine/internal/domain"
	"github.com/fairdex-labs/engine/internal/port"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options configures an Engine.
type Options struct {
	CommitWindow time.Duration
	RevealWindow time.Duration
	MinStake     decimal.Decimal
	GuardSpacing int
}

// Engine is the facade over the commit-reveal auction and the matching
// engine. One mutex covers admission, the book, and the batch lifecycle, so
// the journal records inputs in the order they took effect and replay is
// deterministic.
type Engine struct {
	mu     sync.Mutex
	logger *zap.Logger

	store     *CommitStore
	validator *RevealValidator
	sched     *Scheduler
	book      *OrderBook
	matcher   *Matcher
	guard     *Guard

	repo    port.Repository
	cache   port.Cache
	stream  port.Publisher
	journal port.Journal

	orders        map[string]*domain.Order
	tradesByOrder map[string][]*domain.Trade
	tradesByBatch map[uint64][]*domain.Trade
	revealed      map[uint64][]*domain.Order
	seq           uint64

	// Direct-path trades accumulated since the last batch clearing; the
	// guard re-audits this window after every standing fill, flaggedPairs
	// keeps a grown window from re-emitting the same flag.
	standing     []*domain.Trade
	flaggedPairs map[string]struct{}

	replaying bool
}

func NewEngine(opts Options, repo port.Repository, cache port.Cache, stream port.Publisher, journal port.Journal, logger *zap.Logger) *Engine {
	store := NewCommitStore(opts.MinStake)
	book := NewOrderBook()
	e := &Engine{
		logger:        logger,
		store:         store,
		book:          book,
		matcher:       NewMatcher(book),
		guard:         NewGuard(opts.GuardSpacing, logger),
		repo:          repo,
		cache:         cache,
		stream:        stream,
		journal:       journal,
		orders:        make(map[string]*domain.Order),
		tradesByOrder: make(map[string][]*domain.Trade),
		tradesByBatch: make(map[uint64][]*domain.Trade),
		revealed:      make(map[uint64][]*domain.Order),
		flaggedPairs:  make(map[string]struct{}),
	}
	e.sched = NewScheduler(opts.CommitWindow, opts.RevealWindow, store, logger)
	e.sched.SetHooks(e.clearBatch, e.onForfeit)
	e.validator = NewRevealValidator(store, func(batchID uint64) (*domain.Batch, error) {
		// Runs with e.mu held by revealWithID.
		b, err := e.sched.Batch(batchID)
		if err != nil {
			return nil, err
		}
		cp := *b
		return &cp, nil
	})
	return e
}

// Start opens the first batch's commit window.
func (e *Engine) Start(ctx context.Context, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b := e.sched.Start(now)
	e.persistBatch(ctx, b)
	e.appendRecord(port.RecordTick, now, nil)
}

// Advance applies any batch transitions due at now. A fatal clearing error
// (crossed book) is returned as-is; callers must halt rather than continue
// emitting trades.
func (e *Engine) Advance(ctx context.Context, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advanceLocked(ctx, now)
}

func (e *Engine) advanceLocked(ctx context.Context, now time.Time) error {
	changed, err := e.sched.Advance(now)
	if changed {
		e.appendRecord(port.RecordTick, now, nil)
	}
	return err
}

// SubmitCommitment admits a hashed order intent with stake into the current
// committing batch.
func (e *Engine) SubmitCommitment(ctx context.Context, trader string, hash [32]byte, stake decimal.Decimal, now time.Time) (*domain.Commitment, error) {
	if err := e.Advance(ctx, now); err != nil {
		return nil, err
	}
	return e.submitCommitmentWithID(ctx, uuid.NewString(), trader, hash, stake, now)
}

func (e *Engine) submitCommitmentWithID(ctx context.Context, id, trader string, hash [32]byte, stake decimal.Decimal, now time.Time) (*domain.Commitment, error) {
	// The batch state check, the store insert, and the journal record must
	// not interleave with a scheduler transition: replay applies records in
	// journal order and has to reach the same admission verdict.
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.store.Submit(id, hash, trader, stake, e.sched.Committing(), now)
	if err != nil {
		return nil, err
	}
	e.appendRecord(port.RecordCommit, now, commitRecord{
		ID:      c.ID,
		Trader:  trader,
		Hash:    hex.EncodeToString(hash[:]),
		Stake:   stake.String(),
		BatchID: c.BatchID,
	})
	if e.repo != nil && !e.replaying {
		if err := e.repo.SaveCommitment(ctx, c); err != nil {
			e.logger.Sugar().Errorw("persist commitment", "error", err)
		}
	}
	return c, nil
}

// GetCommitment exposes the stored commitment. By construction it never
// carries order content, only the hash.
func (e *Engine) GetCommitment(ctx context.Context, id string) (*domain.Commitment, error) {
	return e.store.Get(id)
}

// Reveal validates (payload, nonce) against a stored commitment and admits
// the resulting order into the batch's candidate set. Zero quantity and
// unknown order types still consume the reveal but leave the order excluded
// from matching with a queryable Discarded disposition.
func (e *Engine) Reveal(ctx context.Context, commitmentID string, payload domain.OrderPayload, nonce []byte, now time.Time) (*domain.Order, error) {
	if err := e.Advance(ctx, now); err != nil {
		return nil, err
	}
	return e.revealWithID(ctx, commitmentID, uuid.NewString(), payload, nonce, now)
}

func (e *Engine) revealWithID(ctx context.Context, commitmentID, orderID string, payload domain.OrderPayload, nonce []byte, now time.Time) (*domain.Order, error) {
	// Same locking discipline as commitment admission: the window check and
	// the candidate-set insert see one batch state, and the journal record
	// lands before any later transition tick.
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.validator.Reveal(commitmentID, payload, nonce, now)
	if err != nil {
		return nil, err
	}

	e.seq++
	o := &domain.Order{
		ID:        orderID,
		Trader:    c.Trader,
		Side:      payload.Side,
		Type:      payload.Type,
		Price:     payload.Price,
		Quantity:  payload.Quantity,
		Remaining: payload.Quantity,
		Seq:       e.seq,
		BatchID:   c.BatchID,
		Status:    domain.Open,
		CreatedAt: now,
	}
	c.OrderID = o.ID
	e.orders[o.ID] = o

	var admitErr error
	switch {
	case payload.Quantity <= 0:
		o.Status = domain.Discarded
		o.Remaining = 0
		admitErr = domain.ErrZeroQuantity
	case !domain.ValidType(payload.Type) || !domain.ValidSide(payload.Side):
		o.Status = domain.Discarded
		o.Remaining = 0
		admitErr = domain.ErrInvalidOrderType
	default:
		e.revealed[c.BatchID] = append(e.revealed[c.BatchID], o)
	}

	e.appendRecord(port.RecordReveal, now, revealRecord{
		CommitmentID: commitmentID,
		OrderID:      orderID,
		Payload:      payload,
		Nonce:        hex.EncodeToString(nonce),
	})
	if e.repo != nil && !e.replaying {
		if err := e.repo.SaveCommitment(ctx, c); err != nil {
			e.logger.Sugar().Errorw("persist commitment", "error", err)
		}
		if err := e.repo.SaveOrder(ctx, o); err != nil {
			e.logger.Sugar().Errorw("persist order", "error", err)
		}
	}
	if admitErr != nil {
		return o, admitErr
	}
	return o, nil
}

// SubmitOrder is the direct standing-order path: the order skips the
// auction and goes straight to the continuous pass against the book.
func (e *Engine) SubmitOrder(ctx context.Context, trader string, payload domain.OrderPayload, now time.Time) (*domain.Order, []*domain.Trade, error) {
	if err := e.Advance(ctx, now); err != nil {
		return nil, nil, err
	}
	return e.submitOrderWithID(ctx, uuid.NewString(), trader, payload, now)
}

func (e *Engine) submitOrderWithID(ctx context.Context, orderID, trader string, payload domain.OrderPayload, now time.Time) (*domain.Order, []*domain.Trade, error) {
	if payload.Quantity <= 0 {
		return nil, nil, domain.ErrZeroQuantity
	}
	if !domain.ValidType(payload.Type) || !domain.ValidSide(payload.Side) {
		return nil, nil, domain.ErrInvalidOrderType
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.seq++
	o := &domain.Order{
		ID:        orderID,
		Trader:    trader,
		Side:      payload.Side,
		Type:      payload.Type,
		Price:     payload.Price,
		Quantity:  payload.Quantity,
		Remaining: payload.Quantity,
		Seq:       e.seq,
		Status:    domain.Open,
		CreatedAt: now,
	}
	e.orders[o.ID] = o
	e.appendRecord(port.RecordOrder, now, orderRecord{
		OrderID: orderID,
		Trader:  trader,
		Payload: payload,
	})

	trades := e.matcher.PlaceStanding(o, now)
	e.recordTrades(ctx, o.BatchID, trades, now)
	e.persistOrder(ctx, o)
	if len(trades) > 0 {
		e.standing = append(e.standing, trades...)
		e.auditStanding(ctx, now)
	} else if o.Status == domain.Open && o.Remaining > 0 {
		// A rested order changes the book without producing a trade.
		e.refreshBookCache(ctx, now)
	}
	// Checked after recording so a halt never loses executed fills.
	if e.book.Crossed() {
		return nil, nil, domain.ErrCrossedBook
	}
	return o, trades, nil
}

// auditStanding runs the guard over the direct-path trades of the current
// window. Flags already emitted for a pair stay emitted once.
func (e *Engine) auditStanding(ctx context.Context, now time.Time) {
	var windowID uint64
	if b := e.sched.Committing(); b != nil {
		windowID = b.ID
	} else if b := e.sched.Revealing(); b != nil {
		windowID = b.ID
	}
	var fresh []domain.FlaggedTrade
	for _, f := range e.guard.Audit(windowID, e.standing, now) {
		key := f.BuyTradeID + "|" + f.SellTradeID + "|" + f.Reason
		if _, seen := e.flaggedPairs[key]; seen {
			continue
		}
		e.flaggedPairs[key] = struct{}{}
		fresh = append(fresh, f)
	}
	e.emitFlags(ctx, fresh)
}

// CancelOrder removes a resting standing order. A cancellation racing a
// match loses: once the order filled, the cancel fails with
// ErrAlreadyMatched. A partial fill stays final, only the open remainder is
// cancelled.
func (e *Engine) CancelOrder(ctx context.Context, orderID, trader string, now time.Time) error {
	if err := e.Advance(ctx, now); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[orderID]
	if !ok || o.Trader != trader {
		return domain.ErrOrderNotFound
	}
	switch o.Status {
	case domain.Filled:
		return domain.ErrAlreadyMatched
	case domain.Cancelled, domain.Discarded:
		return domain.ErrOrderNotFound
	}
	if e.book.Remove(orderID) == nil {
		// Open but not resting: a batch candidate pre-clearing.
		return domain.ErrOrderNotFound
	}
	o.Status = domain.Cancelled
	o.Remaining = 0
	e.appendRecord(port.RecordCancel, now, cancelRecord{OrderID: orderID, Trader: trader})
	e.persistOrder(ctx, o)
	e.refreshBookCache(ctx, now)
	return nil
}

func (e *Engine) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (e *Engine) GetTradesForOrder(ctx context.Context, orderID string) ([]*domain.Trade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*domain.Trade(nil), e.tradesByOrder[orderID]...), nil
}

func (e *Engine) GetTradesForBatch(ctx context.Context, batchID uint64) []*domain.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*domain.Trade(nil), e.tradesByBatch[batchID]...)
}

func (e *Engine) GetBatch(ctx context.Context, batchID uint64) (*domain.Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.sched.Batch(batchID)
	if err != nil {
		return nil, err
	}
	cp := *b
	return &cp, nil
}

// CurrentBatch returns the batch currently accepting commitments, if any.
func (e *Engine) CurrentBatch(ctx context.Context) (*domain.Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b := e.sched.Committing(); b != nil {
		cp := *b
		return &cp, nil
	}
	if b := e.sched.Revealing(); b != nil {
		cp := *b
		return &cp, nil
	}
	return nil, domain.ErrBatchNotFound
}

// GetOrderBook returns an immutable snapshot, cache first.
func (e *Engine) GetOrderBook(ctx context.Context, now time.Time) (*domain.BookSnapshot, error) {
	if e.cache != nil {
		if snap, err := e.cache.GetBook(ctx); err == nil && snap != nil {
			return snap, nil
		}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Snapshot(now), nil
}

// Restore rebuilds the standing book from persisted open orders. Used when
// the engine runs without an input journal; with a journal, Replay is the
// authoritative recovery path.
func (e *Engine) Restore(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}
	open, err := e.repo.LoadOpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("load open orders: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range open {
		e.orders[o.ID] = o
		e.book.Insert(o)
		if o.Seq > e.seq {
			e.seq = o.Seq
		}
		trades, err := e.repo.LoadTradesForOrder(ctx, o.ID)
		if err != nil {
			return fmt.Errorf("load trades for %s: %w", o.ID, err)
		}
		for _, t := range trades {
			e.tradesByOrder[o.ID] = append(e.tradesByOrder[o.ID], t)
		}
	}
	if e.book.Crossed() {
		return domain.ErrCrossedBook
	}
	e.logger.Sugar().Infow("book restored", "open_orders", len(open))
	return nil
}

// clearBatch is the scheduler's Clearing hook: snapshot the revealed set,
// compute the uniform price, run the batch pass, admit leftovers to the
// book through the continuous pass, then audit. Runs exactly once per
// batch, under the engine mutex.
func (e *Engine) clearBatch(b *domain.Batch) error {
	ctx := context.Background()
	now := b.RevealWindowEnd

	candidates := append([]*domain.Order(nil), e.revealed[b.ID]...)
	stakes := e.store.StakeBySide(b.ID, func(orderID string) (domain.Side, bool) {
		o, ok := e.orders[orderID]
		if !ok {
			return "", false
		}
		return o.Side, true
	})

	var trades []*domain.Trade
	var inserts []*domain.Order
	res, err := ComputeClearing(candidates, stakes)
	switch {
	case err == nil:
		b.ClearingPrice = res.Price
		b.HasClearing = true
		b.MatchedVolume = res.Volume
		trades, inserts = e.matcher.BatchPass(b, candidates, res.Price, now)
	default:
		// No crossing price: the batch settles with zero trades and GTC
		// candidates still reach the standing book.
		for _, o := range candidates {
			if o.Type == domain.GTC {
				inserts = append(inserts, o)
			} else {
				o.Status = domain.Discarded
			}
		}
	}

	for _, o := range inserts {
		trades = append(trades, e.matcher.PlaceStanding(o, now)...)
	}
	if e.book.Crossed() {
		return fmt.Errorf("batch %d: %w", b.ID, domain.ErrCrossedBook)
	}

	e.recordTrades(ctx, b.ID, trades, now)
	e.emitFlags(ctx, e.guard.Audit(b.ID, trades, now))

	// Clearing closes the direct-path audit window.
	e.standing = nil
	e.flaggedPairs = make(map[string]struct{})

	for _, o := range candidates {
		e.persistOrder(ctx, o)
	}
	e.persistBatch(ctx, b)
	e.refreshBookCache(ctx, now)

	e.logger.Sugar().Infow("batch cleared",
		"batch_id", b.ID,
		"clearing_price", b.ClearingPrice,
		"matched_volume", b.MatchedVolume,
		"trades", len(trades),
		"revealed_orders", len(candidates),
	)
	return nil
}

func (e *Engine) emitFlags(ctx context.Context, flags []domain.FlaggedTrade) {
	for i := range flags {
		f := &flags[i]
		if e.repo != nil && !e.replaying {
			if err := e.repo.SaveFlag(ctx, f); err != nil {
				e.logger.Sugar().Errorw("persist flag", "error", err)
			}
		}
		if e.stream != nil && !e.replaying {
			if err := e.stream.PublishFlag(ctx, f); err != nil {
				e.logger.Sugar().Errorw("publish flag", "error", err)
			}
		}
	}
}

func (e *Engine) onForfeit(f domain.ForfeitedCommitment) {
	ctx := context.Background()
	if e.repo != nil && !e.replaying {
		if err := e.repo.SaveForfeit(ctx, &f); err != nil {
			e.logger.Sugar().Errorw("persist forfeit", "error", err)
		}
	}
	if e.stream != nil && !e.replaying {
		if err := e.stream.PublishForfeit(ctx, &f); err != nil {
			e.logger.Sugar().Errorw("publish forfeit", "error", err)
		}
	}
}

func (e *Engine) recordTrades(ctx context.Context, batchID uint64, trades []*domain.Trade, now time.Time) {
	for _, t := range trades {
		e.tradesByOrder[t.BuyOrder] = append(e.tradesByOrder[t.BuyOrder], t)
		e.tradesByOrder[t.SellOrder] = append(e.tradesByOrder[t.SellOrder], t)
		e.tradesByBatch[t.BatchID] = append(e.tradesByBatch[t.BatchID], t)
		if e.repo != nil && !e.replaying {
			if err := e.repo.SaveTrade(ctx, t); err != nil {
				e.logger.Sugar().Errorw("persist trade", "error", err)
			}
			// Both legs changed remaining quantity.
			if o, ok := e.orders[t.BuyOrder]; ok {
				e.persistOrder(ctx, o)
			}
			if o, ok := e.orders[t.SellOrder]; ok {
				e.persistOrder(ctx, o)
			}
		}
		if e.stream != nil && !e.replaying {
			if err := e.stream.PublishTrade(ctx, t); err != nil {
				e.logger.Sugar().Errorw("publish trade", "error", err)
			}
		}
	}
	if len(trades) > 0 {
		e.refreshBookCache(ctx, now)
	}
}

func (e *Engine) persistOrder(ctx context.Context, o *domain.Order) {
	if e.repo == nil || e.replaying {
		return
	}
	if err := e.repo.SaveOrder(ctx, o); err != nil {
		e.logger.Sugar().Errorw("persist order", "error", err)
	}
}

func (e *Engine) persistBatch(ctx context.Context, b *domain.Batch) {
	if e.repo == nil || e.replaying || b == nil {
		return
	}
	if err := e.repo.SaveBatch(ctx, b); err != nil {
		e.logger.Sugar().Errorw("persist batch", "error", err)
	}
}

func (e *Engine) refreshBookCache(ctx context.Context, now time.Time) {
	if e.cache == nil || e.replaying {
		return
	}
	if err := e.cache.SetBook(ctx, e.book.Snapshot(now)); err != nil {
		e.logger.Sugar().Errorw("refresh book cache", "error", err)
	}
}

// appendRecord journals an input. Suppressed during replay.
func (e *Engine) appendRecord(typ port.RecordType, now time.Time, payload any) {
	if e.journal == nil || e.replaying {
		return
	}
	var raw []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			e.logger.Sugar().Errorw("encode journal record", "type", typ, "error", err)
			return
		}
		raw = b
	}
	if err := e.journal.Append(&port.Record{Type: typ, Time: now, Payload: raw}); err != nil {
		e.logger.Sugar().Errorw("append journal record", "type", typ, "error", err)
	}
}

type commitRecord struct {
	ID      string `json:"id"`
	Trader  string `json:"trader"`
	Hash    string `json:"hash"`
	Stake   string `json:"stake"`
	BatchID uint64 `json:"batch_id"`
}

type revealRecord struct {
	CommitmentID string              `json:"commitment_id"`
	OrderID      string              `json:"order_id"`
	Payload      domain.OrderPayload `json:"payload"`
	Nonce        string              `json:"nonce"`
}

type orderRecord struct {
	OrderID string              `json:"order_id"`
	Trader  string              `json:"trader"`
	Payload domain.OrderPayload `json:"payload"`
}

type cancelRecord struct {
	OrderID string `json:"order_id"`
	Trader  string `json:"trader"`
}

// Replay feeds a journal back through the engine. State mutates exactly as
// it did live; persistence, publishing and re-journaling stay suppressed,
// so two replays of one log always converge on the same book and trades.
func (e *Engine) Replay(ctx context.Context) error {
	if e.journal == nil {
		return nil
	}
	e.replaying = true
	defer func() { e.replaying = false }()

	started := false
	return e.journal.Replay(0, func(rec *port.Record) error {
		if !started {
			e.mu.Lock()
			e.sched.Start(rec.Time)
			e.mu.Unlock()
			started = true
			if rec.Type == port.RecordTick {
				return nil
			}
		}
		if err := e.Advance(ctx, rec.Time); err != nil {
			return err
		}
		switch rec.Type {
		case port.RecordTick:
			return nil
		case port.RecordCommit:
			var cr commitRecord
			if err := json.Unmarshal(rec.Payload, &cr); err != nil {
				return fmt.Errorf("journal commit record: %w", err)
			}
			hb, err := hex.DecodeString(cr.Hash)
			if err != nil || len(hb) != 32 {
				return fmt.Errorf("journal commit record: bad hash")
			}
			var hash [32]byte
			copy(hash[:], hb)
			stake, err := decimal.NewFromString(cr.Stake)
			if err != nil {
				return fmt.Errorf("journal commit record: bad stake: %w", err)
			}
			_, err = e.submitCommitmentWithID(ctx, cr.ID, cr.Trader, hash, stake, rec.Time)
			return ignoreAdmission(err)
		case port.RecordReveal:
			var rr revealRecord
			if err := json.Unmarshal(rec.Payload, &rr); err != nil {
				return fmt.Errorf("journal reveal record: %w", err)
			}
			nonce, err := hex.DecodeString(rr.Nonce)
			if err != nil {
				return fmt.Errorf("journal reveal record: bad nonce")
			}
			_, err = e.revealWithID(ctx, rr.CommitmentID, rr.OrderID, rr.Payload, nonce, rec.Time)
			return ignoreAdmission(err)
		case port.RecordOrder:
			var or orderRecord
			if err := json.Unmarshal(rec.Payload, &or); err != nil {
				return fmt.Errorf("journal order record: %w", err)
			}
			_, _, err := e.submitOrderWithID(ctx, or.OrderID, or.Trader, or.Payload, rec.Time)
			return ignoreAdmission(err)
		case port.RecordCancel:
			var cr cancelRecord
			if err := json.Unmarshal(rec.Payload, &cr); err != nil {
				return fmt.Errorf("journal cancel record: %w", err)
			}
			return ignoreAdmission(e.CancelOrder(ctx, cr.OrderID, cr.Trader, rec.Time))
		}
		return nil
	})
}

// ignoreAdmission keeps replay going past per-input rejections: only fatal
// invariant violations abort a replay.
func ignoreAdmission(err error) error {
	if err == nil {
		return nil
	}
	if isFatal(err) {
		return err
	}
	return nil
}

func isFatal(err error) bool {
	return errors.Is(err, domain.ErrCrossedBook)
}
