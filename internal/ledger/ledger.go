// Package ledger is the execution substrate: it serializes transactions,
// applies them to the engines, journals each commit into a hash chain and
// releases the resulting events.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/UkralStul/agora/internal/content"
	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/events"
	"github.com/UkralStul/agora/internal/governance"
	"github.com/UkralStul/agora/internal/moderation"
	"github.com/UkralStul/agora/internal/roles"
	"github.com/UkralStul/agora/internal/storage"
	"github.com/UkralStul/agora/internal/storage/inmemory"
	"github.com/UkralStul/agora/internal/users"
)

// ErrHalted is returned for every write after a journal append failed. The
// in-memory state is ahead of the journal; restart and replay to recover.
var ErrHalted = errors.New("ledger: halted after journal failure")

// ErrNonceReused is returned when a caller submits a nonce it already
// committed with.
var ErrNonceReused = errors.New("ledger: nonce already used")

const (
	replayPageSize = 500
	maxNonceLength = 128

	// journalTimeout bounds an append once the transaction has applied. The
	// append is detached from the caller's context.
	journalTimeout = 30 * time.Second
)

var tracer = otel.Tracer("ledger")

type Config struct {
	Genesis    domain.Identity
	Parameters domain.Parameters
	Clock      domain.Clock
	Journal    storage.Journal
	Emitter    events.Emitter
	Supply     governance.SupplySource
	Logger     *zap.Logger
	Registerer prometheus.Registerer
}

// pending buffers the events of the transaction being applied.
type pending struct {
	events []domain.Event
}

func (p *pending) Record(e domain.Event) { p.events = append(p.events, e) }

type nonceKey struct {
	caller domain.Identity
	nonce  string
}

func (p *pending) drain() []domain.Event {
	evs := p.events
	p.events = nil
	return evs
}

type Ledger struct {
	mu sync.RWMutex

	clock   domain.Clock
	journal storage.Journal
	emitter events.Emitter
	log     *zap.Logger
	metrics *metrics

	pending *pending
	params  *domain.Parameters
	roles   *roles.Authority
	users   *users.Registry
	content *content.Store
	gov     *governance.Engine
	mod     *moderation.Engine

	height   uint64
	lastHash string
	lastAt   time.Time
	halted   bool
	nonces   map[nonceKey]struct{}
}

func New(cfg Config) (*Ledger, error) {
	if cfg.Genesis == "" {
		return nil, errors.New("ledger: genesis identity is required")
	}
	params := cfg.Parameters
	if params == (domain.Parameters{}) {
		params = domain.DefaultParameters()
	}
	if params.VoteDuration%time.Second != 0 {
		return nil, errors.Errorf("ledger: voteDuration %s is not a whole number of seconds", params.VoteDuration)
	}
	for name, value := range map[domain.ParamName]uint64{
		domain.ParamFlagThreshold:    params.FlagThreshold,
		domain.ParamVoteDuration:     uint64(params.VoteDuration / time.Second),
		domain.ParamQuorumPercentage: params.QuorumPercentage,
	} {
		if err := domain.ValidateParameter(name, value); err != nil {
			return nil, errors.Wrap(err, "ledger: invalid parameters")
		}
	}
	if cfg.Clock == nil {
		cfg.Clock = domain.SystemClock{}
	}
	if cfg.Journal == nil {
		cfg.Journal = inmemory.New()
	}
	if cfg.Emitter == nil {
		cfg.Emitter = events.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	sink := &pending{}
	l := &Ledger{
		clock:   cfg.Clock,
		journal: cfg.Journal,
		emitter: cfg.Emitter,
		log:     cfg.Logger.With(zap.String("module", "ledger")),
		metrics: newMetrics(cfg.Registerer),
		pending: sink,
		params:  &params,
		nonces:  make(map[nonceKey]struct{}),
	}
	l.roles = roles.New(cfg.Genesis, sink)
	l.users = users.New(l.roles, sink)
	l.content = content.New(l.users, sink)
	l.gov = governance.New(l.roles, l.users, l.params, sink)
	l.mod = moderation.New(l.content, l.users, l.roles, l.gov, sink)
	l.gov.SetRemovalHook(l.mod)
	if cfg.Supply != nil {
		l.gov.SetSupplySource(cfg.Supply)
	}
	return l, nil
}

// Submit applies tx atomically. On success the transaction is journaled and
// its events are released; on failure nothing changed.
func (l *Ledger) Submit(ctx context.Context, tx Tx) (Receipt, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("tx.op", string(tx.Op)))

	start := time.Now()
	l.mu.Lock()
	receipt, err := l.commit(ctx, tx)
	l.mu.Unlock()

	if err != nil {
		l.metrics.observe(tx.Op, time.Since(start), resultOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Receipt{}, err
	}
	l.metrics.observe(tx.Op, time.Since(start), "ok")
	span.SetAttributes(attribute.Int64("tx.seq", int64(receipt.Seq)))
	return receipt, nil
}

func (l *Ledger) commit(ctx context.Context, tx Tx) (Receipt, error) {
	if l.halted {
		return Receipt{}, ErrHalted
	}
	if tx.Caller == "" {
		return Receipt{}, domain.Errorf(domain.KindInvalidArgument, "caller identity is required")
	}
	if len(tx.Nonce) > maxNonceLength {
		return Receipt{}, domain.Errorf(domain.KindInvalidArgument, "nonce longer than %d bytes", maxNonceLength)
	}
	if tx.Nonce != "" {
		if _, used := l.nonces[nonceKey{caller: tx.Caller, nonce: tx.Nonce}]; used {
			return Receipt{}, errors.Wrapf(ErrNonceReused, "caller %s nonce %q", tx.Caller, tx.Nonce)
		}
	}
	// a request that is already gone is turned away before anything applies
	if err := ctx.Err(); err != nil {
		return Receipt{}, errors.Wrap(err, "ledger: request cancelled")
	}

	now := l.now()
	id, err := l.dispatch(tx, now)
	if err != nil {
		l.pending.drain()
		l.log.Debug("transaction rejected",
			zap.String("op", string(tx.Op)),
			zap.String("caller", string(tx.Caller)),
			zap.Error(err),
		)
		return Receipt{}, err
	}

	entry := storage.Entry{
		Seq:      l.height + 1,
		Op:       string(tx.Op),
		Caller:   tx.Caller,
		Args:     tx.Args,
		Nonce:    tx.Nonce,
		At:       now,
		PrevHash: l.lastHash,
	}
	entry.Hash = HashEntry(entry)
	detached := context.WithoutCancel(ctx)
	appendCtx, cancel := context.WithTimeout(detached, journalTimeout)
	err = l.journal.Append(appendCtx, entry)
	cancel()
	if err != nil {
		l.halted = true
		l.pending.drain()
		l.log.Error("journal append failed, halting",
			zap.String("op", string(tx.Op)),
			zap.Uint64("seq", entry.Seq),
			zap.Error(err),
		)
		return Receipt{}, errors.Wrap(ErrHalted, err.Error())
	}
	l.advance(entry)

	evs := l.pending.drain()
	for i := range evs {
		evs[i].ID = uuid.NewString()
		evs[i].Seq = entry.Seq
	}
	if len(evs) > 0 {
		if err := l.emitter.Emit(detached, evs); err != nil {
			l.log.Warn("event emission failed", zap.Uint64("seq", entry.Seq), zap.Error(err))
		}
	}

	l.log.Info("transaction committed",
		zap.String("op", string(tx.Op)),
		zap.String("caller", string(tx.Caller)),
		zap.Uint64("seq", entry.Seq),
	)
	return Receipt{Seq: entry.Seq, ID: id, At: now, Hash: entry.Hash}, nil
}

// now is the clock reading, truncated to what the journal can store and
// never earlier than the last commit.
func (l *Ledger) now() time.Time {
	now := l.clock.Now().UTC().Truncate(time.Microsecond)
	if now.Before(l.lastAt) {
		return l.lastAt
	}
	return now
}

func (l *Ledger) advance(e storage.Entry) {
	l.height = e.Seq
	l.lastHash = e.Hash
	l.lastAt = e.At.UTC()
	if e.Nonce != "" {
		l.nonces[nonceKey{caller: e.Caller, nonce: e.Nonce}] = struct{}{}
	}
	l.metrics.height.Set(float64(e.Seq))
}

func (l *Ledger) dispatch(tx Tx, now time.Time) (*uint64, error) {
	caller := tx.Caller
	switch tx.Op {
	case OpRegister:
		args, err := decode[RegisterArgs](tx)
		if err != nil {
			return nil, err
		}
		return nil, l.users.Register(caller, args.Username, args.MetadataRef, args.UserType, now)
	case OpVerify:
		args, err := decode[VerifyArgs](tx)
		if err != nil {
			return nil, err
		}
		return nil, l.users.Verify(caller, args.Target, now)
	case OpCreatePost:
		args, err := decode[CreatePostArgs](tx)
		if err != nil {
			return nil, err
		}
		return allocated(l.content.CreatePost(caller, args.ContentRef, args.MetadataRef, args.Category, now))
	case OpAddComment:
		args, err := decode[CommentArgs](tx)
		if err != nil {
			return nil, err
		}
		return allocated(l.content.AddComment(args.PostID, caller, args.Content, now))
	case OpLike:
		args, err := decode[PostArgs](tx)
		if err != nil {
			return nil, err
		}
		return nil, l.content.Like(args.PostID, caller, now)
	case OpUnlike:
		args, err := decode[PostArgs](tx)
		if err != nil {
			return nil, err
		}
		return nil, l.content.Unlike(args.PostID, caller, now)
	case OpFlagContent:
		args, err := decode[PostArgs](tx)
		if err != nil {
			return nil, err
		}
		return nil, l.mod.Flag(args.PostID, caller, now)
	case OpStartModerationVote:
		args, err := decode[PostArgs](tx)
		if err != nil {
			return nil, err
		}
		return allocated(l.mod.StartVote(args.PostID, caller, now))
	case OpExecuteModerationVote:
		args, err := decode[PostArgs](tx)
		if err != nil {
			return nil, err
		}
		return nil, l.mod.Execute(args.PostID, caller, now)
	case OpCreateProposal:
		args, err := decode[CreateProposalArgs](tx)
		if err != nil {
			return nil, err
		}
		payload, err := domain.DecodePayload(args.Payload)
		if err != nil {
			return nil, err
		}
		return allocated(l.gov.CreateProposal(caller, payload, args.DescriptionRef, now))
	case OpCastVote:
		args, err := decode[CastVoteArgs](tx)
		if err != nil {
			return nil, err
		}
		return nil, l.gov.CastVote(args.ProposalID, caller, args.Support, args.Weight, now)
	case OpExecuteProposal:
		args, err := decode[ProposalArgs](tx)
		if err != nil {
			return nil, err
		}
		return nil, l.gov.ExecuteProposal(caller, args.ProposalID, now)
	case OpGrantRole:
		args, err := decode[RoleArgs](tx)
		if err != nil {
			return nil, err
		}
		return nil, l.roles.Grant(caller, args.Role, args.Target, now)
	case OpRevokeRole:
		args, err := decode[RoleArgs](tx)
		if err != nil {
			return nil, err
		}
		return nil, l.roles.Revoke(caller, args.Role, args.Target, now)
	}
	return nil, domain.Errorf(domain.KindInvalidArgument, "unknown operation %q", tx.Op)
}

func allocated(id uint64, err error) (*uint64, error) {
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Replay rebuilds state from the journal. It must run on a fresh ledger
// before any Submit. Entries are applied at their recorded times and their
// events are discarded.
func (l *Ledger) Replay(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Ledger.Replay")
	defer span.End()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.height != 0 {
		return errors.New("ledger: replay on a ledger that already has state")
	}

	from := uint64(1)
	for {
		entries, err := l.journal.Entries(ctx, storage.PaginationArgs{From: from, Limit: replayPageSize})
		if err != nil {
			span.RecordError(err)
			return errors.Wrap(err, "ledger: replay")
		}
		if len(entries) == 0 {
			break
		}
		if entries[0].Seq != l.height+1 {
			return errors.Wrapf(ErrBrokenChain, "journal starts at seq %d, want %d", entries[0].Seq, l.height+1)
		}
		if err := VerifyChain(l.lastHash, entries); err != nil {
			span.RecordError(err)
			return err
		}
		for _, e := range entries {
			tx := Tx{Op: Op(e.Op), Caller: e.Caller, Args: e.Args, Nonce: e.Nonce}
			if _, err := l.dispatch(tx, e.At.UTC()); err != nil {
				l.pending.drain()
				span.RecordError(err)
				return errors.Wrapf(err, "ledger: replay entry %d (%s)", e.Seq, e.Op)
			}
			l.pending.drain()
			l.advance(e)
		}
		from = l.height + 1
	}

	l.log.Info("journal replayed", zap.Uint64("height", l.height))
	span.SetAttributes(attribute.Int64("ledger.height", int64(l.height)))
	return nil
}

func resultOf(err error) string {
	if errors.Is(err, ErrHalted) {
		return "halted"
	}
	if errors.Is(err, ErrNonceReused) {
		return "replayed"
	}
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
