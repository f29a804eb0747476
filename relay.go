package contractmsg

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FuelLabs/bridge-message-predicates/fuel"
	"github.com/FuelLabs/bridge-message-predicates/store"
	"github.com/bobg/multichan"
	"github.com/chain/txvm/errors"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	snet "github.com/interstellar/starlight/net"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	ErrNoFeeCoin = errors.New("no spare coin to pay the relay fee")
	ErrReverted  = errors.New("relay script reverted")

	// ErrCycle is the root of errors from a cycle that could not query
	// the node. The next cycle tries again.
	ErrCycle = errors.New("relay cycle failed")
)

// NodeClient is the relayer's view of a node.
type NodeClient interface {
	// Messages returns the unspent messages owned by owner.
	Messages(ctx context.Context, owner fuel.Address) ([]*fuel.Message, error)

	// Coins returns the unspent coins owned by owner.
	Coins(ctx context.Context, owner fuel.Address) ([]*fuel.Coin, error)

	// Submit sends tx for inclusion and returns its receipts. A
	// transaction the node refuses to include yields an error whose
	// root is fuel.ErrInvalidTransaction.
	Submit(ctx context.Context, tx *fuel.Transaction) ([]fuel.Receipt, error)
}

// Signer authorizes the fee coins of relay transactions.
type Signer interface {
	// Address is the owner of the coins the signer can spend.
	Address() fuel.Address

	// Sign adds the witness for witness index 0 to tx.
	Sign(ctx context.Context, tx *fuel.Transaction) error
}

// RelayState is the state of a Relayer.
type RelayState int32

const (
	Idle RelayState = iota
	Relaying
)

func (s RelayState) String() string {
	if s == Relaying {
		return "relaying"
	}
	return "idle"
}

// Status is what happened to one message in one cycle.
type Status int

const (
	// Forwarded: the node included the relay transaction and its
	// script succeeded. The message is spent.
	Forwarded Status = iota + 1

	// Rejected: the transaction could not be built, or the node
	// refused it. The message is not tried again.
	Rejected

	// Reverted: the node included the transaction but the script
	// reverted. The message stays unspent and is retried.
	Reverted

	// Failed: signing or submission failed without a verdict from the
	// node. The message is retried.
	Failed

	// Deferred: the message was not attempted this cycle.
	Deferred
)

var statusNames = map[Status]string{
	Forwarded: "forwarded",
	Rejected:  "rejected",
	Reverted:  "reverted",
	Failed:    "failed",
	Deferred:  "deferred",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome reports the handling of one message in one cycle.
type Outcome struct {
	Cycle     string          `json:"cycle"`
	MessageID fuel.MessageID  `json:"message_id"`
	Status    Status          `json:"status"`
	TxID      fuel.TxID       `json:"tx_id"`
	Contract  fuel.ContractID `json:"contract"`
	Amount    uint64          `json:"amount"`
	Receipts  []fuel.Receipt  `json:"receipts,omitempty"`
	Err       error           `json:"-"`
	At        time.Time       `json:"at"`
}

// attempt is the retry state of one message.
type attempt struct {
	tries   int
	backoff snet.Backoff
	next    time.Time
}

// Relayer forwards messages sent to the predicate's address to the
// contracts their data names.
type Relayer struct {
	node      NodeClient
	signer    Signer
	artifacts *Artifacts
	cfg       Config

	// Store, if set, receives a record of every outcome.
	Store *store.Store

	limiter  *rate.Limiter
	attempts *lru.Cache
	w        *multichan.W
	state    int32

	// Rejected messages are never retried while the process runs.
	mu       sync.Mutex
	rejected map[fuel.MessageID]bool

	now func() time.Time
}

// NewRelayer returns a Relayer relaying messages owned by the
// predicate in a, with fees paid from coins owned by signer.
func NewRelayer(cfg *Config, a *Artifacts, node NodeClient, signer Signer) (*Relayer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	attempts, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating attempt cache")
	}
	r := &Relayer{
		node:      node,
		signer:    signer,
		artifacts: a,
		cfg:       *cfg,
		attempts:  attempts,
		rejected:  make(map[fuel.MessageID]bool),
		w:         multichan.New((*Outcome)(nil)),
		now:       time.Now,
	}
	if cfg.SubmitRate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.SubmitRate), cfg.SubmitBurst)
	}
	return r, nil
}

// State reports whether a cycle is in progress.
func (r *Relayer) State() RelayState {
	return RelayState(atomic.LoadInt32(&r.state))
}

// Outcomes returns a reader of every outcome from now on.
// Callers must Dispose it when done.
func (r *Relayer) Outcomes() *multichan.R {
	return r.w.Reader()
}

// Run relays a cycle right away and then once per interval until ctx
// is canceled. A cycle in progress when ctx is canceled finishes the
// relays it has started.
func (r *Relayer) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(r.cfg.Interval))
	defer ticker.Stop()

	ticks := make(chan time.Time, 1)
	ticks <- r.now()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				select {
				case ticks <- t:
				default:
				}
			}
		}
	}()
	r.RunTicks(ctx, ticks)
}

// RunTicks relays a cycle for each value received on ticks, until
// ticks is closed or ctx is canceled.
func (r *Relayer) RunTicks(ctx context.Context, ticks <-chan time.Time) {
	defer log.Print("relayer exiting")
	defer r.w.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case _, ok := <-ticks:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			_, err := r.Cycle(ctx)
			if err != nil {
				log.Print(err)
			}
		}
	}
}

// Cycle queries the node once for unspent messages at the predicate
// address and relays each one that is due, in its own transaction.
// One message's failure does not affect the others. Cancelling ctx
// keeps further relays from starting; relays already started run to
// completion. Cycle returns the outcomes of the messages it handled,
// or an error with root ErrCycle if the node could not be queried.
func (r *Relayer) Cycle(ctx context.Context) ([]*Outcome, error) {
	atomic.StoreInt32(&r.state, int32(Relaying))
	defer atomic.StoreInt32(&r.state, int32(Idle))

	cycle := uuid.New().String()

	msgs, err := r.node.Messages(ctx, r.artifacts.PredicateRoot)
	if err != nil {
		return nil, errors.Wrapf(errors.WithDetail(ErrCycle, err.Error()), "cycle %s: querying messages at %s", cycle, r.artifacts.PredicateRoot)
	}

	now := r.now()
	var due []*fuel.Message
	for _, m := range msgs {
		if r.isRejected(m.ID()) {
			continue
		}
		if a := r.attempt(m.ID()); a != nil && now.Before(a.next) {
			continue
		}
		due = append(due, m)
	}
	if len(due) == 0 {
		return nil, nil
	}

	coins, err := r.node.Coins(ctx, r.signer.Address())
	if err != nil {
		return nil, errors.Wrapf(errors.WithDetail(ErrCycle, err.Error()), "cycle %s: querying coins of %s", cycle, r.signer.Address())
	}
	feeCoins := r.feeCoins(coins)

	log.Printf("cycle %s: %d message(s) due, %d fee coin(s)", cycle, len(due), len(feeCoins))

	outcomes := make([]*Outcome, len(due))
	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, m := range due {
		if i >= len(feeCoins) {
			outcomes[i] = r.finish(ctx, &Outcome{
				Cycle:     cycle,
				MessageID: m.ID(),
				Status:    Deferred,
				Amount:    m.Amount,
				Err:       ErrNoFeeCoin,
			})
			continue
		}
		if ctx.Err() != nil {
			break
		}
		i, m, coin := i, m, feeCoins[i]
		g.Go(func() error {
			outcomes[i] = r.finish(ctx, r.relay(ctx, cycle, m, coin))
			return nil
		})
	}
	g.Wait()

	var out []*Outcome
	for _, o := range outcomes {
		if o != nil {
			out = append(out, o)
		}
	}
	return out, nil
}

// feeCoins returns the coins that can each pay the full fee of one
// relay transaction.
func (r *Relayer) feeCoins(coins []*fuel.Coin) []*fuel.Coin {
	maxFee := (&fuel.Transaction{GasPrice: r.cfg.GasPrice, GasLimit: MinGasLimit}).MaxFee()
	var out []*fuel.Coin
	for _, c := range coins {
		if c.AssetID == fuel.BaseAsset && c.Amount >= maxFee {
			out = append(out, c)
		}
	}
	return out
}

// relay builds, signs, and submits the transaction forwarding m, with
// its fee paid by coin.
func (r *Relayer) relay(ctx context.Context, cycle string, m *fuel.Message, coin *fuel.Coin) *Outcome {
	out := &Outcome{
		Cycle:     cycle,
		MessageID: m.ID(),
		Amount:    m.Amount,
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			out.Status, out.Err = Deferred, err
			return out
		}
	}

	// From here on the relay runs to completion even if ctx is canceled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Duration(r.cfg.SubmitTimeout))
	defer cancel()

	contract, err := TargetContract(m.Data)
	if err != nil {
		out.Status, out.Err = Rejected, err
		return out
	}
	out.Contract = contract

	tx, err := BuildRelayTx(&RelayTxRequest{
		Message:  m.PredicateInput(r.artifacts.Predicate, nil),
		Contract: &fuel.ContractInput{ContractID: contract},
		Fee:      []fuel.Input{coin.Input(0)},
		Script:   r.artifacts.Script,
		GasPrice: r.cfg.GasPrice,
		Maturity: r.cfg.Maturity,
	})
	if err != nil {
		out.Status, out.Err = Rejected, errors.Wrap(err, "building relay tx")
		return out
	}
	out.TxID = tx.ID()

	err = r.signer.Sign(ctx, tx)
	if err != nil {
		out.Status, out.Err = Failed, errors.Wrap(err, "signing relay tx")
		return out
	}

	receipts, err := r.node.Submit(ctx, tx)
	if err != nil {
		out.Status = Failed
		if fuel.IsInvalid(err) {
			out.Status = Rejected
		}
		out.Err = errors.Wrap(err, "submitting relay tx")
		return out
	}
	out.Receipts = receipts

	if fuel.Reverted(receipts) {
		out.Status = Reverted
		out.Err = ErrReverted
		for _, rc := range receipts {
			if rc.Type == fuel.ReceiptRevert {
				out.Err = errors.WithDetailf(ErrReverted, "code %#x", rc.Val)
			}
		}
		return out
	}
	out.Status = Forwarded
	return out
}

func (r *Relayer) attempt(id fuel.MessageID) *attempt {
	v, ok := r.attempts.Get(id)
	if !ok {
		return nil
	}
	return v.(*attempt)
}

func (r *Relayer) isRejected(id fuel.MessageID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rejected[id]
}

// finish updates the attempt history of o's message, then logs,
// records, and publishes o.
func (r *Relayer) finish(ctx context.Context, o *Outcome) *Outcome {
	o.At = r.now()

	switch o.Status {
	case Forwarded:
		r.attempts.Remove(o.MessageID)
		log.Printf("cycle %s: message %s: %s in tx %s (%d to %s)", o.Cycle, o.MessageID, o.Status, o.TxID, o.Amount, o.Contract)

	case Reverted, Failed:
		a := r.attempt(o.MessageID)
		if a == nil {
			a = &attempt{backoff: snet.Backoff{Base: time.Duration(r.cfg.Interval) / 2}}
			r.attempts.Add(o.MessageID, a)
		}
		a.tries++
		delay := a.backoff.Next()
		if max := time.Duration(r.cfg.MaxRetryDelay); delay > max {
			delay = max
		}
		a.next = o.At.Add(delay)
		log.Printf("cycle %s: message %s: %s after %d tries, retrying in %s: %s", o.Cycle, o.MessageID, o.Status, a.tries, delay, o.Err)

	default:
		if o.Status == Rejected {
			r.mu.Lock()
			r.rejected[o.MessageID] = true
			r.mu.Unlock()
			r.attempts.Remove(o.MessageID)
		}
		log.Printf("cycle %s: message %s: %s: %s", o.Cycle, o.MessageID, o.Status, o.Err)
	}

	if r.Store != nil {
		rec := &store.Record{
			MessageID: o.MessageID,
			CycleID:   o.Cycle,
			Outcome:   o.Status.String(),
			TxID:      o.TxID,
			Contract:  o.Contract,
			Amount:    o.Amount,
			At:        o.At,
		}
		if o.Err != nil {
			rec.Detail = o.Err.Error()
		}
		err := r.Store.Record(context.WithoutCancel(ctx), rec)
		if err != nil {
			log.Printf("cycle %s: %s", o.Cycle, err)
		}
	}

	r.w.Write(o)
	return o
}
