package auction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lead_exchange_backend/internal/auction/client"
	txrepo "lead_exchange_backend/internal/auction/repository"
	"lead_exchange_backend/internal/buyers/eligibility"
	buyersrepo "lead_exchange_backend/internal/buyers/repository"
	"lead_exchange_backend/internal/events"
	"lead_exchange_backend/internal/leads/domain"
	leadsrepo "lead_exchange_backend/internal/leads/repository"
	"lead_exchange_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeResolver struct {
	resolution eligibility.Resolution
	err        error
}

func (f *fakeResolver) Resolve(_ context.Context, _ uuid.UUID, _ string, _ eligibility.Options) (eligibility.Resolution, error) {
	return f.resolution, f.err
}

type fakeLeadStore struct {
	mu      sync.Mutex
	status  map[uuid.UUID]domain.Status
	history []leadsrepo.AppendHistoryParams
	winners map[uuid.UUID]uuid.UUID
}

func newFakeLeadStore(id uuid.UUID, status domain.Status) *fakeLeadStore {
	return &fakeLeadStore{
		status:  map[uuid.UUID]domain.Status{id: status},
		winners: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeLeadStore) UpdateStatusIf(_ context.Context, id uuid.UUID, expected domain.Status, write leadsrepo.StatusWrite) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status[id] != expected {
		return false, nil
	}
	f.status[id] = write.Status
	if !domain.HasWinner(write.Status) {
		delete(f.winners, id)
	} else if write.WinningBuyerID != nil {
		f.winners[id] = *write.WinningBuyerID
	}
	return true, nil
}

func (f *fakeLeadStore) AppendHistory(_ context.Context, params leadsrepo.AppendHistoryParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, params)
	return nil
}

func (f *fakeLeadStore) currentStatus(id uuid.UUID) domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[id]
}

type fakeLedger struct {
	mu   sync.Mutex
	rows []txrepo.AppendParams
}

func (f *fakeLedger) Append(_ context.Context, params txrepo.AppendParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, params)
	return nil
}

func (f *fakeLedger) count(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.ActionType == action {
			n++
		}
	}
	return n
}

type pingBehavior struct {
	reply client.PingReply
	err   error
	delay time.Duration
}

type fakeCaller struct {
	mu      sync.Mutex
	pings   map[string]pingBehavior // keyed by buyer ref
	postErr error
	posts   []string
}

func (f *fakeCaller) Ping(ctx context.Context, buyer buyersrepo.Buyer, _ map[string]any) (client.PingReply, client.CallResult, error) {
	f.mu.Lock()
	behavior := f.pings[buyer.Ref]
	f.mu.Unlock()

	if behavior.delay > 0 {
		select {
		case <-time.After(behavior.delay):
		case <-ctx.Done():
			return client.PingReply{}, client.CallResult{Attempts: 1}, ctx.Err()
		}
	}
	if behavior.err != nil {
		return client.PingReply{}, client.CallResult{Attempts: 1}, behavior.err
	}
	return behavior.reply, client.CallResult{HTTPStatus: 200, Body: "{}", Attempts: 1}, nil
}

func (f *fakeCaller) Post(_ context.Context, buyer buyersrepo.Buyer, _ map[string]any) (client.CallResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, buyer.Ref)
	if f.postErr != nil {
		return client.CallResult{Attempts: 1}, f.postErr
	}
	return client.CallResult{HTTPStatus: 200, Body: `{"received":true}`, Attempts: 1}, nil
}

type testConfig struct {
	deadline     time.Duration
	pingTimeout  time.Duration
	noBidsPolicy string
}

func (c testConfig) GetAuctionDeadline() time.Duration    { return c.deadline }
func (c testConfig) GetDefaultPingTimeout() time.Duration { return c.pingTimeout }
func (c testConfig) GetPostTimeout() time.Duration        { return 5 * time.Second }
func (c testConfig) GetMaxRetryAttempts() int             { return 0 }
func (c testConfig) GetNoBidsPolicy() string              { return c.noBidsPolicy }

func defaultTestConfig() testConfig {
	return testConfig{deadline: 2 * time.Second, pingTimeout: time.Second, noBidsPolicy: "REJECTED"}
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func candidate(ref string, priority int, floor, ceiling *decimal.Decimal) eligibility.EligibleBuyer {
	return eligibility.EligibleBuyer{
		Buyer:            buyersrepo.Buyer{ID: uuid.New(), Ref: ref, Name: ref, IsActive: true},
		Config:           buyersrepo.ServiceConfig{IsActive: true},
		Zone:             buyersrepo.ZipCoverage{Priority: priority, IsActive: true},
		Priority:         priority,
		EffectiveFloor:   floor,
		EffectiveCeiling: ceiling,
	}
}

func testLead() leadsrepo.Lead {
	return leadsrepo.Lead{
		ID:            uuid.New(),
		ServiceTypeID: uuid.New(),
		ZipCode:       "10001",
		RawData:       map[string]any{"firstName": "Jane", "phone": "5551234567"},
		Status:        domain.StatusPending,
	}
}

func newTestCoordinator(resolver *fakeResolver, store *fakeLeadStore, ledger *fakeLedger, caller *fakeCaller, cfg testConfig) *Coordinator {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	return NewCoordinator(resolver, store, ledger, caller, bus, cfg, log)
}

func TestRunOutOfRangeBidLosesToInRangeBid(t *testing.T) {
	lead := testLead()
	a := candidate("network-a", 150, decPtr("20"), decPtr("100"))
	b := candidate("contractor-b", 100, decPtr("20"), decPtr("100"))

	resolver := &fakeResolver{resolution: eligibility.Resolution{Eligible: []eligibility.EligibleBuyer{a, b}}}
	store := newFakeLeadStore(lead.ID, domain.StatusPending)
	ledger := &fakeLedger{}
	caller := &fakeCaller{pings: map[string]pingBehavior{
		"network-a":    {reply: client.PingReply{Accepted: true, Bid: decPtr("150")}},
		"contractor-b": {reply: client.PingReply{Accepted: true, Bid: decPtr("45")}},
	}}

	coord := newTestCoordinator(resolver, store, ledger, caller, defaultTestConfig())
	result, err := coord.Run(context.Background(), lead)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Winner == nil {
		t.Fatal("expected a winner")
	}
	if result.Winner.Buyer.Buyer.Ref != "contractor-b" {
		t.Fatalf("expected contractor-b to win, got %s", result.Winner.Buyer.Buyer.Ref)
	}
	if !result.Winner.Bid.Equal(dec("45")) {
		t.Fatalf("expected winning bid 45, got %s", result.Winner.Bid)
	}

	var outOfRange int
	for _, o := range result.Outcomes {
		if o.Classification == OutcomeOutOfRange {
			outOfRange++
		}
	}
	if outOfRange != 1 {
		t.Fatalf("expected 1 bid_out_of_range outcome, got %d", outOfRange)
	}

	if got := store.currentStatus(lead.ID); got != domain.StatusSold {
		t.Fatalf("expected lead SOLD after delivered post, got %s", got)
	}
	if store.winners[lead.ID] != b.Buyer.ID {
		t.Fatal("winning buyer id not pinned to contractor-b")
	}
}

func TestRunNoValidBidsNeverSells(t *testing.T) {
	lead := testLead()
	a := candidate("network-a", 150, decPtr("20"), decPtr("100"))
	b := candidate("contractor-b", 100, nil, nil)

	resolver := &fakeResolver{resolution: eligibility.Resolution{Eligible: []eligibility.EligibleBuyer{a, b}}}
	store := newFakeLeadStore(lead.ID, domain.StatusPending)
	ledger := &fakeLedger{}
	caller := &fakeCaller{pings: map[string]pingBehavior{
		"network-a":    {reply: client.PingReply{Accepted: false, Reason: "zip not wanted"}},
		"contractor-b": {err: errors.New("connection reset")},
	}}

	coord := newTestCoordinator(resolver, store, ledger, caller, defaultTestConfig())
	result, err := coord.Run(context.Background(), lead)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.State != RunNoBids {
		t.Fatalf("expected NO_BIDS, got %s", result.State)
	}
	if got := store.currentStatus(lead.ID); got != domain.StatusRejected {
		t.Fatalf("expected REJECTED per policy, got %s", got)
	}
	if len(caller.posts) != 0 {
		t.Fatal("no POST may be sent without a winner")
	}
	if ledger.count(txrepo.ActionPing) != 2 {
		t.Fatalf("every ping must be recorded, got %d rows", ledger.count(txrepo.ActionPing))
	}
}

func TestRunNoBidsExpiredPolicy(t *testing.T) {
	lead := testLead()
	resolver := &fakeResolver{resolution: eligibility.Resolution{}}
	store := newFakeLeadStore(lead.ID, domain.StatusPending)

	cfg := defaultTestConfig()
	cfg.noBidsPolicy = "EXPIRED"
	coord := newTestCoordinator(resolver, store, &fakeLedger{}, &fakeCaller{}, cfg)

	result, err := coord.Run(context.Background(), lead)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != RunNoBids {
		t.Fatalf("expected NO_BIDS, got %s", result.State)
	}
	if got := store.currentStatus(lead.ID); got != domain.StatusExpired {
		t.Fatalf("expected EXPIRED per policy, got %s", got)
	}
}

func TestRunTieBreakByZonePriority(t *testing.T) {
	lead := testLead()
	low := candidate("low-priority", 50, nil, nil)
	high := candidate("high-priority", 200, nil, nil)

	resolver := &fakeResolver{resolution: eligibility.Resolution{Eligible: []eligibility.EligibleBuyer{high, low}}}
	store := newFakeLeadStore(lead.ID, domain.StatusPending)
	caller := &fakeCaller{pings: map[string]pingBehavior{
		"low-priority":  {reply: client.PingReply{Accepted: true, Bid: decPtr("60")}},
		"high-priority": {reply: client.PingReply{Accepted: true, Bid: decPtr("60")}},
	}}

	coord := newTestCoordinator(resolver, store, &fakeLedger{}, caller, defaultTestConfig())
	result, err := coord.Run(context.Background(), lead)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Winner == nil || result.Winner.Buyer.Buyer.Ref != "high-priority" {
		t.Fatalf("expected high-priority to win the tie, got %+v", result.Winner)
	}
}

func TestRunSlowBuyerDoesNotBlockOthers(t *testing.T) {
	lead := testLead()
	slow := candidate("slow", 100, nil, nil)
	fast := candidate("fast", 100, nil, nil)

	resolver := &fakeResolver{resolution: eligibility.Resolution{Eligible: []eligibility.EligibleBuyer{slow, fast}}}
	store := newFakeLeadStore(lead.ID, domain.StatusPending)
	caller := &fakeCaller{pings: map[string]pingBehavior{
		"slow": {delay: 5 * time.Second, reply: client.PingReply{Accepted: true, Bid: decPtr("90")}},
		"fast": {reply: client.PingReply{Accepted: true, Bid: decPtr("30")}},
	}}

	cfg := defaultTestConfig()
	cfg.pingTimeout = 100 * time.Millisecond
	cfg.deadline = 300 * time.Millisecond
	coord := newTestCoordinator(resolver, store, &fakeLedger{}, caller, cfg)

	result, err := coord.Run(context.Background(), lead)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Winner == nil || result.Winner.Buyer.Buyer.Ref != "fast" {
		t.Fatalf("expected fast buyer to win while slow times out, got %+v", result.Winner)
	}
	var timedOut bool
	for _, o := range result.Outcomes {
		if o.Buyer.Buyer.Ref == "slow" && o.Classification == OutcomeError {
			timedOut = true
		}
	}
	if !timedOut {
		t.Fatal("expected slow buyer classified as error")
	}
}

func TestRunPostFailureLeavesLeadAuctioned(t *testing.T) {
	lead := testLead()
	only := candidate("solo", 100, nil, nil)

	resolver := &fakeResolver{resolution: eligibility.Resolution{Eligible: []eligibility.EligibleBuyer{only}}}
	store := newFakeLeadStore(lead.ID, domain.StatusPending)
	ledger := &fakeLedger{}
	caller := &fakeCaller{
		pings:   map[string]pingBehavior{"solo": {reply: client.PingReply{Accepted: true, Bid: decPtr("75")}}},
		postErr: errors.New("upstream error: status 502"),
	}

	coord := newTestCoordinator(resolver, store, ledger, caller, defaultTestConfig())
	result, err := coord.Run(context.Background(), lead)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := store.currentStatus(lead.ID); got != domain.StatusAuctioned {
		t.Fatalf("expected lead to stay AUCTIONED on failed post, got %s", got)
	}
	if result.PostDelivered {
		t.Fatal("post must not be marked delivered")
	}
	if ledger.count(txrepo.ActionPost) != 1 {
		t.Fatalf("failed post must still be recorded, got %d rows", ledger.count(txrepo.ActionPost))
	}
}

func TestRunConcurrentRunsForSameLead(t *testing.T) {
	lead := testLead()
	only := candidate("solo", 100, nil, nil)

	resolver := &fakeResolver{resolution: eligibility.Resolution{Eligible: []eligibility.EligibleBuyer{only}}}
	store := newFakeLeadStore(lead.ID, domain.StatusPending)
	caller := &fakeCaller{pings: map[string]pingBehavior{
		"solo": {delay: 50 * time.Millisecond, reply: client.PingReply{Accepted: true, Bid: decPtr("75")}},
	}}

	coord := newTestCoordinator(resolver, store, &fakeLedger{}, caller, defaultTestConfig())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = coord.Run(context.Background(), lead)
		}()
	}
	wg.Wait()

	var conflicts int
	for _, err := range errs {
		if errors.Is(err, ErrAlreadyRunning) {
			conflicts++
		} else if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if conflicts != 1 {
		t.Fatalf("expected exactly one run to lose the claim, got %d", conflicts)
	}
	if got := store.currentStatus(lead.ID); got != domain.StatusSold {
		t.Fatalf("expected the surviving run to sell the lead, got %s", got)
	}
}

func TestRunAcceptedWithoutBidIsError(t *testing.T) {
	lead := testLead()
	only := candidate("solo", 100, nil, nil)

	resolver := &fakeResolver{resolution: eligibility.Resolution{Eligible: []eligibility.EligibleBuyer{only}}}
	store := newFakeLeadStore(lead.ID, domain.StatusPending)
	caller := &fakeCaller{pings: map[string]pingBehavior{
		"solo": {reply: client.PingReply{Accepted: true}},
	}}

	coord := newTestCoordinator(resolver, store, &fakeLedger{}, caller, defaultTestConfig())
	result, err := coord.Run(context.Background(), lead)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.State != RunNoBids {
		t.Fatalf("expected NO_BIDS, got %s", result.State)
	}
	if result.Outcomes[0].Classification != OutcomeError {
		t.Fatalf("accepted reply without bid must classify as error, got %s", result.Outcomes[0].Classification)
	}
}
