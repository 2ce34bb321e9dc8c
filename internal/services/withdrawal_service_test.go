package services

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"investbot/internal/models"

	"github.com/shopspring/decimal"
)

var testStart = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func testPosition() *models.Position {
	// $1000 at 17% + 1.5% duration bonus over 6 months, $500 cash bonus
	// unlocking at the half term.
	return &models.Position{
		Id:                sql.NullInt64{Int64: 7, Valid: true},
		UserId:            1,
		Tier:              "Standard",
		Principal:         decimal.NewFromInt(1000),
		DurationMonths:    6,
		BaseRate:          decimal.NewFromInt(17),
		DurationBonusRate: decimal.RequireFromString("1.5"),
		EffectiveRate:     decimal.RequireFromString("18.5"),
		CashBonus:         decimal.NewFromInt(500),
		BonusUnlockAt:     sql.NullTime{Time: testStart.AddDate(0, 0, 90), Valid: true},
		StartDate:         sql.NullTime{Time: testStart, Valid: true},
		EndDate:           sql.NullTime{Time: testStart.AddDate(0, 0, 180), Valid: true},
		State:             models.PositionActive,
	}
}

func TestResolveRequestFull(t *testing.T) {
	p := testPosition()

	// Day 90: principal 1000 + interest 555 + cash bonus 500.
	_, amount, err := resolveRequest(p, models.WithdrawalFull, "", decimal.Zero, testStart.AddDate(0, 0, 90))
	if err != nil {
		t.Fatal(err)
	}
	if !amount.Equal(decimal.NewFromInt(2055)) {
		t.Errorf("full amount = %s, want 2055", amount)
	}

	p.BonusWithdrawn = true
	_, amount, err = resolveRequest(p, models.WithdrawalFull, "", decimal.Zero, testStart.AddDate(0, 0, 90))
	if err != nil {
		t.Fatal(err)
	}
	if !amount.Equal(decimal.NewFromInt(1555)) {
		t.Errorf("full amount with bonus already taken = %s, want 1555", amount)
	}
}

func TestResolveRequestRejectsInactivePosition(t *testing.T) {
	p := testPosition()
	p.State = models.PositionPendingPayment

	_, _, err := resolveRequest(p, models.WithdrawalFull, "", decimal.Zero, testStart.AddDate(0, 0, 10))
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestResolveRequestEarlyWindow(t *testing.T) {
	p := testPosition()

	// Day 30 is still inside the window: principal + 30 days of interest.
	_, amount, err := resolveRequest(p, models.WithdrawalEarly, "", decimal.Zero, testStart.AddDate(0, 0, 30))
	if err != nil {
		t.Fatal(err)
	}
	if !amount.Equal(decimal.NewFromInt(1185)) {
		t.Errorf("early amount at day 30 = %s, want 1185", amount)
	}

	// Day 31 is out.
	_, _, err = resolveRequest(p, models.WithdrawalEarly, "", decimal.Zero, testStart.AddDate(0, 0, 31))
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("err at day 31 = %v, want ErrValidation", err)
	}
}

func TestResolveRequestProfit(t *testing.T) {
	p := testPosition()
	now := testStart.AddDate(0, 0, 90)

	kind, amount, err := resolveRequest(p, models.WithdrawalPartial, models.PartialKindProfit, decimal.NewFromInt(200), now)
	if err != nil {
		t.Fatal(err)
	}
	if kind.String != models.PartialKindProfit || !amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("got kind=%s amount=%s, want PROFIT 200", kind.String, amount)
	}

	// 555 accrued at day 90; 600 is too much.
	_, _, err = resolveRequest(p, models.WithdrawalPartial, models.PartialKindProfit, decimal.NewFromInt(600), now)
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}

	// Already withdrawn profit shrinks the available amount.
	p.WithdrawnProfit = decimal.NewFromInt(400)
	_, _, err = resolveRequest(p, models.WithdrawalPartial, models.PartialKindProfit, decimal.NewFromInt(200), now)
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("err after prior withdrawal = %v, want ErrValidation", err)
	}
}

func TestResolveRequestBonus(t *testing.T) {
	p := testPosition()

	// Locked until day 90.
	_, _, err := resolveRequest(p, models.WithdrawalPartial, models.PartialKindBonus, decimal.Zero, testStart.AddDate(0, 0, 89))
	if !errors.Is(err, models.ErrBonusNotEligible) {
		t.Errorf("err before unlock = %v, want ErrBonusNotEligible", err)
	}

	// The payout amount is the granted bonus, whatever the caller sent.
	kind, amount, err := resolveRequest(p, models.WithdrawalPartial, models.PartialKindBonus, decimal.NewFromInt(9999), testStart.AddDate(0, 0, 90))
	if err != nil {
		t.Fatal(err)
	}
	if kind.String != models.PartialKindBonus || !amount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("got kind=%s amount=%s, want BONUS 500", kind.String, amount)
	}

	p.BonusWithdrawn = true
	_, _, err = resolveRequest(p, models.WithdrawalPartial, models.PartialKindBonus, decimal.Zero, testStart.AddDate(0, 0, 90))
	if !errors.Is(err, models.ErrBonusNotEligible) {
		t.Errorf("err after withdrawal = %v, want ErrBonusNotEligible", err)
	}
}

func TestInferPartialKind(t *testing.T) {
	p := testPosition()

	if got := inferPartialKind(p, decimal.NewFromInt(500)); got != models.PartialKindBonus {
		t.Errorf("inferPartialKind(500) = %s, want BONUS", got)
	}
	if got := inferPartialKind(p, decimal.RequireFromString("500.005")); got != models.PartialKindBonus {
		t.Errorf("inferPartialKind(500.005) = %s, want BONUS", got)
	}
	if got := inferPartialKind(p, decimal.NewFromInt(200)); got != models.PartialKindProfit {
		t.Errorf("inferPartialKind(200) = %s, want PROFIT", got)
	}
}

func TestBonusPayoutHonorsGrantedEntitlement(t *testing.T) {
	// An amount upgrade grows the principal past the next bonus threshold
	// without touching the grant; the payout stays at the granted figure.
	p := testPosition()
	p.Principal = decimal.NewFromInt(1200)
	p.CashBonus = decimal.NewFromInt(200)

	kind, amount, err := resolveRequest(p, models.WithdrawalPartial, models.PartialKindBonus, decimal.Zero, testStart.AddDate(0, 0, 90))
	if err != nil {
		t.Fatal(err)
	}
	if kind.String != models.PartialKindBonus || !amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("got kind=%s amount=%s, want BONUS 200 as granted", kind.String, amount)
	}

	if got := inferPartialKind(p, decimal.NewFromInt(200)); got != models.PartialKindBonus {
		t.Errorf("inferPartialKind(200) = %s, want BONUS", got)
	}
	if got := inferPartialKind(p, decimal.NewFromInt(500)); got != models.PartialKindProfit {
		t.Errorf("inferPartialKind(500) = %s, want PROFIT", got)
	}
}

func TestBonusIneligibleWithoutGrant(t *testing.T) {
	// A position that started without a bonus keeps its zero grant even
	// after a duration upgrade makes the current terms bonus-worthy.
	p := testPosition()
	p.CashBonus = decimal.Zero

	_, _, err := resolveRequest(p, models.WithdrawalPartial, models.PartialKindBonus, decimal.Zero, testStart.AddDate(0, 0, 90))
	if !errors.Is(err, models.ErrBonusNotEligible) {
		t.Errorf("err = %v, want ErrBonusNotEligible", err)
	}
}

type fakeWithdrawalStore struct {
	pending  int
	requests map[int64]*models.WithdrawalRequest
	saved    int
	approved int
}

func (f *fakeWithdrawalStore) Save(req *models.WithdrawalRequest) error {
	f.saved++
	return nil
}

func (f *fakeWithdrawalStore) FindById(id int64) *models.WithdrawalRequest {
	return f.requests[id]
}

func (f *fakeWithdrawalStore) CountPendingByPosition(positionId uint64) int {
	return f.pending
}

func (f *fakeWithdrawalStore) ApproveFull(requestId, positionId int64) (bool, error) {
	f.approved++
	return true, nil
}

func (f *fakeWithdrawalStore) ApproveEarly(requestId, positionId int64) (bool, error) {
	f.approved++
	return true, nil
}

func (f *fakeWithdrawalStore) ApproveProfit(requestId, positionId int64, amount decimal.Decimal) (bool, error) {
	f.approved++
	return true, nil
}

func (f *fakeWithdrawalStore) ApproveBonus(requestId, positionId int64) (bool, error) {
	f.approved++
	return true, nil
}

func (f *fakeWithdrawalStore) Reject(requestId int64, reason string) (bool, error) {
	return true, nil
}

type fixedPosition struct{ p *models.Position }

func (f fixedPosition) GetById(positionId int64) (*models.Position, error) {
	return f.p, nil
}

func TestRequestWithdrawalConflictsWithPending(t *testing.T) {
	store := &fakeWithdrawalStore{pending: 1}
	s := NewWithdrawalService(store, fixedPosition{testPosition()}, nil, nil)

	_, err := s.RequestWithdrawal(7, models.WithdrawalFull, "", decimal.Zero, "dest-wallet")
	if !errors.Is(err, models.ErrConflictingRequest) {
		t.Fatalf("err = %v, want ErrConflictingRequest", err)
	}
	if store.saved != 0 {
		t.Errorf("request persisted despite a pending one on the position")
	}
}

func TestApproveRequestIdempotent(t *testing.T) {
	stored := &models.WithdrawalRequest{
		Id:     sql.NullInt64{Int64: 42, Valid: true},
		Flavor: models.WithdrawalFull,
		Amount: decimal.NewFromInt(2055),
		State:  models.RequestApproved,
	}
	store := &fakeWithdrawalStore{requests: map[int64]*models.WithdrawalRequest{42: stored}}
	s := NewWithdrawalService(store, fixedPosition{testPosition()}, nil, nil)

	got, err := s.ApproveRequest(42)
	if err != nil {
		t.Fatal(err)
	}
	if got != stored {
		t.Errorf("second approval did not return the stored request")
	}
	if store.approved != 0 {
		t.Errorf("second approval touched the ledger")
	}
}

func TestApproveRequestRefusesRejected(t *testing.T) {
	stored := &models.WithdrawalRequest{
		Id:     sql.NullInt64{Int64: 43, Valid: true},
		Flavor: models.WithdrawalFull,
		State:  models.RequestRejected,
	}
	store := &fakeWithdrawalStore{requests: map[int64]*models.WithdrawalRequest{43: stored}}
	s := NewWithdrawalService(store, fixedPosition{testPosition()}, nil, nil)

	if _, err := s.ApproveRequest(43); !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
	if store.approved != 0 {
		t.Errorf("approval of a rejected request touched the ledger")
	}
}
