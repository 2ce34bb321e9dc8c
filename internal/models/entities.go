package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	Id        sql.NullInt64 `db:"id" json:"id"`
	Username  string        `db:"username" json:"username"`
	InviterId sql.NullInt64 `db:"inviter_id" json:"inviter_id"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

type Plan struct {
	Id        sql.NullInt64   `db:"id" json:"id"`
	Tier      string          `db:"tier" json:"tier"`
	BaseRate  decimal.Decimal `db:"base_rate" json:"base_rate"`
	MinAmount decimal.Decimal `db:"min_amount" json:"min_amount"`
	MaxAmount decimal.Decimal `db:"max_amount" json:"max_amount"`
	IsActive  bool            `db:"is_active" json:"is_active"`
}

const (
	PositionPendingPayment = "PENDING_PAYMENT"
	PositionActive         = "ACTIVE"
	PositionCompleted      = "COMPLETED"
	PositionEarlyWithdrawn = "EARLY_WITHDRAWN"
	PositionExpired        = "EXPIRED"
)

type Position struct {
	Id                  sql.NullInt64   `db:"id" json:"id"`
	UserId              uint64          `db:"user_id" json:"user_id"`
	Tier                string          `db:"tier" json:"tier"`
	Principal           decimal.Decimal `db:"principal" json:"principal"`
	DurationMonths      int             `db:"duration_months" json:"duration_months"`
	BaseRate            decimal.Decimal `db:"base_rate" json:"base_rate"`
	DurationBonusRate   decimal.Decimal `db:"duration_bonus_rate" json:"duration_bonus_rate"`
	EffectiveRate       decimal.Decimal `db:"effective_rate" json:"effective_rate"`
	CashBonus           decimal.Decimal `db:"cash_bonus" json:"cash_bonus"`
	BonusUnlockAt       sql.NullTime    `db:"bonus_unlock_at" json:"bonus_unlock_at"`
	BonusWithdrawn      bool            `db:"bonus_withdrawn" json:"bonus_withdrawn"`
	StartDate           sql.NullTime    `db:"start_date" json:"start_date"`
	EndDate             sql.NullTime    `db:"end_date" json:"end_date"`
	WithdrawnProfit     decimal.Decimal `db:"withdrawn_profit" json:"withdrawn_profit"`
	AccumulatedInterest decimal.Decimal `db:"accumulated_interest" json:"accumulated_interest"`
	SourceAddress       string          `db:"source_address" json:"source_address"`
	State               string          `db:"state" json:"state"`
	LastUpgradeAt       sql.NullTime    `db:"last_upgrade_at" json:"last_upgrade_at"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

const (
	WithdrawalFull    = "FULL"
	WithdrawalPartial = "PARTIAL"
	WithdrawalEarly   = "EARLY"

	PartialKindProfit = "PROFIT"
	PartialKindBonus  = "BONUS"

	RequestPending  = "PENDING"
	RequestApproved = "APPROVED"
	RequestRejected = "REJECTED"
)

type WithdrawalRequest struct {
	Id           sql.NullInt64   `db:"id" json:"id"`
	Reference    string          `db:"reference" json:"reference"`
	PositionId   uint64          `db:"position_id" json:"position_id"`
	Flavor       string          `db:"flavor" json:"flavor"`
	Kind         sql.NullString  `db:"kind" json:"kind"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Destination  string          `db:"destination" json:"destination"`
	State        string          `db:"state" json:"state"`
	RejectReason sql.NullString  `db:"reject_reason" json:"reject_reason"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  sql.NullTime    `db:"processed_at" json:"processed_at"`
}

const (
	UpgradeKindAmount   = "AMOUNT"
	UpgradeKindDuration = "DURATION"
)

type UpgradeRequest struct {
	Id               sql.NullInt64   `db:"id" json:"id"`
	Reference        string          `db:"reference" json:"reference"`
	PositionId       uint64          `db:"position_id" json:"position_id"`
	Kind             string          `db:"kind" json:"kind"`
	NewTier          sql.NullString  `db:"new_tier" json:"new_tier"`
	AdditionalAmount decimal.Decimal `db:"additional_amount" json:"additional_amount"`
	SourceAddress    sql.NullString  `db:"source_address" json:"source_address"`
	NewDuration      sql.NullInt64   `db:"new_duration" json:"new_duration"`
	InterestSnapshot decimal.Decimal `db:"interest_snapshot" json:"interest_snapshot"`
	State            string          `db:"state" json:"state"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt      sql.NullTime    `db:"processed_at" json:"processed_at"`
}

type ReferralEdge struct {
	Id        sql.NullInt64 `db:"id" json:"id"`
	InviterId uint64        `db:"inviter_id" json:"inviter_id"`
	InviteeId uint64        `db:"invitee_id" json:"invitee_id"`
	Level     int           `db:"level" json:"level"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

type ReferralEarning struct {
	Id            sql.NullInt64   `db:"id" json:"id"`
	InviterId     uint64          `db:"inviter_id" json:"inviter_id"`
	InviteeId     uint64          `db:"invitee_id" json:"invitee_id"`
	DepositAmount decimal.Decimal `db:"deposit_amount" json:"deposit_amount"`
	Level         int             `db:"level" json:"level"`
	Rate          decimal.Decimal `db:"rate" json:"rate"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	DepositAt     time.Time       `db:"deposit_at" json:"deposit_at"`
	Withdrawn     bool            `db:"withdrawn" json:"withdrawn"`
	WithdrawnAt   sql.NullTime    `db:"withdrawn_at" json:"withdrawn_at"`
}

const (
	PayoutWithdraw = "WITHDRAW"
	PayoutReinvest = "REINVEST"
)

type ReferralPayout struct {
	Id          sql.NullInt64   `db:"id" json:"id"`
	Reference   string          `db:"reference" json:"reference"`
	InviterId   uint64          `db:"inviter_id" json:"inviter_id"`
	Mode        string          `db:"mode" json:"mode"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Destination sql.NullString  `db:"destination" json:"destination"`
	PositionId  sql.NullInt64   `db:"position_id" json:"position_id"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type Operation struct {
	Id           sql.NullInt64 `db:"id" json:"id"`
	UserId       uint64        `db:"user_id" json:"user_id"`
	NumOperation int           `db:"num_operation" json:"num_operation"`
	Name         string        `db:"name" json:"name"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	Description  string        `db:"description" json:"description"`
}

type Telegram struct {
	Id         sql.NullInt64 `db:"id" json:"id"`
	UserId     uint64        `db:"user_id" json:"user_id"`
	TelegramId uint64        `db:"telegram_id" json:"telegram_id"`
	Username   string        `db:"username" json:"username"`
}
