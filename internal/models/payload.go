package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type NotificationPosition struct {
	Position *Position
	Msg      string
}

type PositionView struct {
	PositionId      int64           `json:"position_id"`
	Tier            string          `json:"tier"`
	Principal       decimal.Decimal `json:"principal"`
	DurationMonths  int             `json:"duration_months"`
	EffectiveRate   decimal.Decimal `json:"effective_rate"`
	ExpectedReturn  decimal.Decimal `json:"expected_return"`
	CurrentReturn   decimal.Decimal `json:"current_return"`
	AvailableProfit decimal.Decimal `json:"available_profit"`
	CashBonus       decimal.Decimal `json:"cash_bonus"`
	BonusUnlocked   bool            `json:"bonus_unlocked"`
	BonusWithdrawn  bool            `json:"bonus_withdrawn"`
	State           string          `json:"state"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
}

type ReferralEntry struct {
	InviteeId uint64          `json:"invitee_id"`
	Rank      int             `json:"rank,omitempty"`
	Rate      decimal.Decimal `json:"rate"`
	Earned    decimal.Decimal `json:"earned"`
	JoinedAt  time.Time       `json:"joined_at"`
}

type ReferralSummary struct {
	InviterId     uint64          `json:"inviter_id"`
	Level1        []ReferralEntry `json:"level1"`
	Level2        []ReferralEntry `json:"level2"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
}

type CreatedPosition struct {
	PositionId     int64  `json:"position_id"`
	PaymentAddress string `json:"payment_address"`
}
