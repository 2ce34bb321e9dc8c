package models

// Numeric operation codes recorded in the audit log.
const (
	OP_CREATE_POSITION = iota + 1
	OP_CONFIRM_PAYMENT
	OP_REQUEST_WITHDRAWAL
	OP_APPROVE_WITHDRAWAL
	OP_REJECT_WITHDRAWAL
	OP_REQUEST_UPGRADE
	OP_APPROVE_UPGRADE
	OP_REJECT_UPGRADE
	OP_REFERRAL_EARNING
	OP_REFERRAL_PAYOUT
	OP_REFERRAL_REINVEST
	OP_POSITION_EXPIRED
)
