package schedulers

import (
	"fmt"
	"time"

	"investbot/internal/accrual"
	"investbot/internal/database"
	"investbot/internal/models"
	"investbot/internal/services"
)

// ExpireUnpaidPositions sweeps PENDING_PAYMENT positions whose payment
// window has elapsed. The redis key set at creation carries the TTL; a
// position whose key is gone is past its window.
func ExpireUnpaidPositions(ps *services.PositionService, expired chan *models.NotificationPosition) func() {
	return func() {
		positions := ps.FindPendingPayment()
		if positions == nil {
			return
		}
		for _, position := range *positions {
			tracked, err := database.IsPendingPaymentTracked(position.Id.Int64)
			if err != nil || tracked {
				continue
			}
			ok, err := ps.ExpireUnpaid(position.Id.Int64)
			if err != nil || !ok {
				continue
			}
			if expired != nil {
				expired <- &models.NotificationPosition{
					Position: &position,
					Msg: fmt.Sprintf("Position #%d was cancelled: payment was not received in time.",
						position.Id.Int64),
				}
			}
		}
	}
}

// NotifyMaturedPositions tells holders of ACTIVE positions past their
// end date the full amount available. The position itself stays ACTIVE:
// it leaves that state only through an approved withdrawal. Each
// position is announced once per process lifetime.
func NotifyMaturedPositions(ps *services.PositionService, matured chan *models.NotificationPosition) func() {
	announced := make(map[int64]bool)
	return func() {
		now := time.Now()
		positions := ps.FindActivePastEnd(now)
		if positions == nil {
			return
		}
		for _, position := range *positions {
			if announced[position.Id.Int64] {
				continue
			}
			full, err := accrual.FullWithdrawalAmount(&position, now)
			if err != nil {
				continue
			}
			announced[position.Id.Int64] = true
			if matured != nil {
				matured <- &models.NotificationPosition{
					Position: &position,
					Msg: fmt.Sprintf("Position #%d reached the end of its term. %s is available for withdrawal.",
						position.Id.Int64, accrual.Round2(full)),
				}
			}
		}
	}
}
