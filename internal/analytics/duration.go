package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/marginscope/analytics-engine/internal/model"
)

var msPerDay = decimal.NewFromInt(int64(24 * time.Hour / time.Millisecond))

// lot is one open borrow awaiting repayment, FIFO per pool.
type lot struct {
	amount decimal.Decimal
	ts     time.Time
}

// EstimateDurations computes realized loan durations for one borrower using
// strict FIFO lot matching per pool, the same way inventory cost-basis
// accounting matches withdrawals to the oldest deposits.
//
// Each borrow event opens a lot. Each repay or liquidation event consumes
// lots from the head of that pool's queue, emitting one duration record per
// consumed slice; a partially consumed head lot is decremented in place and
// stays open.
// Repay amounts exceeding all open lots drain the queue and the remainder is
// discarded — inconsistent data under-counts realized duration rather than
// erroring. Queues are rebuilt from the full event list on every call.
func EstimateDurations(borrower model.BorrowerData) []model.DurationRecord {
	queues := make(map[string][]lot)
	var records []model.DurationRecord

	for _, ev := range borrower.Events {
		switch ev.Kind {
		case model.EventBorrow:
			queues[ev.Pool] = append(queues[ev.Pool], lot{amount: ev.Amount, ts: ev.Timestamp})

		case model.EventRepay, model.EventLiquidation:
			remaining := ev.Amount
			q := queues[ev.Pool]
			for remaining.IsPositive() && len(q) > 0 {
				head := &q[0]
				if remaining.GreaterThanOrEqual(head.amount) {
					records = append(records, model.DurationRecord{
						Pool:   ev.Pool,
						Days:   daysBetween(head.ts, ev.Timestamp),
						Amount: head.amount,
					})
					remaining = remaining.Sub(head.amount)
					q = q[1:]
				} else {
					records = append(records, model.DurationRecord{
						Pool:   ev.Pool,
						Days:   daysBetween(head.ts, ev.Timestamp),
						Amount: remaining,
					})
					head.amount = head.amount.Sub(remaining)
					remaining = decimal.Zero
				}
			}
			queues[ev.Pool] = q
		}
	}
	return records
}

func daysBetween(from, to time.Time) decimal.Decimal {
	ms := to.Sub(from).Milliseconds()
	return decimal.NewFromInt(ms).Div(msPerDay)
}
