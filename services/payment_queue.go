package services

import (
	"sort"
	"time"

	"hotel-ledger/clock"
	"hotel-ledger/models"
)

// QueueEntry is one night's slot in the allocation order.
type QueueEntry struct {
	NightID uint
	Date    time.Time
	RoomID  uint
	Share   int64
	Paid    bool
}

// PaymentQueue is the deterministic order in which money settles nights:
// by date, then room, then night id.
type PaymentQueue struct {
	Entries []QueueEntry
	// Contracted is true when shares are an even split of the contracted total, which
	// makes any two shares differ by at most one minor unit.
	Contracted bool
}

// AllocationResult reports what one allocation pass did.
type AllocationResult struct {
	NightsMarked int
	Leftover     int64
	MarkedIDs    []uint
}

// SplitMinor divides total into n integer shares whose sum is exactly total. The remainder
// goes one unit at a time to the first shares.
func SplitMinor(total int64, n int) []int64 {
	if n <= 0 {
		return nil
	}
	out := make([]int64, n)
	base := total / int64(n)
	rem := total % int64(n)
	for i := range out {
		out[i] = base
		if int64(i) < rem {
			out[i]++
		}
	}
	return out
}

// BuildPaymentQueue orders the nights and assigns each its share of contractedTotal. When
// there is no contracted total the nights' own prices are used.
func BuildPaymentQueue(contractedTotal int64, nights []models.Night) (*PaymentQueue, error) {
	sorted := make([]models.Night, len(nights))
	copy(sorted, nights)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := clock.DateOf(sorted[i].Date), clock.DateOf(sorted[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		if sorted[i].RoomID != sorted[j].RoomID {
			return sorted[i].RoomID < sorted[j].RoomID
		}
		return sorted[i].ID < sorted[j].ID
	})

	q := &PaymentQueue{Entries: make([]QueueEntry, len(sorted))}
	var shares []int64
	if contractedTotal > 0 && len(sorted) > 0 {
		q.Contracted = true
		shares = SplitMinor(contractedTotal, len(sorted))
	}

	var sum int64
	for i, n := range sorted {
		share := n.Price
		if q.Contracted {
			share = shares[i]
		}
		q.Entries[i] = QueueEntry{
			NightID: n.ID,
			Date:    clock.DateOf(n.Date),
			RoomID:  n.RoomID,
			Share:   share,
			Paid:    n.Paid,
		}
		sum += share
	}

	if q.Contracted && sum != contractedTotal {
		consistencyErrors.WithLabelValues("share_sum_mismatch").Inc()
		return nil, inconsistent("share_sum_mismatch", "night shares sum to %d, contracted total is %d", sum, contractedTotal)
	}
	return q, nil
}

// Allocate spends amount on unpaid nights: the first unpaid night on target (if any)
// first, then strictly in queue order. A night is paid only when its whole share is
// covered; the pass stops at the first night it cannot cover.
func (q *PaymentQueue) Allocate(amount int64, target *time.Time) (AllocationResult, error) {
	res := AllocationResult{}
	remaining := amount
	if remaining < 0 {
		remaining = 0
	}

	if target != nil {
		day := clock.DateOf(*target)
		for i := range q.Entries {
			e := &q.Entries[i]
			if e.Paid || !e.Date.Equal(day) {
				continue
			}
			if e.Share == 0 || e.Share <= remaining {
				e.Paid = true
				remaining -= e.Share
				res.NightsMarked++
				res.MarkedIDs = append(res.MarkedIDs, e.NightID)
			}
			break
		}
	}

	blocking := -1
	for i := range q.Entries {
		e := &q.Entries[i]
		if e.Paid {
			continue
		}
		if e.Share > remaining {
			blocking = i
			break
		}
		e.Paid = true
		remaining -= e.Share
		res.NightsMarked++
		res.MarkedIDs = append(res.MarkedIDs, e.NightID)
	}
	res.Leftover = remaining

	if err := q.checkLeftover(remaining, blocking); err != nil {
		return res, err
	}
	return res, nil
}

// Rebuild clears every paid flag and re-derives them from the net ledger balance alone.
func (q *PaymentQueue) Rebuild(net int64) (AllocationResult, error) {
	for i := range q.Entries {
		q.Entries[i].Paid = false
	}
	return q.Allocate(net, nil)
}

// checkLeftover applies only to contracted queues. Priced by night, the pass stops at the
// first night it cannot cover, so a cheaper later night may legitimately stay unpaid.
func (q *PaymentQueue) checkLeftover(leftover int64, blocking int) error {
	if !q.Contracted || blocking < 0 || leftover == 0 {
		return nil
	}
	limit := q.smallestUnpaidShare()
	if leftover > limit {
		consistencyErrors.WithLabelValues("allocation_leftover").Inc()
		return inconsistent("allocation_leftover", "leftover %d exceeds the smallest unpaid share %d", leftover, limit)
	}
	return nil
}

func (q *PaymentQueue) smallestUnpaidShare() int64 {
	min := int64(-1)
	for _, e := range q.Entries {
		if e.Paid {
			continue
		}
		if min < 0 || e.Share < min {
			min = e.Share
		}
	}
	return min
}

// PaidShares is the money the queue currently considers spent.
func (q *PaymentQueue) PaidShares() int64 {
	var sum int64
	for _, e := range q.Entries {
		if e.Paid {
			sum += e.Share
		}
	}
	return sum
}

func (q *PaymentQueue) PaidCount() int {
	n := 0
	for _, e := range q.Entries {
		if e.Paid {
			n++
		}
	}
	return n
}

func (q *PaymentQueue) Total() int64 {
	var sum int64
	for _, e := range q.Entries {
		sum += e.Share
	}
	return sum
}
