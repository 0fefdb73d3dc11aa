package analytics

import (
	"sort"
	"strings"

	"github.com/marginscope/analytics-engine/internal/model"
)

// Sort directions accepted by FilterAndSort.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// FilterAndSort narrows borrowers by a case-insensitive substring search over
// owner, manager id, and pool ids, then sorts by the named BorrowerData
// field. Slice-valued fields compare by length, numeric fields numerically,
// timestamps chronologically, everything else as lowercased strings. An
// unknown field leaves the input order untouched. The sort is stable.
//
// The input slice is never mutated; a filtered/sorted copy is returned.
func FilterAndSort(borrowers []model.BorrowerData, searchTerm, field, direction string) []model.BorrowerData {
	out := make([]model.BorrowerData, 0, len(borrowers))

	term := strings.ToLower(strings.TrimSpace(searchTerm))
	for _, b := range borrowers {
		if term == "" || matches(b, term) {
			out = append(out, b)
		}
	}

	cmp := comparator(field)
	if cmp == nil {
		return out
	}

	desc := strings.EqualFold(direction, SortDesc)
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func matches(b model.BorrowerData, term string) bool {
	if strings.Contains(strings.ToLower(b.Owner), term) {
		return true
	}
	if strings.Contains(strings.ToLower(b.ManagerID), term) {
		return true
	}
	for _, p := range b.PoolsUsed {
		if strings.Contains(strings.ToLower(p), term) {
			return true
		}
	}
	return false
}

// comparator returns a three-way compare for the named field, or nil when
// the field is unknown.
func comparator(field string) func(a, b model.BorrowerData) int {
	switch field {
	case "owner":
		return func(a, b model.BorrowerData) int {
			return strings.Compare(strings.ToLower(a.Owner), strings.ToLower(b.Owner))
		}
	case "managerId", "manager_id":
		return func(a, b model.BorrowerData) int {
			return strings.Compare(strings.ToLower(a.ManagerID), strings.ToLower(b.ManagerID))
		}
	case "firstSeen", "first_seen":
		return func(a, b model.BorrowerData) int {
			return a.FirstSeen.Compare(b.FirstSeen)
		}
	case "lastActivity", "last_activity":
		return func(a, b model.BorrowerData) int {
			return a.LastActivity.Compare(b.LastActivity)
		}
	case "poolsUsed", "pools_used":
		return func(a, b model.BorrowerData) int {
			return len(a.PoolsUsed) - len(b.PoolsUsed)
		}
	case "events":
		return func(a, b model.BorrowerData) int {
			return len(a.Events) - len(b.Events)
		}
	case "totalOutstandingDebt", "total_outstanding_debt":
		return func(a, b model.BorrowerData) int {
			return a.TotalOutstandingDebt.Cmp(b.TotalOutstandingDebt)
		}
	case "defaultSum", "default_sum":
		return func(a, b model.BorrowerData) int {
			return a.DefaultSum.Cmp(b.DefaultSum)
		}
	case "repayRatio", "repay_ratio":
		return func(a, b model.BorrowerData) int {
			return a.RepayRatio.Cmp(b.RepayRatio)
		}
	case "borrowCount", "borrow_count":
		return func(a, b model.BorrowerData) int {
			return a.BorrowCount - b.BorrowCount
		}
	case "repayCount", "repay_count":
		return func(a, b model.BorrowerData) int {
			return a.RepayCount - b.RepayCount
		}
	case "liquidationCount", "liquidation_count":
		return func(a, b model.BorrowerData) int {
			return a.LiquidationCount - b.LiquidationCount
		}
	default:
		return nil
	}
}
