package analytics

import (
	"testing"

	"github.com/marginscope/analytics-engine/internal/model"
)

func sampleBorrowers() []model.BorrowerData {
	return []model.BorrowerData{
		{
			ManagerID:            "0xM1",
			Owner:                "0xAlice",
			PoolsUsed:            []string{"MPOOL-USDC-6"},
			TotalOutstandingDebt: d(300),
			BorrowCount:          3,
			FirstSeen:            at(0),
		},
		{
			ManagerID:            "0xM2",
			Owner:                "0xBob",
			PoolsUsed:            []string{"MPOOL-SUI-9", "MPOOL-USDC-6"},
			TotalOutstandingDebt: d(100),
			BorrowCount:          1,
			FirstSeen:            at(2),
		},
		{
			ManagerID:            "0xM3",
			Owner:                "0xcarol",
			PoolsUsed:            nil,
			TotalOutstandingDebt: d(200),
			BorrowCount:          2,
			FirstSeen:            at(1),
		},
	}
}

func ids(borrowers []model.BorrowerData) []string {
	out := make([]string, len(borrowers))
	for i, b := range borrowers {
		out[i] = b.ManagerID
	}
	return out
}

func TestFilterAndSort_EmptySearchIsNoOp(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "", "", "")
	if len(out) != 3 {
		t.Errorf("expected all 3 borrowers, got %d", len(out))
	}
}

func TestFilterAndSort_SearchOwnerCaseInsensitive(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "ALICE", "", "")
	if len(out) != 1 || out[0].ManagerID != "0xM1" {
		t.Errorf("expected only 0xM1, got %v", ids(out))
	}
}

func TestFilterAndSort_SearchManagerID(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "0xm3", "", "")
	if len(out) != 1 || out[0].ManagerID != "0xM3" {
		t.Errorf("expected only 0xM3, got %v", ids(out))
	}
}

func TestFilterAndSort_SearchPool(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "sui", "", "")
	if len(out) != 1 || out[0].ManagerID != "0xM2" {
		t.Errorf("expected only 0xM2 (uses SUI pool), got %v", ids(out))
	}
}

func TestFilterAndSort_SearchNoMatch(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "nothing-matches", "", "")
	if len(out) != 0 {
		t.Errorf("expected no matches, got %v", ids(out))
	}
}

func TestFilterAndSort_NumericAscending(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "", "totalOutstandingDebt", SortAsc)
	want := []string{"0xM2", "0xM3", "0xM1"}
	if got := ids(out); !equalStrings(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFilterAndSort_NumericDescending(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "", "totalOutstandingDebt", SortDesc)
	want := []string{"0xM1", "0xM3", "0xM2"}
	if got := ids(out); !equalStrings(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFilterAndSort_SliceFieldComparesByLength(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "", "poolsUsed", SortDesc)
	if out[0].ManagerID != "0xM2" {
		t.Errorf("borrower with most pools should sort first, got %v", ids(out))
	}
	if out[2].ManagerID != "0xM3" {
		t.Errorf("borrower with no pools should sort last, got %v", ids(out))
	}
}

func TestFilterAndSort_StringFieldCaseInsensitive(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "", "owner", SortAsc)
	// 0xAlice < 0xBob < 0xcarol when compared lowercased.
	want := []string{"0xM1", "0xM2", "0xM3"}
	if got := ids(out); !equalStrings(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFilterAndSort_TimeField(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "", "firstSeen", SortAsc)
	want := []string{"0xM1", "0xM3", "0xM2"}
	if got := ids(out); !equalStrings(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFilterAndSort_UnknownFieldKeepsOrder(t *testing.T) {
	out := FilterAndSort(sampleBorrowers(), "", "bogus", SortAsc)
	want := []string{"0xM1", "0xM2", "0xM3"}
	if got := ids(out); !equalStrings(got, want) {
		t.Errorf("unknown field must keep input order, expected %v got %v", want, got)
	}
}

func TestFilterAndSort_EmptyInput(t *testing.T) {
	out := FilterAndSort(nil, "x", "owner", SortAsc)
	if len(out) != 0 {
		t.Errorf("expected empty result, got %d", len(out))
	}
}

func TestFilterAndSort_DoesNotMutateInput(t *testing.T) {
	in := sampleBorrowers()
	FilterAndSort(in, "", "totalOutstandingDebt", SortDesc)
	if in[0].ManagerID != "0xM1" {
		t.Error("input slice must not be reordered")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
