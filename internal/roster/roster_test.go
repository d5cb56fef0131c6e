package roster

import (
	"testing"
	"time"

	"github.com/birdieclub/birdie/internal/model"
)

func ids(members []model.Member) []int64 {
	out := make([]int64, len(members))
	for i, m := range members {
		out[i] = m.ID
	}
	return out
}

func equalIDs(a, b []int64) bool {
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

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in   string
		want SortKey
	}{
		{"name", SortName},
		{"NAME", SortName},
		{" date ", SortDate},
		{"level", SortLevel},
		{"gender", SortGender},
		{"", SortDefault},
		{"phone", SortDefault},
	}
	for _, tt := range tests {
		if got := ParseSortKey(tt.in); got != tt.want {
			t.Errorf("ParseSortKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplit(t *testing.T) {
	members := []model.Member{
		{ID: 3},
		{ID: 2, Deleted: true},
		{ID: 1},
	}
	active, deleted := Split(members)
	if !equalIDs(ids(active), []int64{3, 1}) {
		t.Errorf("active = %v, want [3 1]", ids(active))
	}
	if !equalIDs(ids(deleted), []int64{2}) {
		t.Errorf("deleted = %v, want [2]", ids(deleted))
	}
}

func TestSort(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	base := []model.Member{
		{ID: 1, Name: "choi", Level: "B", Gender: "M", CreatedAt: day(3)},
		{ID: 2, Name: "Ahn", Level: "", Gender: "F", CreatedAt: day(1)},
		{ID: 3, Name: "", Level: "A", Gender: "", CreatedAt: day(2)},
		{ID: 4, Name: "bae", Level: "B", Gender: "F", CreatedAt: day(2)},
	}

	tests := []struct {
		name string
		key  SortKey
		desc bool
		want []int64
	}{
		{"default is newest registration first", SortDefault, false, []int64{4, 3, 2, 1}},
		{"name ascending, blank last", SortName, false, []int64{2, 4, 1, 3}},
		{"name descending, blank still last", SortName, true, []int64{1, 4, 2, 3}},
		{"level ties break on id desc", SortLevel, false, []int64{3, 4, 1, 2}},
		{"gender", SortGender, false, []int64{4, 2, 1, 3}},
		{"date newest first", SortDate, true, []int64{1, 4, 3, 2}},
		{"date oldest first", SortDate, false, []int64{2, 4, 3, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			members := append([]model.Member(nil), base...)
			Sort(members, tt.key, tt.desc)
			if got := ids(members); !equalIDs(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFeeGrid(t *testing.T) {
	m := model.Member{Fees: []model.Fee{
		{Year: 2025, Month: 1, Paid: true},
		{Year: 2025, Month: 2, Paid: false},
		{Year: 2025, Month: 12, Paid: true},
		{Year: 2024, Month: 3, Paid: true},
	}}

	grid := FeeGrid(m, 2025)
	if !grid[0] || grid[1] || !grid[11] {
		t.Errorf("grid = %v, want Jan and Dec paid only", grid)
	}
	if grid[2] {
		t.Error("March 2025 should be unpaid; the paid record is for 2024")
	}
	if FullyPaid(grid) {
		t.Error("expected FullyPaid = false")
	}

	var all [12]bool
	for i := range all {
		all[i] = true
	}
	if !FullyPaid(all) {
		t.Error("expected FullyPaid = true")
	}
}

func TestMonthTotals(t *testing.T) {
	members := []model.Member{
		{Fees: []model.Fee{{Year: 2025, Month: 1, Paid: true}, {Year: 2025, Month: 2, Paid: true}}},
		{Fees: []model.Fee{{Year: 2025, Month: 1, Paid: true}, {Year: 2024, Month: 2, Paid: true}}},
	}
	totals := MonthTotals(members, 2025)
	if totals[0] != 2 {
		t.Errorf("January = %d, want 2", totals[0])
	}
	if totals[1] != 1 {
		t.Errorf("February = %d, want 1", totals[1])
	}
	if totals[2] != 0 {
		t.Errorf("March = %d, want 0", totals[2])
	}
}

func TestYearOptions(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	got := YearOptions(now, nil)
	want := []int{2024, 2025, 2026, 2027}
	if len(got) != len(want) {
		t.Fatalf("years = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("years = %v, want %v", got, want)
			break
		}
	}

	old := []model.Member{{
		CreatedAt: time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC),
		Fees:      []model.Fee{{Year: 2028, Month: 1}},
	}}
	got = YearOptions(now, old)
	if got[0] != 2021 || got[len(got)-1] != 2028 {
		t.Errorf("years = %v, want 2021..2028", got)
	}
}
