// Package roster holds the list logic behind the dashboard: splitting active
// from withdrawn members, ordering them, and laying out a year of fees.
package roster

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/birdieclub/birdie/internal/model"
)

type SortKey string

const (
	SortDefault SortKey = ""
	SortName    SortKey = "name"
	SortDate    SortKey = "date"
	SortLevel   SortKey = "level"
	SortGender  SortKey = "gender"
)

// ParseSortKey maps a query value onto a SortKey. Unknown values give SortDefault.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortName, SortDate, SortLevel, SortGender:
		return k
	default:
		return SortDefault
	}
}

// DefaultDesc reports the natural direction for key: newest first for dates,
// A to Z for everything else.
func DefaultDesc(key SortKey) bool {
	return key == SortDate
}

// Split partitions members into active and soft-deleted, keeping order.
func Split(members []model.Member) (active, deleted []model.Member) {
	for _, m := range members {
		if m.Deleted {
			deleted = append(deleted, m)
		} else {
			active = append(active, m)
		}
	}
	return active, deleted
}

// Sort orders members in place. SortDefault is registration order, newest
// first, and ignores desc. For text keys the comparison is case-insensitive
// and blank values always go last. Ties fall back to newest first.
func Sort(members []model.Member, key SortKey, desc bool) {
	slices.SortStableFunc(members, func(a, b model.Member) int {
		var c int
		switch key {
		case SortName:
			c = compareText(a.Name, b.Name, desc)
		case SortLevel:
			c = compareText(a.Level, b.Level, desc)
		case SortGender:
			c = compareText(a.Gender, b.Gender, desc)
		case SortDate:
			c = a.CreatedAt.Compare(b.CreatedAt)
			if desc {
				c = -c
			}
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

func compareText(a, b string, desc bool) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	c := strings.Compare(a, b)
	if desc {
		return -c
	}
	return c
}

// FeeGrid returns the paid flag for each month of year, January at index 0.
// A month with no fee record counts as unpaid.
func FeeGrid(m model.Member, year int) [12]bool {
	var grid [12]bool
	for _, f := range m.Fees {
		if f.Year == year && f.Month >= 1 && f.Month <= 12 {
			grid[f.Month-1] = f.Paid
		}
	}
	return grid
}

// FullyPaid reports whether every month in grid is paid.
func FullyPaid(grid [12]bool) bool {
	for _, paid := range grid {
		if !paid {
			return false
		}
	}
	return true
}

// MonthTotals counts paid members per month of year, January at index 0.
func MonthTotals(members []model.Member, year int) [12]int {
	var totals [12]int
	for _, m := range members {
		for i, paid := range FeeGrid(m, year) {
			if paid {
				totals[i]++
			}
		}
	}
	return totals
}

// YearOptions lists the years offered by the fee tab: from two years back (or
// the earliest registration or fee year, if older) through next year.
func YearOptions(now time.Time, members []model.Member) []int {
	first := now.Year() - 2
	last := now.Year() + 1
	for _, m := range members {
		if !m.CreatedAt.IsZero() && m.CreatedAt.Year() < first {
			first = m.CreatedAt.Year()
		}
		for _, f := range m.Fees {
			if f.Year < first {
				first = f.Year
			}
			if f.Year > last {
				last = f.Year
			}
		}
	}

	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years
}
