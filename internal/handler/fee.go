package handler

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/birdieclub/birdie/internal/auth"
	"github.com/birdieclub/birdie/internal/model"
	"github.com/birdieclub/birdie/internal/roster"
	"github.com/birdieclub/birdie/internal/store"
	"github.com/birdieclub/birdie/internal/websocket"
)

const (
	minFeeYear = 1900
	maxFeeYear = 2999
)

type FeeHandler struct {
	fees    *store.FeeStore
	members *store.MemberStore
	hub     *websocket.Hub
	logger  *slog.Logger
	now     func() time.Time
}

func NewFeeHandler(fs *store.FeeStore, ms *store.MemberStore, hub *websocket.Hub, logger *slog.Logger) *FeeHandler {
	return &FeeHandler{fees: fs, members: ms, hub: hub, logger: logger, now: time.Now}
}

func (h *FeeHandler) broadcast(adminID int64, f *model.Fee) {
	if h.hub != nil {
		h.hub.Broadcast(adminID, websocket.NewMessage("fee", "updated", f.MemberID, map[string]any{
			"year":  f.Year,
			"month": f.Month,
			"paid":  f.Paid,
		}))
	}
}

type feeRequest struct {
	MemberID number `json:"memberId"`
	Year     number `json:"year"`
	Month    number `json:"month"`
	Paid     bool   `json:"paid"`
}

func validYear(y int64) bool {
	return y >= minFeeYear && y <= maxFeeYear
}

// Upsert sets one member's paid flag for one month, creating the record on
// first use.
func (h *FeeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req feeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !req.MemberID.Set {
		writeError(w, http.StatusBadRequest, "memberId is required")
		return
	}
	if !req.Year.Set || !validYear(req.Year.Value) {
		writeError(w, http.StatusBadRequest, "year is invalid")
		return
	}
	if !req.Month.Set || req.Month.Value < 1 || req.Month.Value > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	member, ok := lookupOwnedMember(w, r, h.members, h.logger, req.MemberID.Value)
	if !ok {
		return
	}

	fee, err := h.fees.Upsert(member.ID, int(req.Year.Value), int(req.Month.Value), req.Paid)
	if err != nil {
		h.logger.Error("upsert fee", "member_id", member.ID, "year", req.Year.Value, "month", req.Month.Value, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save fee")
		return
	}

	h.broadcast(member.AdminID, fee)
	writeJSON(w, http.StatusOK, fee)
}

type payAllRequest struct {
	MemberID number `json:"memberId"`
	Year     number `json:"year"`
	Paid     *bool  `json:"paid"`
}

// PayAll writes all twelve months of a year at once, paid unless the body
// says otherwise. The upserts run concurrently and independently: a failure
// in one month does not undo the others, and the response lists the months
// that failed.
func (h *FeeHandler) PayAll(w http.ResponseWriter, r *http.Request) {
	var req payAllRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !req.MemberID.Set {
		writeError(w, http.StatusBadRequest, "memberId is required")
		return
	}
	if !req.Year.Set || !validYear(req.Year.Value) {
		writeError(w, http.StatusBadRequest, "year is invalid")
		return
	}
	paid := true
	if req.Paid != nil {
		paid = *req.Paid
	}

	member, ok := lookupOwnedMember(w, r, h.members, h.logger, req.MemberID.Value)
	if !ok {
		return
	}
	year := int(req.Year.Value)

	var (
		mu     sync.Mutex
		fees   []model.Fee
		failed []int
		g      errgroup.Group
	)
	for month := 1; month <= 12; month++ {
		g.Go(func() error {
			fee, err := h.fees.Upsert(member.ID, year, month, paid)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				h.logger.Error("pay all: upsert fee", "member_id", member.ID, "year", year, "month", month, "error", err)
				failed = append(failed, month)
				return err
			}
			fees = append(fees, *fee)
			return nil
		})
	}
	err := g.Wait()

	slices.SortFunc(fees, func(a, b model.Fee) int { return a.Month - b.Month })
	slices.Sort(failed)

	if len(fees) > 0 && h.hub != nil {
		h.hub.Broadcast(member.AdminID, websocket.NewMessage("fee", "year_updated", member.ID, map[string]any{
			"year": year,
			"paid": paid,
		}))
	}

	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":        "failed to save some months",
			"failedMonths": failed,
			"fees":         fees,
		})
		return
	}
	writeJSON(w, http.StatusOK, fees)
}

type monthSummary struct {
	Month  int `json:"month"`
	Paid   int `json:"paid"`
	Unpaid int `json:"unpaid"`
}

// Summary reports, for one year, how many active members have paid each month.
func (h *FeeHandler) Summary(w http.ResponseWriter, r *http.Request) {
	year := h.now().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || !validYear(int64(y)) {
			writeError(w, http.StatusBadRequest, "year is invalid")
			return
		}
		year = y
	}

	members, err := h.members.ListByAdmin(auth.AdminID(r.Context()))
	if err != nil {
		h.logger.Error("list members for summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load fees")
		return
	}
	active, _ := roster.Split(members)
	totals := roster.MonthTotals(active, year)

	months := make([]monthSummary, 12)
	for i, paid := range totals {
		months[i] = monthSummary{Month: i + 1, Paid: paid, Unpaid: len(active) - paid}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"year":          year,
		"activeMembers": len(active),
		"months":        months,
	})
}
