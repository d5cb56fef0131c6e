package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/birdieclub/birdie/internal/model"
)

func (e *testEnv) feeHandler() *FeeHandler {
	h := NewFeeHandler(e.fees, e.members, e.hub, e.logger)
	h.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return h
}

func TestFeeUpsert(t *testing.T) {
	env := setupHandlerTest(t)
	h := env.feeHandler()
	m, _ := env.members.Create(env.adminID, model.MemberInput{Name: "Kim"})

	body := `{"memberId":` + itoa(m.ID) + `,"year":2025,"month":3,"paid":true}`
	rec := httptest.NewRecorder()
	h.Upsert(rec, jsonRequest("POST", "/api/fees", body, env.adminID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	first := decodeBody[model.Fee](t, rec)
	if !first.Paid || first.Month != 3 || first.Year != 2025 || first.MemberID != m.ID {
		t.Errorf("fee = %+v", first)
	}

	body = `{"memberId":"` + itoa(m.ID) + `","year":"2025","month":"3","paid":false}`
	rec = httptest.NewRecorder()
	h.Upsert(rec, jsonRequest("POST", "/api/fees", body, env.adminID))
	if rec.Code != http.StatusOK {
		t.Fatalf("second status = %d, want %d", rec.Code, http.StatusOK)
	}
	second := decodeBody[model.Fee](t, rec)
	if second.ID != first.ID {
		t.Errorf("id = %d, want %d (same record)", second.ID, first.ID)
	}
	if second.Paid {
		t.Error("expected paid = false")
	}
}

func TestFeeUpsertValidation(t *testing.T) {
	env := setupHandlerTest(t)
	h := env.feeHandler()
	m, _ := env.members.Create(env.adminID, model.MemberInput{Name: "Kim"})
	id := itoa(m.ID)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `nope`, http.StatusBadRequest},
		{"missing member", `{"year":2025,"month":1,"paid":true}`, http.StatusBadRequest},
		{"month zero", `{"memberId":` + id + `,"year":2025,"month":0,"paid":true}`, http.StatusBadRequest},
		{"month thirteen", `{"memberId":` + id + `,"year":2025,"month":13,"paid":true}`, http.StatusBadRequest},
		{"missing year", `{"memberId":` + id + `,"month":1,"paid":true}`, http.StatusBadRequest},
		{"unknown member", `{"memberId":9999,"year":2025,"month":1,"paid":true}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Upsert(rec, jsonRequest("POST", "/api/fees", tt.body, env.adminID))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestFeePayAll(t *testing.T) {
	env := setupHandlerTest(t)
	h := env.feeHandler()
	m, _ := env.members.Create(env.adminID, model.MemberInput{Name: "Kim"})
	env.fees.Upsert(m.ID, 2025, 4, false)

	rec := httptest.NewRecorder()
	h.PayAll(rec, jsonRequest("POST", "/api/fees/pay-all", `{"memberId":`+itoa(m.ID)+`,"year":2025}`, env.adminID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	fees := decodeBody[[]model.Fee](t, rec)
	if len(fees) != 12 {
		t.Fatalf("len = %d, want 12", len(fees))
	}
	for i, f := range fees {
		if f.Month != i+1 || !f.Paid {
			t.Errorf("fees[%d] = %+v, want paid month %d", i, f, i+1)
		}
	}

	stored, _ := env.fees.ListByMember(m.ID, 2025)
	if len(stored) != 12 {
		t.Errorf("stored rows = %d, want 12", len(stored))
	}
}

func TestFeePayAllPartialFailure(t *testing.T) {
	env := setupHandlerTest(t)
	m, _ := env.members.Create(env.adminID, model.MemberInput{Name: "Kim"})
	if _, err := env.db.Exec(`CREATE TRIGGER boom BEFORE INSERT ON fees WHEN NEW.month = 5 BEGIN SELECT RAISE(ABORT, 'boom'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	rec := httptest.NewRecorder()
	env.feeHandler().PayAll(rec, jsonRequest("POST", "/api/fees/pay-all", `{"memberId":`+itoa(m.ID)+`,"year":2025}`, env.adminID))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusInternalServerError, rec.Body.String())
	}

	type partial struct {
		Error        string      `json:"error"`
		FailedMonths []int       `json:"failedMonths"`
		Fees         []model.Fee `json:"fees"`
	}
	got := decodeBody[partial](t, rec)
	if got.Error == "" {
		t.Error("error message is empty")
	}
	if len(got.FailedMonths) != 1 || got.FailedMonths[0] != 5 {
		t.Errorf("failedMonths = %v, want [5]", got.FailedMonths)
	}
	if len(got.Fees) != 11 {
		t.Errorf("len(fees) = %d, want 11", len(got.Fees))
	}

	stored, err := env.fees.ListByMember(m.ID, 2025)
	if err != nil {
		t.Fatalf("ListByMember: %v", err)
	}
	if len(stored) != 11 {
		t.Errorf("stored rows = %d, want 11", len(stored))
	}
	for _, f := range stored {
		if f.Month == 5 {
			t.Error("month 5 was written despite the failure")
		}
	}
}

func TestFeePayAllOtherAdmin(t *testing.T) {
	env := setupHandlerTest(t)
	other, _ := env.admins.Create("rival", "unused", "")
	m, _ := env.members.Create(other.ID, model.MemberInput{Name: "Theirs"})

	rec := httptest.NewRecorder()
	env.feeHandler().PayAll(rec, jsonRequest("POST", "/api/fees/pay-all", `{"memberId":`+itoa(m.ID)+`,"year":2025}`, env.adminID))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFeeSummary(t *testing.T) {
	env := setupHandlerTest(t)
	h := env.feeHandler()
	a, _ := env.members.Create(env.adminID, model.MemberInput{Name: "A"})
	b, _ := env.members.Create(env.adminID, model.MemberInput{Name: "B"})
	gone, _ := env.members.Create(env.adminID, model.MemberInput{Name: "Gone"})
	env.fees.Upsert(a.ID, 2025, 1, true)
	env.fees.Upsert(b.ID, 2025, 1, true)
	env.fees.Upsert(b.ID, 2025, 2, true)
	env.fees.Upsert(gone.ID, 2025, 2, true)
	env.members.SetDeleted(gone.ID, true)

	rec := httptest.NewRecorder()
	h.Summary(rec, jsonRequest("GET", "/api/fees/summary", "", env.adminID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	type summary struct {
		Year          int            `json:"year"`
		ActiveMembers int            `json:"activeMembers"`
		Months        []monthSummary `json:"months"`
	}
	got := decodeBody[summary](t, rec)
	if got.Year != 2025 {
		t.Errorf("year = %d, want 2025 (default from clock)", got.Year)
	}
	if got.ActiveMembers != 2 {
		t.Errorf("activeMembers = %d, want 2", got.ActiveMembers)
	}
	if len(got.Months) != 12 {
		t.Fatalf("months = %d, want 12", len(got.Months))
	}
	if got.Months[0].Paid != 2 || got.Months[0].Unpaid != 0 {
		t.Errorf("January = %+v, want 2 paid", got.Months[0])
	}
	if got.Months[1].Paid != 1 || got.Months[1].Unpaid != 1 {
		t.Errorf("February = %+v, want 1 paid 1 unpaid (withdrawn member excluded)", got.Months[1])
	}

	rec = httptest.NewRecorder()
	h.Summary(rec, jsonRequest("GET", "/api/fees/summary?year=abc", "", env.adminID))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad year status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
