package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/csrf"

	"github.com/birdieclub/birdie/internal/auth"
	"github.com/birdieclub/birdie/internal/markdown"
	"github.com/birdieclub/birdie/internal/model"
	"github.com/birdieclub/birdie/internal/roster"
	"github.com/birdieclub/birdie/internal/store"
)

const (
	TabActive  = "active"
	TabFees    = "fees"
	TabDeleted = "deleted"
)

var templateFuncs = template.FuncMap{
	"add1":     func(i int) int { return i + 1 },
	"markdown": markdown.Render,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02")
	},
}

// ParseTemplates loads every page under templates/ in fsys.
func ParseTemplates(fsys fs.FS) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

func render(w http.ResponseWriter, tmpl *template.Template, logger *slog.Logger, status int, name string, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("template error", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

type TemplateHandler struct {
	admins    *store.AdminStore
	members   *store.MemberStore
	templates *template.Template
	logger    *slog.Logger
	now       func() time.Time
}

func NewTemplateHandler(as *store.AdminStore, ms *store.MemberStore, tmpl *template.Template, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{
		admins:    as,
		members:   ms,
		templates: tmpl,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *TemplateHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	render(w, h.templates, h.logger, http.StatusOK, "home.html", map[string]any{
		"Title": "🏸 전국 배드민턴 클럽 운영 관리 시스템",
	})
}

type memberRow struct {
	model.Member
	Grid      [12]bool
	FullyPaid bool
}

type sortLink struct {
	Label  string
	URL    string
	Active bool
	Desc   bool
}

type dashboardQuery struct {
	Tab  string
	Year int
	Sort roster.SortKey
	Desc bool
}

func (q dashboardQuery) url() string {
	v := url.Values{}
	v.Set("tab", q.Tab)
	v.Set("year", strconv.Itoa(q.Year))
	if q.Sort != roster.SortDefault {
		v.Set("sort", string(q.Sort))
		if q.Desc {
			v.Set("dir", "desc")
		} else {
			v.Set("dir", "asc")
		}
	}
	return "/main?" + v.Encode()
}

func parseDashboardQuery(r *http.Request, now time.Time) dashboardQuery {
	q := r.URL.Query()
	dq := dashboardQuery{Tab: TabActive, Year: now.Year()}

	switch t := q.Get("tab"); t {
	case TabFees, TabDeleted:
		dq.Tab = t
	}
	if y, err := strconv.Atoi(q.Get("year")); err == nil && validYear(int64(y)) {
		dq.Year = y
	}
	dq.Sort = roster.ParseSortKey(q.Get("sort"))
	switch q.Get("dir") {
	case "asc":
		dq.Desc = false
	case "desc":
		dq.Desc = true
	default:
		dq.Desc = roster.DefaultDesc(dq.Sort)
	}
	return dq
}

func sortLinks(dq dashboardQuery) []sortLink {
	keys := []struct {
		key   roster.SortKey
		label string
	}{
		{roster.SortDefault, "등록순"},
		{roster.SortName, "이름"},
		{roster.SortDate, "가입일"},
		{roster.SortLevel, "급수"},
		{roster.SortGender, "성별"},
	}
	links := make([]sortLink, 0, len(keys))
	for _, k := range keys {
		next := dq
		next.Sort = k.key
		active := dq.Sort == k.key
		if active {
			next.Desc = !dq.Desc
		} else {
			next.Desc = roster.DefaultDesc(k.key)
		}
		links = append(links, sortLink{Label: k.label, URL: next.url(), Active: active, Desc: dq.Desc})
	}
	return links
}

func rows(members []model.Member, year int) []memberRow {
	out := make([]memberRow, len(members))
	for i, m := range members {
		grid := roster.FeeGrid(m, year)
		out[i] = memberRow{Member: m, Grid: grid, FullyPaid: roster.FullyPaid(grid)}
	}
	return out
}

// Main renders the dashboard: active members, the fee grid for one year, or
// withdrawn members, depending on ?tab=.
func (h *TemplateHandler) Main(w http.ResponseWriter, r *http.Request) {
	adminID := auth.AdminID(r.Context())
	admin, err := h.admins.GetByID(adminID)
	if err != nil || admin == nil {
		h.logger.Error("load admin", "admin_id", adminID, "error", err)
		http.Error(w, "failed to load data", http.StatusInternalServerError)
		return
	}

	members, err := h.members.ListByAdmin(adminID)
	if err != nil {
		h.logger.Error("list members", "admin_id", adminID, "error", err)
		http.Error(w, "failed to load data", http.StatusInternalServerError)
		return
	}

	now := h.now()
	dq := parseDashboardQuery(r, now)

	active, deleted := roster.Split(members)
	roster.Sort(active, dq.Sort, dq.Desc)
	roster.Sort(deleted, dq.Sort, dq.Desc)

	years := roster.YearOptions(now, members)
	if !slices.Contains(years, dq.Year) {
		years = append(years, dq.Year)
		slices.Sort(years)
	}

	tabURL := func(tab string) string {
		next := dq
		next.Tab = tab
		return next.url()
	}

	render(w, h.templates, h.logger, http.StatusOK, "main.html", map[string]any{
		"Title":     "🏸 전국 배드민턴 클럽 운영 관리 시스템",
		"Admin":     admin,
		"Label":     admin.Custom1Label,
		"Tab":       dq.Tab,
		"TabURLs":   map[string]string{TabActive: tabURL(TabActive), TabFees: tabURL(TabFees), TabDeleted: tabURL(TabDeleted)},
		"Year":      dq.Year,
		"Years":     years,
		"SortLinks": sortLinks(dq),
		"Active":    rows(active, dq.Year),
		"Deleted":   rows(deleted, dq.Year),
		"Totals":    roster.MonthTotals(active, dq.Year),
		"Months":    []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		"CSRFField": csrf.TemplateField(r),
	})
}
