package audit

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
	"github.com/jonathanbglass/cloudauditor/internal/middleware"
	"github.com/jonathanbglass/cloudauditor/internal/report"
)

const reportTemplate = "report/page.html"

// RenderObserver receives the row count of every rendered response.
type RenderObserver interface {
	ObserveRender(report, mode string, rows int)
}

// PageOption configures the report page handler.
type PageOption func(*ReportPageHandler)

// WithDiagnostics shows the last executed statement on report pages.
func WithDiagnostics(enabled bool) PageOption {
	return func(h *ReportPageHandler) {
		h.diagnostics = enabled
	}
}

// WithPageSize sets the number of rows per HTML page when the request does
// not name one.
func WithPageSize(n int) PageOption {
	return func(h *ReportPageHandler) {
		h.pageSize = n
	}
}

// WithRenderObserver records rendered row counts.
func WithRenderObserver(o RenderObserver) PageOption {
	return func(h *ReportPageHandler) {
		h.observer = o
	}
}

// ReportPageHandler serves report pages and their file downloads.
type ReportPageHandler struct {
	svc         Service
	diagnostics bool
	pageSize    int
	observer    RenderObserver
}

// NewReportPageHandler creates a ReportPageHandler with the given service.
// Panics if the custom validators cannot be registered.
func NewReportPageHandler(svc Service, opts ...PageOption) *ReportPageHandler {
	if err := RegisterValidators(); err != nil {
		panic("audit.NewReportPageHandler: " + err.Error())
	}
	h := &ReportPageHandler{svc: svc, pageSize: report.DefaultPageSize}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Show renders a report as HTML or as a download.
// GET /reports/:name?output=csv|json|xlsx&sort=<token>&page=<n>&page_size=<n>
// Downloads always carry every row; page and page_size only window the HTML table.
func (h *ReportPageHandler) Show(c *gin.Context) {
	def, err := h.svc.Lookup(c.Param("name"))
	if err != nil {
		renderError(c, err)
		return
	}

	var q ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		slog.DebugContext(c.Request.Context(), "report query: bind error", "report", def.Name, "error", err)
		q.Sort = ""
	}

	mode, err := report.ParseMode(q.Output)
	if err != nil {
		renderError(c, err)
		return
	}

	store := NewSessionStore(sessions.Default(c))
	filter := loadFilter(store)

	page := report.ParsePageRequest(q.Page, q.PageSize, h.pageSize)
	h.serve(c, def, store, mode, report.ResolveSort(def, q.Sort), filter, page)
}

// Submit applies a sort toggle or filter change and re-renders the page.
// POST /reports/:name
func (h *ReportPageHandler) Submit(c *gin.Context) {
	def, err := h.svc.Lookup(c.Param("name"))
	if err != nil {
		renderError(c, err)
		return
	}

	var form ReportForm
	if err := c.ShouldBind(&form); err != nil {
		slog.DebugContext(c.Request.Context(), "report form: bind error", "report", def.Name, "error", err)
		if !form.discardInvalid(err) {
			form = ReportForm{}
		}
	}

	store := NewSessionStore(sessions.Default(c))
	filter := loadFilter(store)
	if def.Filter != nil {
		if form.Submitted() {
			filter = filter.ApplySubmit(form.Flags())
		}
		if form.FilterAccount != "" {
			filter = filter.ApplyAccountSelection(form.FilterAccount)
		}
		storeFilter(store, filter)
	}

	// A new sort or filter starts again at the first page.
	page := report.ParsePageRequest("", "", h.pageSize)
	h.serve(c, def, store, report.ModeHTML, report.ResolveSort(def, form.OrderBy), filter, page)
}

// PolicyDocument downloads the latest stored document for a policy ARN.
// GET /reports/audit-users-policies/policy?policyarn=<arn>
func (h *ReportPageHandler) PolicyDocument(c *gin.Context) {
	if c.Param("name") != ReportAuditUserPolicies {
		renderError(c, domain.ErrNotFound)
		return
	}

	doc, err := h.svc.PolicyDocument(c.Request.Context(), c.Query("policyarn"))
	if err != nil {
		if domain.IsQuery(err) {
			slog.ErrorContext(c.Request.Context(), "policy document query failed", "error", err)
			renderError(c, domain.ErrInternal)
			return
		}
		renderError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := encodePolicy(&buf, doc); err != nil {
		slog.ErrorContext(c.Request.Context(), "encode policy document", "error", err)
		renderError(c, domain.ErrInternal)
		return
	}

	setDownloadHeaders(c, policyFilename(doc.Name))
	c.Data(http.StatusOK, report.ModeJSON.ContentType(), buf.Bytes())
}

func (h *ReportPageHandler) serve(c *gin.Context, def *report.Definition, store domain.SessionStore, mode report.Mode, order report.SortResolution, filter report.FilterState, page report.PageRequest) {
	ctx := c.Request.Context()

	result, err := h.svc.Run(ctx, def, order, filter)
	queryFailed := false
	if err != nil {
		if !domain.IsQuery(err) {
			slog.ErrorContext(ctx, "report failed", "report", def.Name, "error", err)
			renderError(c, err)
			return
		}
		slog.WarnContext(ctx, "report query failed",
			"report", def.Name,
			"intent", result.Statement.Intent,
			"error", err,
		)
		queryFailed = true
	}

	storeLastQuery(store, def.Name, result.Statement)
	if err := store.Save(); err != nil {
		slog.WarnContext(ctx, "save session", "report", def.Name, "error", err)
	}

	view := report.TableView{
		Sort:      order,
		Action:    c.Request.URL.Path,
		CSRFField: middleware.CSRFFormField,
		CSRFToken: middleware.GetCSRFToken(c),
	}

	rows := result.Rows
	var pager report.Page
	if !mode.IsDownload() {
		rows, pager = report.Paginate(result.Rows, page)
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, def, rows, mode, view); err != nil {
		slog.ErrorContext(ctx, "render report", "report", def.Name, "mode", string(mode), "error", err)
		renderError(c, err)
		return
	}
	if h.observer != nil {
		h.observer.ObserveRender(def.Name, string(mode), rows.Len())
	}

	if mode.IsDownload() {
		setDownloadHeaders(c, def.DownloadName(mode.Extension()))
		c.Data(http.StatusOK, mode.ContentType(), buf.Bytes())
		return
	}

	data := gin.H{
		"Title":       def.Title,
		"Report":      def,
		"Reports":     h.svc.Reports(),
		"Table":       template.HTML(buf.String()),
		"RowCount":    result.Rows.Len(),
		"QueryFailed": queryFailed,
		"Filter":      newFilterView(def, filter),
		"Pager":       newPagerView(c.Request.URL.Path, order, pager),
		"Downloads":   downloadLinks(c.Request.URL.Path, order),
		"CSRFToken":   view.CSRFToken,
	}

	if def.Filter != nil && def.Filter.AccountExpr != "" {
		accounts, err := h.svc.AccountOptions(ctx, def)
		if err != nil {
			slog.WarnContext(ctx, "list accounts failed", "report", def.Name, "error", err)
		}
		data["Accounts"] = accounts
	}

	summary, err := h.svc.Summary(ctx, def)
	if err != nil {
		slog.WarnContext(ctx, "report summary failed", "report", def.Name, "error", err)
	}
	if summary != nil {
		data["Summary"] = summary
	}

	if h.diagnostics {
		data["LastQuery"] = lastQuery(store, def.Name)
	}

	c.HTML(http.StatusOK, reportTemplate, data)
}

// filterView is the template state of the filter controls.
type filterView struct {
	ShowTypes    bool
	ShowAccounts bool
	Users        bool
	Roles        bool
	Groups       bool
	Account      string
}

func newFilterView(def *report.Definition, f report.FilterState) filterView {
	if def.Filter == nil {
		return filterView{}
	}
	return filterView{
		ShowTypes:    def.Filter.ARNExpr != "",
		ShowAccounts: def.Filter.AccountExpr != "",
		Users:        f.Types.Has(report.TypeUser),
		Roles:        f.Types.Has(report.TypeRole),
		Groups:       f.Types.Has(report.TypeGroup),
		Account:      f.AccountValue(),
	}
}

// pagerView is the template state of the page navigation.
type pagerView struct {
	Number     int
	TotalPages int
	PrevURL    string
	NextURL    string
}

func newPagerView(path string, order report.SortResolution, p report.Page) pagerView {
	v := pagerView{Number: p.Page, TotalPages: p.TotalPages}
	if p.HasPrev() {
		v.PrevURL = pageURL(path, order, p.Page-1, p.PageSize)
	}
	if p.HasNext() {
		v.NextURL = pageURL(path, order, p.Page+1, p.PageSize)
	}
	return v
}

func pageURL(path string, order report.SortResolution, page, size int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(size))
	if order.Requested {
		q.Set("sort", order.State.Token())
	}
	return path + "?" + q.Encode()
}

type downloadLink struct {
	Label string
	URL   string
}

func downloadLinks(path string, order report.SortResolution) []downloadLink {
	modes := []struct {
		label string
		mode  report.Mode
	}{
		{"CSV", report.ModeCSV},
		{"JSON", report.ModeJSON},
		{"Excel", report.ModeXLSX},
	}

	links := make([]downloadLink, 0, len(modes))
	for _, m := range modes {
		q := url.Values{}
		q.Set("output", string(m.mode))
		if order.Requested {
			q.Set("sort", order.State.Token())
		}
		links = append(links, downloadLink{Label: m.label, URL: path + "?" + q.Encode()})
	}
	return links
}

func setDownloadHeaders(c *gin.Context, filename string) {
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
}

// renderError renders the error page matching err's status code.
func renderError(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)
	if status == http.StatusOK {
		status = http.StatusInternalServerError
	}
	tmpl := "errors/500.html"
	switch status {
	case http.StatusBadRequest:
		tmpl = "errors/400.html"
	case http.StatusNotFound:
		tmpl = "errors/404.html"
	}
	c.HTML(status, tmpl, gin.H{})
}
