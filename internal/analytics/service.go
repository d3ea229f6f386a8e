package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tavernbuddy/tavernbuddy-backend/pkg/db/models"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/logger"
	"github.com/tavernbuddy/tavernbuddy-backend/pkg/money"
)

const (
	dashboardDays     = 7
	dashboardTopItems = 5
	dashboardTopStaff = 3

	chatDays          = 30
	chatTopItems      = 10
	chatReports       = 4
	chatReportExcerpt = 500
)

type reader interface {
	Transactions(ctx context.Context, userID uuid.UUID, w Window) ([]models.Transaction, error)
	Items(ctx context.Context, txnIDs []uuid.UUID) ([]models.TransactionItem, error)
	Totals(ctx context.Context, userID uuid.UUID, w Window) (Totals, error)
	StaffNames(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]string, error)
	RecentReports(ctx context.Context, userID uuid.UUID, limit int) ([]models.WeeklyReport, error)
}

type ServiceParams struct {
	Repo   reader
	Logger *logger.Logger
}

type Service struct {
	repo   reader
	logger *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: params.Repo, logger: params.Logger}, nil
}

// ComputeMetrics rolls up userID's transactions in window against comparison.
// It returns ErrNoData when window holds no transactions.
func (s *Service) ComputeMetrics(ctx context.Context, userID uuid.UUID, window, comparison Window, opts Options) (Metrics, error) {
	ds, err := s.load(ctx, userID, window)
	if err != nil {
		return Metrics{}, err
	}
	if len(ds.Transactions) == 0 {
		return Metrics{}, ErrNoData
	}
	ds.Comparison = comparison
	if ds.Previous, err = s.repo.Totals(ctx, userID, comparison); err != nil {
		return Metrics{}, err
	}
	return Compute(ds, opts)
}

func (s *Service) load(ctx context.Context, userID uuid.UUID, window Window) (Dataset, error) {
	txns, err := s.repo.Transactions(ctx, userID, window)
	if err != nil {
		return Dataset{}, err
	}
	ds := Dataset{Window: window, Transactions: txns}
	if len(txns) == 0 {
		return ds, nil
	}

	ids := make([]uuid.UUID, 0, len(txns))
	for _, t := range txns {
		ids = append(ids, t.ID)
	}
	if ds.Items, err = s.repo.Items(ctx, ids); err != nil {
		return Dataset{}, err
	}
	if ds.StaffNames, err = s.repo.StaffNames(ctx, userID); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// DashboardWindows returns the trailing week ending before today and the
// week before it. now should already be in the owner's timezone.
func DashboardWindows(now time.Time) (current, previous Window) {
	today := dateOf(now)
	current = Window{Start: today.AddDate(0, 0, -dashboardDays), End: today}
	previous = Window{Start: today.AddDate(0, 0, -2*dashboardDays), End: current.Start}
	return current, previous
}

// Dashboard returns the trailing seven days against the seven before, or the
// sample metrics when nothing has been synced for that week.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID, now time.Time) (Metrics, error) {
	current, previous := DashboardWindows(now)
	m, err := s.ComputeMetrics(ctx, userID, current, previous, Options{TopItems: dashboardTopItems, TopStaff: dashboardTopStaff})
	if errors.Is(err, ErrNoData) {
		s.logger.Debug(s.logger.WithUserID(ctx, userID.String()), "dashboard falling back to sample metrics")
		return SampleDashboardMetrics(current), nil
	}
	return m, err
}

type ChatSummary struct {
	TotalRevenue      string `json:"total_revenue"`
	TotalTransactions int    `json:"total_transactions"`
	AvgTransaction    string `json:"avg_transaction"`
}

type ChatItem struct {
	Name     string `json:"name"`
	Revenue  string `json:"revenue"`
	Quantity int    `json:"quantity"`
}

type ChatStaff struct {
	Name           string `json:"name"`
	Transactions   int    `json:"transactions"`
	TotalRevenue   string `json:"total_revenue"`
	AvgTransaction string `json:"avg_transaction"`
}

type ChatWeekday struct {
	Day          string `json:"day"`
	AvgRevenue   string `json:"avg_revenue"`
	Transactions int    `json:"transactions"`
}

type ChatReport struct {
	Week    string `json:"week"`
	Summary string `json:"summary"`
}

// ChatContext is the data handed to the chat model as JSON. Dollar amounts
// are pre-formatted strings.
type ChatContext struct {
	Period             string        `json:"period,omitempty"`
	Note               string        `json:"note,omitempty"`
	SampleRevenue      string        `json:"sample_revenue,omitempty"`
	SampleTopItem      string        `json:"sample_top_item,omitempty"`
	Summary            *ChatSummary  `json:"summary,omitempty"`
	TopItems           []ChatItem    `json:"top_items,omitempty"`
	StaffPerformance   []ChatStaff   `json:"staff_performance,omitempty"`
	RevenueByDayOfWeek []ChatWeekday `json:"revenue_by_day_of_week,omitempty"`
	RecentReports      []ChatReport  `json:"recent_reports,omitempty"`
}

// ChatContext summarizes the last 30 days through today for the chat model.
func (s *Service) ChatContext(ctx context.Context, userID uuid.UUID, now time.Time) (ChatContext, error) {
	window := DateWindow(now.AddDate(0, 0, -chatDays), now)
	ds, err := s.load(ctx, userID, window)
	if err != nil {
		return ChatContext{}, err
	}
	if len(ds.Transactions) == 0 {
		return ChatContext{
			Note:          "No transaction data available yet. Using sample data.",
			SampleRevenue: money.FormatWholeCents(sampleBase(Window{}).Revenue) + " last week",
			SampleTopItem: sampleItems[0].Name,
		}, nil
	}

	m, err := Compute(ds, Options{TopItems: chatTopItems})
	if err != nil {
		return ChatContext{}, err
	}
	out := ChatContext{
		Period: fmt.Sprintf("Last %d days (%s to %s)", chatDays,
			window.Start.Format(time.DateOnly), window.LastDay().Format(time.DateOnly)),
		Summary: &ChatSummary{
			TotalRevenue:      dollars(m.Revenue),
			TotalTransactions: m.Transactions,
			AvgTransaction:    dollars(m.AvgTransaction),
		},
		RevenueByDayOfWeek: weekdays(m.RevenueByDay),
	}
	for _, it := range m.TopItems {
		out.TopItems = append(out.TopItems, ChatItem{Name: it.Name, Revenue: dollars(it.Revenue), Quantity: it.Quantity})
	}
	for _, st := range m.TopStaff {
		out.StaffPerformance = append(out.StaffPerformance, ChatStaff{
			Name:           st.Name,
			Transactions:   st.Transactions,
			TotalRevenue:   dollars(st.TotalRevenue),
			AvgTransaction: dollars(st.AvgTransaction),
		})
	}

	reports, err := s.repo.RecentReports(ctx, userID, chatReports)
	if err != nil {
		return ChatContext{}, err
	}
	for _, r := range reports {
		out.RecentReports = append(out.RecentReports, ChatReport{
			Week:    r.WeekStart.Format(time.DateOnly) + " to " + r.WeekEnd.Format(time.DateOnly),
			Summary: excerpt(r.ReportText, chatReportExcerpt),
		})
	}
	return out, nil
}

// weekdays averages revenue per trading day for each weekday, Monday first.
func weekdays(days []DayRevenue) []ChatWeekday {
	type acc struct {
		revenue int64
		days    int
		txns    int
	}
	var byDay [7]acc
	for _, d := range days {
		a := &byDay[(int(d.Date.Weekday())+6)%7]
		a.revenue += d.Revenue
		a.days++
		a.txns += d.Transactions
	}

	var out []ChatWeekday
	for i, a := range byDay {
		if a.days == 0 {
			continue
		}
		out = append(out, ChatWeekday{
			Day:          time.Weekday((i + 1) % 7).String(),
			AvgRevenue:   money.FromCents(a.revenue).Div(decimal.NewFromInt(int64(a.days))).StringFixed(2),
			Transactions: a.txns,
		})
	}
	return out
}

func dollars(cents int64) string {
	return money.FromCents(cents).StringFixed(2)
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
