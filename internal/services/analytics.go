package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/studiob6/billing-backend/internal/models"
)

// AnalyticsService is the read side: deterministic aggregate formulas over
// clients, projects, invoices, payments and usage. Monetary figures stay
// decimal end to end; each summary is a bounded number of aggregate
// queries regardless of row counts.
type AnalyticsService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db, Now: time.Now}
}

var openStatuses = []string{models.StatusUnpaid, models.StatusPartial, models.StatusOverdue}

// RevenueChange computes (this-last)/last*100. A zero last period yields
// 100 when this period has revenue (growth from nothing) and 0 otherwise,
// so the figure is always defined.
func RevenueChange(thisPeriod, lastPeriod decimal.Decimal) decimal.Decimal {
	if lastPeriod.Sign() > 0 {
		return thisPeriod.Sub(lastPeriod).Div(lastPeriod).Mul(decimal.NewFromInt(100)).Round(2)
	}
	if thisPeriod.Sign() > 0 {
		return decimal.NewFromInt(100)
	}
	return decimal.Zero
}

type Overview struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	ThisMonthRevenue  decimal.Decimal `json:"this_month_revenue"`
	RevenueChange     decimal.Decimal `json:"revenue_change"`
	ActiveClients     int64           `json:"active_clients"`
	PendingInvoices   int64           `json:"pending_invoices"`
	PendingAmount     decimal.Decimal `json:"pending_amount"`
	OverdueInvoices   int64           `json:"overdue_invoices"`
	OverdueAmount     decimal.Decimal `json:"overdue_amount"`
	ProjectsThisMonth int64           `json:"projects_this_month"`
	AvgInvoiceValue   decimal.Decimal `json:"avg_invoice_value"`
}

func (a *AnalyticsService) Overview() (*Overview, error) {
	today := dateOnly(a.Now())
	thisMonthStart := models.FirstOfMonth(today)
	lastMonthStart := models.FirstOfMonth(thisMonthStart.AddDate(0, 0, -1))

	out := &Overview{}

	if err := a.sumPayments(nil, nil, &out.TotalRevenue); err != nil {
		return nil, err
	}
	if err := a.sumPayments(&thisMonthStart, nil, &out.ThisMonthRevenue); err != nil {
		return nil, err
	}
	var lastMonth decimal.Decimal
	if err := a.sumPayments(&lastMonthStart, &thisMonthStart, &lastMonth); err != nil {
		return nil, err
	}
	out.RevenueChange = RevenueChange(out.ThisMonthRevenue, lastMonth)

	if err := a.DB.Model(&models.Client{}).
		Where("is_active = ?", true).
		Count(&out.ActiveClients).Error; err != nil {
		return nil, err
	}

	pending := a.DB.Model(&models.Invoice{}).
		Where("payment_status IN ?", []string{models.StatusUnpaid, models.StatusPartial})
	if err := pending.Count(&out.PendingInvoices).Error; err != nil {
		return nil, err
	}
	if err := a.DB.Model(&models.Invoice{}).
		Where("payment_status IN ?", []string{models.StatusUnpaid, models.StatusPartial}).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&out.PendingAmount).Error; err != nil {
		return nil, err
	}

	if err := a.DB.Model(&models.Invoice{}).
		Where("due_date < ? AND payment_status IN ?", today, openStatuses).
		Count(&out.OverdueInvoices).Error; err != nil {
		return nil, err
	}
	// Outstanding is one aggregate, not a per-row subtraction, so the
	// figure stays consistent even if rows change between passes.
	if err := a.DB.Model(&models.Invoice{}).
		Where("due_date < ? AND payment_status IN ?", today, openStatuses).
		Select("COALESCE(SUM(total_amount), 0) - COALESCE(SUM(amount_paid), 0)").
		Scan(&out.OverdueAmount).Error; err != nil {
		return nil, err
	}

	if err := a.DB.Model(&models.Project{}).
		Where("created_at >= ?", thisMonthStart).
		Count(&out.ProjectsThisMonth).Error; err != nil {
		return nil, err
	}
	if err := a.DB.Model(&models.Invoice{}).
		Select("COALESCE(AVG(total_amount), 0)").
		Scan(&out.AvgInvoiceValue).Error; err != nil {
		return nil, err
	}
	out.AvgInvoiceValue = out.AvgInvoiceValue.Round(2)
	return out, nil
}

func (a *AnalyticsService) sumPayments(from, until *time.Time, dest *decimal.Decimal) error {
	q := a.DB.Model(&models.Payment{})
	if from != nil {
		q = q.Where("payment_date >= ?", *from)
	}
	if until != nil {
		q = q.Where("payment_date < ?", *until)
	}
	return q.Select("COALESCE(SUM(amount), 0)").Scan(dest).Error
}

// Outstanding is sum(total_amount) - sum(amount_paid) over the invoices in
// the given statuses, evaluated as a single aggregate.
func (a *AnalyticsService) Outstanding(statuses []string) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := a.DB.Model(&models.Invoice{}).
		Where("payment_status IN ?", statuses).
		Select("COALESCE(SUM(total_amount), 0) - COALESCE(SUM(amount_paid), 0)").
		Scan(&out).Error
	return out, err
}

type RevenuePoint struct {
	Period time.Time       `json:"period"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// RevenueSeries buckets payment revenue by day, week or month over the last
// `months` months. A single fetch bucketed in memory keeps the query
// portable across drivers; the result is the same as a grouped query.
func (a *AnalyticsService) RevenueSeries(period string, months int) ([]RevenuePoint, error) {
	if months <= 0 {
		months = 12
	}
	start := a.Now().AddDate(0, -months, 0)
	var payments []models.Payment
	if err := a.DB.
		Where("payment_date >= ?", start).
		Order("payment_date asc").
		Find(&payments).Error; err != nil {
		return nil, err
	}

	buckets := map[time.Time]*RevenuePoint{}
	var order []time.Time
	for _, p := range payments {
		key := bucketStart(p.PaymentDate, period)
		pt, ok := buckets[key]
		if !ok {
			pt = &RevenuePoint{Period: key}
			buckets[key] = pt
			order = append(order, key)
		}
		pt.Total = pt.Total.Add(p.Amount)
		pt.Count++
	}
	out := make([]RevenuePoint, 0, len(order))
	for _, key := range order {
		out = append(out, *buckets[key])
	}
	return out, nil
}

func bucketStart(t time.Time, period string) time.Time {
	d := dateOnly(t)
	switch period {
	case "daily":
		return d
	case "weekly":
		// weeks start on Monday
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset)
	default:
		return models.FirstOfMonth(d)
	}
}

type TopClient struct {
	ClientID  uuid.UUID       `json:"client_id"`
	Name      string          `json:"name"`
	Company   string          `json:"company"`
	TotalPaid decimal.Decimal `json:"total_paid"`
}

type MonthCount struct {
	Month time.Time `json:"month"`
	Count int       `json:"count"`
}

type ClientAnalytics struct {
	NewClientsOverTime []MonthCount `json:"new_clients_over_time"`
	TopClients         []TopClient  `json:"top_clients"`
	TotalClients       int64        `json:"total_clients"`
	RepeatClients      int64        `json:"repeat_clients"`
	RetentionRate      float64      `json:"retention_rate"`
}

func (a *AnalyticsService) Clients(months int) (*ClientAnalytics, error) {
	if months <= 0 {
		months = 12
	}
	start := a.Now().AddDate(0, -months, 0)
	out := &ClientAnalytics{}

	var created []time.Time
	if err := a.DB.Model(&models.Client{}).
		Where("created_at >= ?", start).
		Order("created_at asc").
		Pluck("created_at", &created).Error; err != nil {
		return nil, err
	}
	counts := map[time.Time]int{}
	var order []time.Time
	for _, c := range created {
		m := models.FirstOfMonth(c)
		if _, ok := counts[m]; !ok {
			order = append(order, m)
		}
		counts[m]++
	}
	for _, m := range order {
		out.NewClientsOverTime = append(out.NewClientsOverTime, MonthCount{Month: m, Count: counts[m]})
	}

	if err := a.DB.Model(&models.Client{}).
		Select("clients.id AS client_id, clients.name, clients.company, COALESCE(SUM(invoices.amount_paid), 0) AS total_paid").
		Joins("JOIN invoices ON invoices.client_id = clients.id").
		Group("clients.id, clients.name, clients.company").
		Having("SUM(invoices.amount_paid) > 0").
		Order("total_paid desc").
		Limit(10).
		Scan(&out.TopClients).Error; err != nil {
		return nil, err
	}

	if err := a.DB.Model(&models.Client{}).Count(&out.TotalClients).Error; err != nil {
		return nil, err
	}
	repeat := a.DB.Model(&models.Project{}).
		Select("client_id").
		Group("client_id").
		Having("COUNT(*) > 1")
	if err := a.DB.Table("(?) AS repeat_clients", repeat).Count(&out.RepeatClients).Error; err != nil {
		return nil, err
	}
	if out.TotalClients > 0 {
		out.RetentionRate = float64(out.RepeatClients) / float64(out.TotalClients) * 100
	}
	return out, nil
}

type StatusSlice struct {
	PaymentStatus string          `json:"payment_status"`
	Count         int             `json:"count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

type MethodSlice struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

type PaymentAnalytics struct {
	StatusDistribution []StatusSlice   `json:"status_distribution"`
	PaymentMethods     []MethodSlice   `json:"payment_methods"`
	TotalOutstanding   decimal.Decimal `json:"total_outstanding"`
}

func (a *AnalyticsService) Payments() (*PaymentAnalytics, error) {
	out := &PaymentAnalytics{}
	if err := a.DB.Model(&models.Invoice{}).
		Select("payment_status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total_amount").
		Group("payment_status").
		Scan(&out.StatusDistribution).Error; err != nil {
		return nil, err
	}
	if err := a.DB.Model(&models.Payment{}).
		Select("method, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Group("method").
		Order("total desc").
		Scan(&out.PaymentMethods).Error; err != nil {
		return nil, err
	}
	var err error
	out.TotalOutstanding, err = a.Outstanding(openStatuses)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type UpcomingDeadline struct {
	ProjectID  uuid.UUID `json:"project_id"`
	Title      string    `json:"title"`
	Deadline   time.Time `json:"deadline"`
	Status     string    `json:"status"`
	ClientName string    `json:"client_name"`
}

type DeadlineAnalytics struct {
	UpcomingDeadlines []UpcomingDeadline `json:"upcoming_deadlines"`
	OverdueCount      int64              `json:"overdue_count"`
	TotalCompleted    int64              `json:"total_completed"`
	OnTimeRate        float64            `json:"on_time_rate"`
}

var inFlightStatuses = []string{models.ProjectPending, models.ProjectInProgress, models.ProjectReview}

func (a *AnalyticsService) Deadlines() (*DeadlineAnalytics, error) {
	now := a.Now()
	out := &DeadlineAnalytics{}

	if err := a.DB.Model(&models.Project{}).
		Select("projects.id AS project_id, projects.title, projects.deadline, projects.status, clients.name AS client_name").
		Joins("JOIN clients ON clients.id = projects.client_id").
		Where("projects.deadline >= ? AND projects.deadline <= ? AND projects.status IN ?",
			now, now.AddDate(0, 0, 30), inFlightStatuses).
		Order("projects.deadline asc").
		Limit(20).
		Scan(&out.UpcomingDeadlines).Error; err != nil {
		return nil, err
	}

	if err := a.DB.Model(&models.Project{}).
		Where("deadline < ? AND status IN ?", now, inFlightStatuses).
		Count(&out.OverdueCount).Error; err != nil {
		return nil, err
	}

	if err := a.DB.Model(&models.Project{}).
		Where("status = ?", models.ProjectCompleted).
		Count(&out.TotalCompleted).Error; err != nil {
		return nil, err
	}
	if out.TotalCompleted > 0 {
		var onTime int64
		if err := a.DB.Model(&models.Project{}).
			Where("status = ? AND completed_at IS NOT NULL AND completed_at <= deadline", models.ProjectCompleted).
			Count(&onTime).Error; err != nil {
			return nil, err
		}
		out.OnTimeRate = float64(onTime) / float64(out.TotalCompleted) * 100
	}
	return out, nil
}

type ToolBreakdown struct {
	ToolName string          `json:"tool_name"`
	Cost     decimal.Decimal `json:"cost"`
	Credits  int             `json:"credits"`
	Items    int             `json:"items"`
}

type ClientCostSummary struct {
	ClientID        uuid.UUID       `json:"client_id"`
	ClientName      string          `json:"client_name"`
	Company         string          `json:"company"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	TotalCredits    int             `json:"total_credits_used"`
	TotalItems      int             `json:"total_items_generated"`
	BreakdownByTool []ToolBreakdown `json:"breakdown_by_tool" gorm:"-"`
}

// CostSummary groups all usage by active client, with a per-tool breakdown.
// Two grouped aggregate queries merged by client id, never one query per
// client; the result is identical either way.
func (a *AnalyticsService) CostSummary() ([]ClientCostSummary, error) {
	finalCost := "COALESCE(SUM(COALESCE(credit_usages.manual_cost, credit_usages.calculated_cost)), 0)"

	var totals []ClientCostSummary
	if err := a.DB.Model(&models.CreditUsage{}).
		Select("credit_usages.client_id AS client_id, clients.name AS client_name, clients.company, "+
			finalCost+" AS total_cost, "+
			"COALESCE(SUM(credit_usages.credits_used), 0) AS total_credits, "+
			"COALESCE(SUM(credit_usages.items_generated), 0) AS total_items").
		Joins("JOIN clients ON clients.id = credit_usages.client_id").
		Where("clients.is_active = ?", true).
		Group("credit_usages.client_id, clients.name, clients.company").
		Order("total_cost desc").
		Scan(&totals).Error; err != nil {
		return nil, err
	}

	var breakdown []struct {
		ClientID uuid.UUID
		ToolName string
		Cost     decimal.Decimal
		Credits  int
		Items    int
	}
	if err := a.DB.Model(&models.CreditUsage{}).
		Select("credit_usages.client_id AS client_id, ai_tools.display_name AS tool_name, "+
			finalCost+" AS cost, "+
			"COALESCE(SUM(credit_usages.credits_used), 0) AS credits, "+
			"COALESCE(SUM(credit_usages.items_generated), 0) AS items").
		Joins("JOIN subscriptions ON subscriptions.id = credit_usages.subscription_id").
		Joins("JOIN ai_tools ON ai_tools.id = subscriptions.tool_id").
		Joins("JOIN clients ON clients.id = credit_usages.client_id").
		Where("clients.is_active = ?", true).
		Group("credit_usages.client_id, ai_tools.display_name").
		Scan(&breakdown).Error; err != nil {
		return nil, err
	}

	byClient := map[uuid.UUID][]ToolBreakdown{}
	for _, b := range breakdown {
		byClient[b.ClientID] = append(byClient[b.ClientID], ToolBreakdown{
			ToolName: b.ToolName,
			Cost:     b.Cost,
			Credits:  b.Credits,
			Items:    b.Items,
		})
	}
	for i := range totals {
		totals[i].BreakdownByTool = byClient[totals[i].ClientID]
	}
	return totals, nil
}

type LedgerOverview struct {
	Tool             string           `json:"tool"`
	ToolType         string           `json:"tool_type"`
	Cost             decimal.Decimal  `json:"cost"`
	OriginalAmount   *decimal.Decimal `json:"original_amount,omitempty"`
	OriginalCurrency string           `json:"original_currency,omitempty"`
	CreditsTotal     *int             `json:"credits_total,omitempty"`
	CreditsUsed      int              `json:"credits_used"`
	CreditsRemaining *int             `json:"credits_remaining,omitempty"`
	CostPerCredit    *decimal.Decimal `json:"cost_per_credit,omitempty"`
}

type MonthlyOverview struct {
	Month         string           `json:"month"`
	TotalCost     decimal.Decimal  `json:"total_cost"`
	Subscriptions []LedgerOverview `json:"subscriptions"`
}

// Monthly summarizes all active ledgers for one billing month: one query
// for the ledgers, one grouped aggregate for their consumed credits.
func (a *AnalyticsService) Monthly(month time.Time) (*MonthlyOverview, error) {
	first := models.FirstOfMonth(month)
	var subs []models.Subscription
	if err := a.DB.Preload("Tool").
		Where("billing_month = ? AND is_active = ?", first, true).
		Find(&subs).Error; err != nil {
		return nil, err
	}

	usedBySub := map[uuid.UUID]int{}
	if len(subs) > 0 {
		ids := make([]uuid.UUID, 0, len(subs))
		for _, s := range subs {
			ids = append(ids, s.ID)
		}
		var rows []struct {
			SubscriptionID uuid.UUID
			Used           int
		}
		if err := a.DB.Model(&models.CreditUsage{}).
			Select("subscription_id, COALESCE(SUM(credits_used), 0) AS used").
			Where("subscription_id IN ?", ids).
			Group("subscription_id").
			Scan(&rows).Error; err != nil {
			return nil, err
		}
		for _, r := range rows {
			usedBySub[r.SubscriptionID] = r.Used
		}
	}

	out := &MonthlyOverview{Month: first.Format("2006-01")}
	for _, s := range subs {
		entry := LedgerOverview{
			Tool:             s.Tool.DisplayName,
			ToolType:         s.Tool.ToolType,
			Cost:             s.TotalCost,
			OriginalAmount:   s.OriginalAmount,
			OriginalCurrency: s.OriginalCurrency,
			CreditsTotal:     s.TotalCredits,
			CreditsUsed:      usedBySub[s.ID],
			CreditsRemaining: s.CreditsRemaining,
		}
		if cpc, ok := s.CostPerCredit(); ok {
			entry.CostPerCredit = &cpc
		}
		out.TotalCost = out.TotalCost.Add(s.TotalCost)
		out.Subscriptions = append(out.Subscriptions, entry)
	}
	return out, nil
}

// UsageByClientForSubscription is the per-client breakdown for one ledger.
type SubscriptionClientUsage struct {
	ClientID     uuid.UUID       `json:"client_id"`
	ClientName   string          `json:"client_name"`
	TotalCredits int             `json:"total_credits"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	TotalItems   int             `json:"total_items"`
}

func (a *AnalyticsService) UsageByClientForSubscription(subID uuid.UUID) ([]SubscriptionClientUsage, error) {
	var rows []SubscriptionClientUsage
	err := a.DB.Model(&models.CreditUsage{}).
		Select("credit_usages.client_id AS client_id, clients.name AS client_name, " +
			"COALESCE(SUM(credit_usages.credits_used), 0) AS total_credits, " +
			"COALESCE(SUM(COALESCE(credit_usages.manual_cost, credit_usages.calculated_cost)), 0) AS total_cost, " +
			"COALESCE(SUM(credit_usages.items_generated), 0) AS total_items").
		Joins("JOIN clients ON clients.id = credit_usages.client_id").
		Where("credit_usages.subscription_id = ?", subID).
		Group("credit_usages.client_id, clients.name").
		Order("total_cost desc").
		Scan(&rows).Error
	return rows, err
}
