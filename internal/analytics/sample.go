package analytics

import "time"

// sampleWeekStart anchors the demo week when no real window is supplied.
var sampleWeekStart = time.Date(2025, time.February, 17, 0, 0, 0, 0, time.UTC)

var sampleItems = []ItemStat{
	{Name: "Craft IPA Draft", Category: "Beer", Revenue: 248600, Quantity: 142},
	{Name: "Whiskey Neat", Category: "Spirits", Revenue: 187200, Quantity: 78},
	{Name: "Cheeseburger", Category: "Food", Revenue: 156800, Quantity: 52},
	{Name: "House Red Wine", Category: "Wine", Revenue: 134400, Quantity: 96},
	{Name: "Nachos", Category: "Food", Revenue: 112000, Quantity: 56},
}

var sampleStaff = []StaffStat{
	{Name: "Marcus T.", Transactions: 148, TotalRevenue: 717800, AvgTransaction: 4850},
	{Name: "Sarah K.", Transactions: 162, TotalRevenue: 699840, AvgTransaction: 4320},
	{Name: "Jake R.", Transactions: 170, TotalRevenue: 676600, AvgTransaction: 3980},
}

var sampleDays = []struct {
	revenue int64
	count   int
}{
	{182000, 47}, {156000, 41}, {198000, 51}, {245000, 64}, {398000, 103}, {467500, 121}, {201000, 53},
}

var sampleHours = []HourRevenue{
	{Hour: 11, Revenue: 45000, Transactions: 12},
	{Hour: 12, Revenue: 89000, Transactions: 23},
	{Hour: 13, Revenue: 112000, Transactions: 29},
	{Hour: 14, Revenue: 78000, Transactions: 20},
	{Hour: 15, Revenue: 67000, Transactions: 17},
	{Hour: 16, Revenue: 134000, Transactions: 35},
	{Hour: 17, Revenue: 198000, Transactions: 51},
	{Hour: 18, Revenue: 267000, Transactions: 69},
	{Hour: 19, Revenue: 312000, Transactions: 81},
	{Hour: 20, Revenue: 289000, Transactions: 75},
	{Hour: 21, Revenue: 198000, Transactions: 51},
	{Hour: 22, Revenue: 134000, Transactions: 35},
	{Hour: 23, Revenue: 89000, Transactions: 23},
}

func sampleBase(w Window) Metrics {
	if w.Start.IsZero() {
		w = Window{Start: sampleWeekStart, End: sampleWeekStart.AddDate(0, 0, 7)}
	}
	days := make([]DayRevenue, 0, len(sampleDays))
	for i, d := range sampleDays {
		day := w.Start.AddDate(0, 0, i)
		days = append(days, DayRevenue{Date: day, Label: day.Format("Mon Jan 2"), Revenue: d.revenue, Transactions: d.count})
	}
	return Metrics{
		Window:         w,
		Revenue:        1847500,
		RevenueChange:  12.3,
		Transactions:   480,
		AvgTransaction: 3850,
		TopItems:       append([]ItemStat(nil), sampleItems...),
		TopStaff:       append([]StaffStat(nil), sampleStaff...),
		RevenueByDay:   days,
		RevenueByHour:  append([]HourRevenue(nil), sampleHours...),
		Sample:         true,
	}
}

// SampleDashboardMetrics is shown to accounts with nothing synced yet.
func SampleDashboardMetrics(w Window) Metrics {
	m := sampleBase(w)
	m.ComparisonAvgTransaction = 3660
	m.AvgTransactionChange = 5.2
	m.TopItems = capped(m.TopItems, dashboardTopItems)
	m.TopStaff = capped(m.TopStaff, dashboardTopStaff)
	m.RevenueByHour = nil
	return m
}

// SampleWeeklyMetrics stands in for a week with no transactions so the
// report pipeline still produces something worth reading.
func SampleWeeklyMetrics(w Window) Metrics {
	m := sampleBase(w)
	m.ComparisonAvgTransaction = 3660
	m.AvgTransactionChange = PercentChange(3850, 3660)
	return m
}
