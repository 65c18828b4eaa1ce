package model

// ReportColumn describes one column of a tabular report.
type ReportColumn struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Type  string `json:"type"` // Data, Int, Currency, Percent, Date
	Width int    `json:"width,omitempty"`
}

// ReportSummaryItem is a headline figure shown above a report.
type ReportSummaryItem struct {
	Label     string      `json:"label"`
	Value     interface{} `json:"value"`
	Indicator string      `json:"indicator,omitempty"` // Green, Orange, Red, Blue
}

// ChartDataset is one series of a report chart.
type ChartDataset struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ReportChart is the chart rendered beside a report.
type ReportChart struct {
	Type     string         `json:"type"` // bar, line, pie, donut
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// Report is the result of running a report: columns, rows, summary and chart.
type Report struct {
	Name    string                   `json:"name"`
	Title   string                   `json:"title"`
	Columns []ReportColumn           `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
	Summary []ReportSummaryItem      `json:"summary"`
	Chart   *ReportChart             `json:"chart,omitempty"`
}

// ReportFilter carries the filters every report understands. Reports ignore
// the fields that do not apply to them.
type ReportFilter struct {
	From           *Date  `form:"from"`
	To             *Date  `form:"to"`
	AcademicYearID *int   `form:"academic_year_id"`
	SchoolClassID  *int   `form:"school_class_id"`
	FeeType        string `form:"fee_type"`
	BudgetID       *int   `form:"budget_id"`
	Warehouse      string `form:"warehouse"`
}

// DashboardCounters are the headline numbers of the back-office home page.
type DashboardCounters struct {
	ActiveStudents      int     `json:"active_students"`
	ActiveEmployees     int     `json:"active_employees"`
	ActiveClasses       int     `json:"active_classes"`
	OutstandingFees     float64 `json:"outstanding_fees"`
	OverdueBills        int     `json:"overdue_bills"`
	CollectedThisMonth  float64 `json:"collected_this_month"`
	TodayAttendanceRate float64 `json:"today_attendance_rate"`
	PendingApprovals    int     `json:"pending_approvals"`
	ItemsToReorder      int     `json:"items_to_reorder"`
}
