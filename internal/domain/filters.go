package domain

// Group and sort keys understood by the host.
const (
	GroupByPriority            = "priority"
	GroupByFrom                = "from"
	GroupByStatus              = "status"
	GroupByDeadlineYear        = "deadlineYear"
	GroupByDeadlineMonthYear   = "deadlineMonthYear"
	GroupByFinishDateYear      = "finishDateYear"
	GroupByFinishDateMonthYear = "finishDateMonthYear"
	GroupByCreatedAtYear       = "createdAtYear"
	GroupByCreatedAtMonthYear  = "createdAtMonthYear"

	SortByDeadline  = "deadline"
	SortByPriority  = "priority"
	SortByFrom      = "from"
	SortByUpdatedAt = "updatedAt"
)

// TaskFilters narrows a task summary listing. Date bounds are ISO dates
// ("2006-01-02"); either end of a range may be empty.
type TaskFilters struct {
	Query         string   `json:"q,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Statuses      []string `json:"statuses,omitempty"`
	CreatedFrom   string   `json:"createdRF,omitempty"`
	CreatedTo     string   `json:"createdRT,omitempty"`
	UpdatedFrom   string   `json:"updatedRF,omitempty"`
	UpdatedTo     string   `json:"updatedRT,omitempty"`
	DeadlineFrom  string   `json:"deadlineRF,omitempty"`
	DeadlineTo    string   `json:"deadlineRT,omitempty"`
	FinishedFrom  string   `json:"finishedRF,omitempty"`
	FinishedTo    string   `json:"finishedRT,omitempty"`
	HasFinishDate string   `json:"hasFinishDate,omitempty"` // "false" keeps only unfinished tasks
	GroupBy       string   `json:"groupBy,omitempty"`
	SortBy        string   `json:"sortBy,omitempty"`
}

var groupByKeys = map[string]bool{
	GroupByPriority: true, GroupByFrom: true, GroupByStatus: true,
	GroupByDeadlineYear: true, GroupByDeadlineMonthYear: true,
	GroupByFinishDateYear: true, GroupByFinishDateMonthYear: true,
	GroupByCreatedAtYear: true, GroupByCreatedAtMonthYear: true,
}

var sortByKeys = map[string]bool{
	SortByDeadline: true, SortByPriority: true, SortByFrom: true, SortByUpdatedAt: true,
}

// ValidGroupBy reports whether key is a grouping the host understands.
func ValidGroupBy(key string) bool { return groupByKeys[key] }

// ValidSortBy reports whether key is a sort order the host understands.
func ValidSortBy(key string) bool { return sortByKeys[key] }
