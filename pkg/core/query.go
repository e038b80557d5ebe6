package core

import "time"

// SortDirection orders query results.
type SortDirection string

const (
	Asc  SortDirection = "ASC"
	Desc SortDirection = "DESC"
)

// Order is one sort key of a TimerJobQuery.
type Order struct {
	Column    string
	Direction SortDirection
}

// TimerJobQuery collects filters and sort keys over timer jobs. Zero-valued
// fields are ignored. The storage backend evaluates the query.
//
//	q := core.NewTimerJobQuery().
//	    HandlerType("delete-historic-case-status").
//	    WithException().
//	    OrderByDueDate(core.Asc)
type TimerJobQuery struct {
	JobIDValue               string
	ProcessInstanceIDValue   string
	NoProcessInstanceID      bool
	ExecutionIDValue         string
	ProcessDefinitionIDValue string
	CaseInstanceIDValue      string
	CaseDefinitionIDValue    string
	PlanItemInstanceIDValue  string
	ScopeIDValue             string
	NoScopeID                bool
	SubScopeIDValue          string
	ScopeTypeValue           string
	NoScopeType              bool
	ScopeDefinitionIDValue   string
	CorrelationIDValue       string
	ElementIDValue           string
	ElementNameValue         string
	HandlerTypeValue         string
	CategoryValue            string
	CategoryLikeValue        string
	OnlyExecutable           bool
	Now                      time.Time // Reference time for Executable; defaults to time.Now()
	DueBeforeValue           *time.Time
	DueAfterValue            *time.Time
	OnlyWithException        bool
	ExceptionMessageValue    string
	TenantIDValue            string
	TenantIDLikeValue        string
	NoTenantID               bool

	Orders      []Order
	LimitValue  int
	OffsetValue int
}

// NewTimerJobQuery returns an empty query matching every timer job.
func NewTimerJobQuery() *TimerJobQuery {
	return &TimerJobQuery{}
}

func (q *TimerJobQuery) JobID(id string) *TimerJobQuery { q.JobIDValue = id; return q }

func (q *TimerJobQuery) ProcessInstanceID(id string) *TimerJobQuery {
	q.ProcessInstanceIDValue = id
	return q
}

func (q *TimerJobQuery) WithoutProcessInstanceID() *TimerJobQuery {
	q.NoProcessInstanceID = true
	return q
}

func (q *TimerJobQuery) ExecutionID(id string) *TimerJobQuery { q.ExecutionIDValue = id; return q }

func (q *TimerJobQuery) ProcessDefinitionID(id string) *TimerJobQuery {
	q.ProcessDefinitionIDValue = id
	return q
}

func (q *TimerJobQuery) CaseInstanceID(id string) *TimerJobQuery {
	q.CaseInstanceIDValue = id
	return q
}

func (q *TimerJobQuery) CaseDefinitionID(id string) *TimerJobQuery {
	q.CaseDefinitionIDValue = id
	return q
}

func (q *TimerJobQuery) PlanItemInstanceID(id string) *TimerJobQuery {
	q.PlanItemInstanceIDValue = id
	return q
}

func (q *TimerJobQuery) ScopeID(id string) *TimerJobQuery { q.ScopeIDValue = id; return q }

func (q *TimerJobQuery) WithoutScopeID() *TimerJobQuery { q.NoScopeID = true; return q }

func (q *TimerJobQuery) SubScopeID(id string) *TimerJobQuery { q.SubScopeIDValue = id; return q }

func (q *TimerJobQuery) ScopeType(t string) *TimerJobQuery { q.ScopeTypeValue = t; return q }

func (q *TimerJobQuery) WithoutScopeType() *TimerJobQuery { q.NoScopeType = true; return q }

func (q *TimerJobQuery) ScopeDefinitionID(id string) *TimerJobQuery {
	q.ScopeDefinitionIDValue = id
	return q
}

func (q *TimerJobQuery) CorrelationID(id string) *TimerJobQuery {
	q.CorrelationIDValue = id
	return q
}

func (q *TimerJobQuery) ElementID(id string) *TimerJobQuery { q.ElementIDValue = id; return q }

func (q *TimerJobQuery) ElementName(name string) *TimerJobQuery {
	q.ElementNameValue = name
	return q
}

// HandlerType only selects jobs run by the given handler.
func (q *TimerJobQuery) HandlerType(t string) *TimerJobQuery { q.HandlerTypeValue = t; return q }

func (q *TimerJobQuery) Category(c string) *TimerJobQuery { q.CategoryValue = c; return q }

// CategoryLike matches categories with a SQL LIKE pattern.
func (q *TimerJobQuery) CategoryLike(pattern string) *TimerJobQuery {
	q.CategoryLikeValue = pattern
	return q
}

// Executable only selects jobs that are due and still have retries left.
func (q *TimerJobQuery) Executable() *TimerJobQuery { q.OnlyExecutable = true; return q }

// DueBefore only selects jobs due strictly before t.
func (q *TimerJobQuery) DueBefore(t time.Time) *TimerJobQuery { q.DueBeforeValue = &t; return q }

// DueAfter only selects jobs due strictly after t.
func (q *TimerJobQuery) DueAfter(t time.Time) *TimerJobQuery { q.DueAfterValue = &t; return q }

// WithException only selects jobs whose last execution failed.
func (q *TimerJobQuery) WithException() *TimerJobQuery { q.OnlyWithException = true; return q }

func (q *TimerJobQuery) ExceptionMessage(msg string) *TimerJobQuery {
	q.ExceptionMessageValue = msg
	return q
}

func (q *TimerJobQuery) TenantID(id string) *TimerJobQuery { q.TenantIDValue = id; return q }

func (q *TimerJobQuery) TenantIDLike(pattern string) *TimerJobQuery {
	q.TenantIDLikeValue = pattern
	return q
}

func (q *TimerJobQuery) WithoutTenantID() *TimerJobQuery { q.NoTenantID = true; return q }

func (q *TimerJobQuery) OrderByJobID(dir SortDirection) *TimerJobQuery {
	return q.orderBy("id", dir)
}

func (q *TimerJobQuery) OrderByDueDate(dir SortDirection) *TimerJobQuery {
	return q.orderBy("due_date", dir)
}

func (q *TimerJobQuery) OrderByCreateTime(dir SortDirection) *TimerJobQuery {
	return q.orderBy("created_at", dir)
}

func (q *TimerJobQuery) OrderByRetries(dir SortDirection) *TimerJobQuery {
	return q.orderBy("retries", dir)
}

func (q *TimerJobQuery) OrderByProcessInstanceID(dir SortDirection) *TimerJobQuery {
	return q.orderBy("process_instance_id", dir)
}

func (q *TimerJobQuery) OrderByExecutionID(dir SortDirection) *TimerJobQuery {
	return q.orderBy("execution_id", dir)
}

func (q *TimerJobQuery) OrderByTenantID(dir SortDirection) *TimerJobQuery {
	return q.orderBy("tenant_id", dir)
}

// Limit caps the number of returned jobs. Zero means no limit.
func (q *TimerJobQuery) Limit(n int) *TimerJobQuery { q.LimitValue = n; return q }

func (q *TimerJobQuery) Offset(n int) *TimerJobQuery { q.OffsetValue = n; return q }

func (q *TimerJobQuery) orderBy(column string, dir SortDirection) *TimerJobQuery {
	if dir != Desc {
		dir = Asc
	}
	q.Orders = append(q.Orders, Order{Column: column, Direction: dir})
	return q
}
