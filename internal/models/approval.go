package models

// RequestType tags the business transaction an approval chain applies to.
type RequestType string

const (
	RequestTypePayroll          RequestType = "PAYROLL"
	RequestTypeLoan             RequestType = "LOAN"
	RequestTypeLoanPostponement RequestType = "LOAN_POSTPONEMENT"
	RequestTypeLeave            RequestType = "LEAVE"
	RequestTypeProjectTransfer  RequestType = "PROJECT_TRANSFER"
	RequestTypeAllowance        RequestType = "ALLOWANCE"
)

// ScopeKind narrows a chain definition to a department or project.
type ScopeKind string

const (
	ScopeGlobal     ScopeKind = "GLOBAL"
	ScopeDepartment ScopeKind = "DEPARTMENT"
	ScopeProject    ScopeKind = "PROJECT"
)

// Scope pairs a kind with the department/project identifier it targets.
// The zero value is the global scope.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// GlobalScope is the catch-all scope used when no department or project
// specific chain exists.
var GlobalScope = Scope{Kind: ScopeGlobal}

// DepartmentScope builds a department-bound scope.
func DepartmentScope(id string) Scope { return Scope{Kind: ScopeDepartment, ID: id} }

// ProjectScope builds a project-bound scope.
func ProjectScope(id string) Scope { return Scope{Kind: ScopeProject, ID: id} }

// ApproverKind is the closed enum of approver resolution strategies.
type ApproverKind string

const (
	ApproverDirectManager  ApproverKind = "DIRECT_MANAGER"
	ApproverHRManager      ApproverKind = "HR_MANAGER"
	ApproverFinanceManager ApproverKind = "FINANCE_MANAGER"
	ApproverGeneralManager ApproverKind = "GENERAL_MANAGER"
	ApproverProjectManager ApproverKind = "PROJECT_MANAGER"
)

// ApproverKinds lists every supported kind; the registry validates against
// this set at startup.
var ApproverKinds = []ApproverKind{
	ApproverDirectManager,
	ApproverHRManager,
	ApproverFinanceManager,
	ApproverGeneralManager,
	ApproverProjectManager,
}

// ApprovalChainDefinition is one configured level of an approval chain.
// Within a (request type, scope) pair level numbers are contiguous from 1
// and exactly one row, the highest level, closes the chain.
type ApprovalChainDefinition struct {
	ID           string       `db:"id" json:"id"`
	RequestType  RequestType  `db:"request_type" json:"requestType"`
	ScopeKind    ScopeKind    `db:"scope_kind" json:"scopeKind"`
	ScopeID      *string      `db:"scope_id" json:"scopeId,omitempty"`
	LevelNo      int          `db:"level_no" json:"levelNo"`
	ApproverKind ApproverKind `db:"approver_kind" json:"approverKind"`
	ClosesChain  bool         `db:"closes_chain" json:"closesChain"`
	Active       bool         `db:"active" json:"active"`
}

// ApprovalStatus is the terminal/non-terminal state of an approvable entity.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// ApprovalState is embedded in every approvable entity. Terminal states
// carry nil level/approver; pending states carry both.
type ApprovalState struct {
	Status          ApprovalStatus `db:"approval_status" json:"status"`
	CurrentLevel    *int           `db:"current_level" json:"currentLevel,omitempty"`
	NextApproverID  *string        `db:"next_approver_id" json:"nextApproverId,omitempty"`
	RejectionReason *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	ApprovedBy      *string        `db:"approved_by" json:"approvedBy,omitempty"`
}

// Pending reports whether the state still awaits a decision.
func (s ApprovalState) Pending() bool {
	return s.Status == ApprovalStatusPending
}

// Terminal reports whether no further transitions are possible.
func (s ApprovalState) Terminal() bool {
	return s.Status == ApprovalStatusApproved || s.Status == ApprovalStatusRejected
}
