package audithook

// Action constants for exported audit events.
const (
	// Batch actions
	ActionBatchCreated  = "batch.created"
	ActionBatchExecuted = "batch.executed"
	ActionBatchCanceled = "batch.canceled"

	// Value store actions
	ActionValueUpdated    = "value.updated"
	ActionQuotaExceeded   = "quota.exceeded"
	ActionPremiumUpgraded = "premium.upgraded"
	ActionBackupCreated   = "backup.created"
	ActionBackupRestored  = "backup.restored"
	ActionAccessGranted   = "access.granted"
	ActionAccessRevoked   = "access.revoked"

	// Governance actions
	ActionAdmin = "admin.action"
)

// Resource constants for exported audit events.
const (
	ResourceBatch    = "batch"
	ResourceRecord   = "record"
	ResourceBackup   = "backup"
	ResourceGrant    = "grant"
	ResourceContract = "contract"
)

// Category constants for exported audit events.
const (
	CategoryPayment    = "payment"
	CategoryStorage    = "storage"
	CategoryAccess     = "access"
	CategoryGovernance = "governance"
)

// Severity levels for exported audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for exported audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
