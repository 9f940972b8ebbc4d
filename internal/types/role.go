package types

// Account roles. Stored as plain strings so the directory of roles can be
// extended without a schema migration.
const (
	RoleUser             = "user"
	RoleConsultant       = "consultant"
	RoleEnterpriseOwner  = "enterprise_owner"
	RoleEnterpriseMember = "enterprise_member"
	RoleAdmin            = "admin"
)

// Verification states for consultant profiles and enterprises. There is no
// rejected state: an entity that fails review simply stays pending.
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
)
