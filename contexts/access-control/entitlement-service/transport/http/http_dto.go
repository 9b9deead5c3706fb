package http

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type GrantTemporaryAccessRequest struct {
	UserID string `json:"userId"`
	Hours  *int   `json:"hours"`
	Reason string `json:"reason"`
}

type GrantTemporaryAccessResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresAt string `json:"expiresAt"`
}

type CheckAccessRequest struct {
	UserID string `json:"userId"`
}

type CheckAccessResponse struct {
	HasAccess  bool          `json:"hasAccess"`
	Reason     string        `json:"reason"`
	UserStatus UserStatusDTO `json:"userStatus"`
	CheckedAt  string        `json:"checkedAt"`
}

type ProcessPaymentSuccessRequest struct {
	UserID    string `json:"userId"`
	PlanType  string `json:"planType"`
	SessionID string `json:"sessionId"`
}

type ProcessPaymentSuccessResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	PlanType string `json:"planType"`
}

type CleanupExpiredResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	CleanedUpCount int64  `json:"cleanedUpCount"`
}

type UserStatusRequest struct {
	UserID string `json:"userId"`
}

type UserStatusResponse struct {
	AccessStatus AccessStatusDTO `json:"accessStatus"`
	RetrievedAt  string          `json:"retrievedAt"`
}

// UserStatusDTO is the wire shape of one entitlement record.
type UserStatusDTO struct {
	UserID                string `json:"userId"`
	Email                 string `json:"email,omitempty"`
	EmailVerified         bool   `json:"emailVerified"`
	TemporaryAccessUntil  string `json:"temporaryAccessUntil,omitempty"`
	TemporaryAccessReason string `json:"temporaryAccessReason,omitempty"`
	PaymentVerified       bool   `json:"paymentVerified"`
	SubscriptionStatus    string `json:"subscriptionStatus"`
	SubscriptionPlan      string `json:"subscriptionPlan,omitempty"`
	ManualOverride        bool   `json:"manualOverride"`
	LastPaymentDate       string `json:"lastPaymentDate,omitempty"`
	UpdatedAt             string `json:"updatedAt,omitempty"`
}

// AccessStatusDTO extends the record shape with read-tier metadata. The shape
// is identical whether the snapshot or the raw record served the read.
type AccessStatusDTO struct {
	UserStatusDTO
	FromSnapshot bool   `json:"fromSnapshot"`
	ProjectedAt  string `json:"projectedAt,omitempty"`
}
