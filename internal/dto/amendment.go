package dto

import "github.com/noah-isme/lawmon-api/internal/models"

// TransitionRequest moves an amendment forward in its lifecycle.
type TransitionRequest struct {
	Status     models.AmendmentStatus `json:"status" validate:"required,amendment_status"`
	Approver   string                 `json:"approver" validate:"omitempty,max=100"`
	Comment    string                 `json:"approvalComment" validate:"required_if=Status COMPLETED,max=2000"`
	ReviewDate string                 `json:"departmentReviewDate" validate:"omitempty,datetime=2006-01-02"`
}

// ApprovalRequest asks an approver to sign off an amendment.
type ApprovalRequest struct {
	Approver string `json:"approver" validate:"required,max=100"`
}

// TransitionResponse reports the committed record and the notification outcome.
type TransitionResponse struct {
	Record       *models.AmendmentRecord `json:"record"`
	Notification *models.Notification    `json:"notification,omitempty"`
	Dispatch     *DispatchSummary        `json:"dispatch,omitempty"`
}

// DispatchSummary is the wire form of a dispatch result.
type DispatchSummary struct {
	Broadcast ChannelSummary  `json:"broadcast"`
	Email     ChannelSummary  `json:"email"`
	Operator  *ChannelSummary `json:"operator,omitempty"`
}

// ChannelSummary reports one channel's outcome.
type ChannelSummary struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// AmendmentListRequest filters the amendment listing.
type AmendmentListRequest struct {
	Status models.AmendmentStatus `form:"status" validate:"omitempty,amendment_status"`
	Query  string                 `form:"q" validate:"max=200"`
}
