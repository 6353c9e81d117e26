package models

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

// DateLayout is the calendar date format used for amendment dates.
const DateLayout = "2006-01-02"

// AmendmentStatus tracks the review lifecycle of an amendment.
type AmendmentStatus string

const (
	AmendmentStatusReview     AmendmentStatus = "REVIEW"
	AmendmentStatusInProgress AmendmentStatus = "IN_PROGRESS"
	AmendmentStatusCompleted  AmendmentStatus = "COMPLETED"
)

// AmendmentStatuses lists statuses in lifecycle order.
var AmendmentStatuses = []AmendmentStatus{
	AmendmentStatusReview,
	AmendmentStatusInProgress,
	AmendmentStatusCompleted,
}

func (s AmendmentStatus) rank() int {
	switch s {
	case AmendmentStatusReview:
		return 1
	case AmendmentStatusInProgress:
		return 2
	case AmendmentStatusCompleted:
		return 3
	default:
		return 0
	}
}

// Valid reports whether the status is a known lifecycle state.
func (s AmendmentStatus) Valid() bool {
	return s.rank() > 0
}

// Label returns the display label shown to reviewers.
func (s AmendmentStatus) Label() string {
	switch s {
	case AmendmentStatusReview:
		return "검토중"
	case AmendmentStatusInProgress:
		return "진행중"
	case AmendmentStatusCompleted:
		return "완료"
	default:
		return "-"
	}
}

// AmendmentRecord represents a tracked law amendment.
type AmendmentRecord struct {
	ID                   string               `db:"id" json:"id"`
	LawID                string               `db:"law_id" json:"lawId"`
	LawName              string               `db:"law_name" json:"lawName"`
	Title                string               `db:"title" json:"title"`
	Content              string               `db:"content" json:"content"`
	Status               AmendmentStatus      `db:"status" json:"status"`
	AmendmentDate        string               `db:"amendment_date" json:"amendmentDate"`
	ExpectedDate         string               `db:"expected_date" json:"expectedDate"`
	DepartmentReviewDate *string              `db:"department_review_date" json:"departmentReviewDate,omitempty"`
	Reviewer             *string              `db:"reviewer" json:"reviewer,omitempty"`
	Approver             *string              `db:"approver" json:"approver,omitempty"`
	ApprovalComment      *string              `db:"approval_comment" json:"approvalComment,omitempty"`
	IsApplied            *bool                `db:"is_applied" json:"isApplied"`
	LawLink              *string              `db:"law_link" json:"lawLink,omitempty"`
	NotificationSetting  *NotificationSetting `db:"-" json:"notificationSettings,omitempty"`
}

// Approved reports whether the one-time approval fields have been written.
func (r *AmendmentRecord) Approved() bool {
	return r.DepartmentReviewDate != nil && *r.DepartmentReviewDate != ""
}

// TransitionParams carries the values written by a status transition.
type TransitionParams struct {
	Status     AmendmentStatus
	Approver   string
	Comment    string
	ReviewDate string
}

// CheckTransition validates params against the current record. Order of checks:
// already approved, forward-only ordering, then the approval comment.
func (r *AmendmentRecord) CheckTransition(params TransitionParams) error {
	target := params.Status
	if r.Approved() {
		return appErrors.Clone(appErrors.ErrAlreadyApproved, fmt.Sprintf("amendment %s already approved on %s", r.ID, *r.DepartmentReviewDate))
	}
	if !target.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("unknown status %q", target))
	}
	if target.rank() <= r.Status.rank() {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move amendment %s from %s to %s", r.ID, r.Status, target))
	}
	if target == AmendmentStatusCompleted && strings.TrimSpace(params.Comment) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "approval comment is required to complete an amendment")
	}
	return nil
}

// Apply writes a previously checked transition onto the record.
func (r *AmendmentRecord) Apply(params TransitionParams) {
	r.Status = params.Status
	if params.Status != AmendmentStatusCompleted {
		return
	}
	comment := params.Comment
	reviewDate := params.ReviewDate
	r.ApprovalComment = &comment
	r.DepartmentReviewDate = &reviewDate
	if params.Approver != "" {
		approver := params.Approver
		r.Approver = &approver
	}
}

// ParseDate parses a calendar date in DateLayout as UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}
