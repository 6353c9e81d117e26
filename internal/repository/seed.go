package repository

import (
	"time"

	"github.com/noah-isme/lawmon-api/internal/models"
)

// DefaultSeed returns demo data laid out around now so the dashboard windows are populated.
func DefaultSeed(now time.Time) Seed {
	day := func(offset int) string {
		return now.AddDate(0, 0, offset).Format(models.DateLayout)
	}
	month := func(offset int) string {
		return now.AddDate(0, offset, 0).Format(models.DateLayout)
	}
	str := func(v string) *string { return &v }
	applied := func(v bool) *bool { return &v }

	return Seed{
		Amendments: []models.AmendmentRecord{
			{
				ID:            "1",
				LawID:         "1",
				LawName:       "개인정보 보호법",
				Title:         "개인정보 보호법 시행령 일부개정령(안)",
				Content:       "개인정보의 안전한 처리를 위한 내부 관리계획 수립 등",
				Status:        models.AmendmentStatusReview,
				AmendmentDate: month(0),
				ExpectedDate:  day(12),
				Reviewer:      str("김철수"),
				LawLink:       str("https://www.law.go.kr/법령/개인정보보호법"),
			},
			{
				ID:            "2",
				LawID:         "2",
				LawName:       "전자금융거래법",
				Title:         "전자금융거래법 시행령 일부개정령(안)",
				Content:       "전자금융거래의 안전성 확보를 위한 기준 강화",
				Status:        models.AmendmentStatusInProgress,
				AmendmentDate: month(-1),
				ExpectedDate:  day(5),
				Reviewer:      str("이영희"),
				Approver:      str("최부장"),
				IsApplied:     applied(false),
			},
			{
				ID:                   "3",
				LawID:                "3",
				LawName:              "정보통신망법",
				Title:                "정보통신망법 시행령 일부개정령",
				Content:              "정보보호 최고책임자의 자격요건 등",
				Status:               models.AmendmentStatusCompleted,
				AmendmentDate:        month(-2),
				ExpectedDate:         day(25),
				DepartmentReviewDate: str(month(-2)),
				Reviewer:             str("박민수"),
				Approver:             str("김부장"),
				ApprovalComment:      str("검토 완료"),
				IsApplied:            applied(true),
			},
		},
		Settings: []models.NotificationSetting{
			{LawID: "1", NotifyOnApproval: true, NotifyBeforeDueDate: true, DaysBeforeDueDate: 7},
			{LawID: "2", NotifyOnApproval: true, NotifyOnStatusChange: true, NotifyBeforeDueDate: true, DaysBeforeDueDate: 14},
			{LawID: "3", NotifyOnApproval: true, NotifyBeforeDueDate: true, DaysBeforeDueDate: 10},
		},
		Notifications: []models.Notification{
			{
				ID:        "seed-1",
				Type:      models.NotificationTypeApprovalRequest,
				LawID:     "1",
				LawName:   "개인정보 보호법",
				Message:   "개인정보 보호법 법령 개정안에 대한 결재가 요청되었습니다.",
				CreatedAt: now.AddDate(0, 0, -3).UTC(),
				Link:      "/laws/1",
			},
			{
				ID:        "seed-2",
				Type:      models.NotificationTypeApprovalComplete,
				LawID:     "3",
				LawName:   "정보통신망법",
				Message:   "정보통신망법 법령의 결재가 완료되었습니다.",
				CreatedAt: now.AddDate(0, -2, 0).UTC(),
				IsRead:    true,
				Link:      "/laws/3",
			},
		},
		Departments: []models.DepartmentStat{
			{Department: "법무팀", TotalCount: 10, CompletedCount: 4, PendingCount: 3, InProgressCount: 3},
			{Department: "정보보호팀", TotalCount: 8, CompletedCount: 5, PendingCount: 2, InProgressCount: 1},
			{Department: "준법감시팀", TotalCount: 12, CompletedCount: 6, PendingCount: 4, InProgressCount: 2},
		},
	}
}
