package http

import (
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

// RiskResponse is the JSON form of a risk. Levels are always derived.
type RiskResponse struct {
	ID                  int64      `json:"id"`
	Code                string     `json:"code"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Category            string     `json:"category"`
	Probability         int        `json:"probability"`
	Impact              int        `json:"impact"`
	Score               int        `json:"score"`
	RiskLevel           string     `json:"riskLevel"`
	ResidualProbability int        `json:"residualProbability"`
	ResidualImpact      int        `json:"residualImpact"`
	ResidualLevel       *string    `json:"residualLevel"`
	Treatment           *string    `json:"treatment"`
	TreatmentPlan       string     `json:"treatmentPlan"`
	Status              string     `json:"status"`
	MonitoringFrequency *string    `json:"monitoringFrequency"`
	LastReviewDate      *time.Time `json:"lastReviewDate"`
	NextReviewDate      *time.Time `json:"nextReviewDate"`
	RiskAppetite        *string    `json:"riskAppetite"`
	ResponsibleID       *string    `json:"responsibleId"`
	CreatedBy           string     `json:"createdBy"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type TreatmentResponse struct {
	ID                      int64     `json:"id"`
	RiskID                  int64     `json:"riskId"`
	Description             string    `json:"description"`
	Status                  string    `json:"status"`
	ControlImplementationID *string   `json:"controlImplementationId"`
	CreatedBy               string    `json:"createdBy"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

type ReviewResponse struct {
	ID                  string    `json:"id"`
	RiskID              int64     `json:"riskId"`
	Probability         int       `json:"probability"`
	Impact              int       `json:"impact"`
	RiskLevel           string    `json:"riskLevel"`
	ResidualProbability int       `json:"residualProbability"`
	ResidualImpact      int       `json:"residualImpact"`
	ResidualLevel       *string   `json:"residualLevel"`
	Status              string    `json:"status"`
	ReviewNotes         string    `json:"reviewNotes"`
	ReviewerID          string    `json:"reviewerId"`
	CreatedAt           time.Time `json:"createdAt"`
}

// RiskDetailResponse embeds the risk fields next to its ledger and history
type RiskDetailResponse struct {
	RiskResponse
	Treatments []TreatmentResponse `json:"treatments"`
	History    []ReviewResponse    `json:"history"`
}

type MatrixResponse struct {
	Grid                 [][]int        `json:"grid"`
	ResidualGrid         [][]int        `json:"residualGrid"`
	CountByLevel         map[string]int `json:"countByLevel"`
	ResidualCountByLevel map[string]int `json:"residualCountByLevel"`
	Total                int            `json:"total"`
	ResidualTotal        int            `json:"residualTotal"`
}

type AuditEntryResponse struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Metadata   map[string]any `json:"metadata"`
	IPAddress  string         `json:"ipAddress"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// ReportResponse is the document written by the report command
type ReportResponse struct {
	WorkspaceID string               `json:"workspaceId"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Matrix      MatrixResponse       `json:"matrix"`
	Overdue     []RiskResponse       `json:"overdue"`
	Risks       []RiskDetailResponse `json:"risks"`
}

func NewRiskResponse(r *model.Risk) RiskResponse {
	resp := RiskResponse{
		ID:                  r.ID,
		Code:                r.Code,
		Title:               r.Title,
		Description:         r.Description,
		Category:            r.Category.String(),
		Probability:         r.Probability,
		Impact:              r.Impact,
		Score:               r.Score(),
		RiskLevel:           r.RiskLevel().String(),
		ResidualProbability: r.ResidualProbability,
		ResidualImpact:      r.ResidualImpact,
		Treatment:           nonEmpty(r.Treatment.String()),
		TreatmentPlan:       r.TreatmentPlan,
		Status:              r.Status.String(),
		MonitoringFrequency: nonEmpty(r.MonitoringFrequency.String()),
		LastReviewDate:      r.LastReviewDate,
		NextReviewDate:      r.NextReviewDate,
		RiskAppetite:        nonEmpty(r.RiskAppetite),
		ResponsibleID:       nonEmpty(r.ResponsibleID),
		CreatedBy:           r.CreatedBy,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if level, ok := r.ResidualLevel(); ok {
		resp.ResidualLevel = nonEmpty(level.String())
	}
	return resp
}

func NewRiskResponses(risks []*model.Risk) []RiskResponse {
	resp := make([]RiskResponse, len(risks))
	for i, r := range risks {
		resp[i] = NewRiskResponse(r)
	}
	return resp
}

func NewTreatmentResponse(t *model.Treatment) TreatmentResponse {
	return TreatmentResponse{
		ID:                      t.ID,
		RiskID:                  t.RiskID,
		Description:             t.Description,
		Status:                  t.Status.String(),
		ControlImplementationID: nonEmpty(t.ControlImplementationID),
		CreatedBy:               t.CreatedBy,
		CreatedAt:               t.CreatedAt,
		UpdatedAt:               t.UpdatedAt,
	}
}

func NewReviewResponse(r *model.Review) ReviewResponse {
	resp := ReviewResponse{
		ID:                  string(r.ID),
		RiskID:              r.RiskID,
		Probability:         r.Probability,
		Impact:              r.Impact,
		RiskLevel:           r.RiskLevel.String(),
		ResidualProbability: r.ResidualProbability,
		ResidualImpact:      r.ResidualImpact,
		Status:              r.Status.String(),
		ReviewNotes:         r.ReviewNotes,
		ReviewerID:          r.ReviewerID,
		CreatedAt:           r.CreatedAt,
	}
	if level, ok := r.ResidualLevel(); ok {
		resp.ResidualLevel = nonEmpty(level.String())
	}
	return resp
}

func NewReviewResponses(reviews []*model.Review) []ReviewResponse {
	resp := make([]ReviewResponse, len(reviews))
	for i, r := range reviews {
		resp[i] = NewReviewResponse(r)
	}
	return resp
}

func NewRiskDetailResponse(d *model.RiskDetail) RiskDetailResponse {
	resp := RiskDetailResponse{
		RiskResponse: NewRiskResponse(d.Risk),
		Treatments:   make([]TreatmentResponse, len(d.Treatments)),
		History:      NewReviewResponses(d.Reviews),
	}
	for i, t := range d.Treatments {
		resp.Treatments[i] = NewTreatmentResponse(t)
	}
	return resp
}

func NewMatrixResponse(m *usecase.MatrixSummary) MatrixResponse {
	return MatrixResponse{
		Grid:                 m.Inherent.Grid(),
		ResidualGrid:         m.Residual.Grid(),
		CountByLevel:         levelCounts(m.CountByLevel),
		ResidualCountByLevel: levelCounts(m.ResidualCountByLevel),
		Total:                m.Total,
		ResidualTotal:        m.Residual.Total(),
	}
}

func NewAuditEntryResponse(e *model.AuditEntry) AuditEntryResponse {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return AuditEntryResponse{
		ID:         e.ID,
		UserID:     e.UserID,
		Action:     e.Action.String(),
		EntityType: e.EntityType.String(),
		EntityID:   e.EntityID,
		Metadata:   metadata,
		IPAddress:  e.IPAddress,
		CreatedAt:  e.CreatedAt,
	}
}

func NewReportResponse(r *usecase.Report) ReportResponse {
	resp := ReportResponse{
		WorkspaceID: r.WorkspaceID,
		GeneratedAt: r.GeneratedAt,
		Matrix:      NewMatrixResponse(r.Matrix),
		Overdue:     NewRiskResponses(r.Overdue),
		Risks:       make([]RiskDetailResponse, len(r.Risks)),
	}
	for i, d := range r.Risks {
		resp.Risks[i] = NewRiskDetailResponse(d)
	}
	return resp
}

func levelCounts(counts map[types.RiskLevel]int) map[string]int {
	resp := make(map[string]int, len(counts))
	for level, n := range counts {
		resp[level.String()] = n
	}
	return resp
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
