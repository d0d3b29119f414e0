package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model/auth"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/usecase"
)

const maxBodySize = 1 << 20

type riskHandler struct {
	uc *usecase.UseCases
}

// levelFields are derived values; a body that sets one is rejected
type levelFields struct {
	RiskLevel     json.RawMessage `json:"riskLevel"`
	ResidualLevel json.RawMessage `json:"residualLevel"`
}

func (l levelFields) check() error {
	if len(l.RiskLevel) > 0 {
		return badRequest("riskLevel", "riskLevel is derived from probability and impact and cannot be set")
	}
	if len(l.ResidualLevel) > 0 {
		return badRequest("residualLevel", "residualLevel is derived from the residual pair and cannot be set")
	}
	return nil
}

type createRiskRequest struct {
	levelFields
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Category            string     `json:"category"`
	Probability         int        `json:"probability"`
	Impact              int        `json:"impact"`
	ResidualProbability int        `json:"residualProbability"`
	ResidualImpact      int        `json:"residualImpact"`
	Treatment           string     `json:"treatment"`
	TreatmentPlan       string     `json:"treatmentPlan"`
	Status              string     `json:"status"`
	MonitoringFrequency string     `json:"monitoringFrequency"`
	LastReviewDate      *time.Time `json:"lastReviewDate"`
	NextReviewDate      *time.Time `json:"nextReviewDate"`
	RiskAppetite        string     `json:"riskAppetite"`
	ResponsibleID       string     `json:"responsibleId"`
}

type updateRiskRequest struct {
	levelFields
	Title               optional[string]    `json:"title"`
	Description         optional[string]    `json:"description"`
	Category            optional[string]    `json:"category"`
	Probability         optional[int]       `json:"probability"`
	Impact              optional[int]       `json:"impact"`
	ResidualProbability optional[int]       `json:"residualProbability"`
	ResidualImpact      optional[int]       `json:"residualImpact"`
	Treatment           optional[string]    `json:"treatment"`
	TreatmentPlan       optional[string]    `json:"treatmentPlan"`
	Status              optional[string]    `json:"status"`
	MonitoringFrequency optional[string]    `json:"monitoringFrequency"`
	LastReviewDate      optional[time.Time] `json:"lastReviewDate"`
	NextReviewDate      optional[time.Time] `json:"nextReviewDate"`
	RiskAppetite        optional[string]    `json:"riskAppetite"`
	ResponsibleID       optional[string]    `json:"responsibleId"`
}

type addTreatmentRequest struct {
	Description             string `json:"description"`
	ControlImplementationID string `json:"controlImplementationId"`
}

type updateTreatmentRequest struct {
	Status string `json:"status"`
}

type recordReviewRequest struct {
	levelFields
	Probability         int    `json:"probability"`
	Impact              int    `json:"impact"`
	ResidualProbability int    `json:"residualProbability"`
	ResidualImpact      int    `json:"residualImpact"`
	Status              string `json:"status"`
	ReviewNotes         string `json:"reviewNotes"`
}

type appliedReviewResponse struct {
	Review ReviewResponse `json:"review"`
	Risk   RiskResponse   `json:"risk"`
}

type deletedResponse struct {
	Deleted bool `json:"deleted"`
}

func (h *riskHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := auth.ActorFromContext(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	var opts []interfaces.ListRiskOption
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := types.ParseRiskStatus(s)
		if err != nil {
			handleError(ctx, w, badRequest("status", err.Error()))
			return
		}
		opts = append(opts, interfaces.WithStatus(status))
	}

	risks, err := h.uc.Risk.List(ctx, actor, opts...)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"risks": NewRiskResponses(risks)})
}

func (h *riskHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := auth.ActorFromContext(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	var req createRiskRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}
	if err := req.check(); err != nil {
		handleError(ctx, w, err)
		return
	}

	risk, err := h.uc.Risk.Create(ctx, actor, usecase.RiskInput{
		Title:               req.Title,
		Description:         req.Description,
		Category:            types.Category(req.Category),
		Probability:         req.Probability,
		Impact:              req.Impact,
		ResidualProbability: req.ResidualProbability,
		ResidualImpact:      req.ResidualImpact,
		Treatment:           types.TreatmentStrategy(req.Treatment),
		TreatmentPlan:       req.TreatmentPlan,
		Status:              types.RiskStatus(req.Status),
		MonitoringFrequency: types.MonitoringFrequency(req.MonitoringFrequency),
		LastReviewDate:      req.LastReviewDate,
		NextReviewDate:      req.NextReviewDate,
		RiskAppetite:        req.RiskAppetite,
		ResponsibleID:       req.ResponsibleID,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, NewRiskResponse(risk))
}

func (h *riskHandler) matrix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := auth.ActorFromContext(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	summary, err := h.uc.Dashboard.Matrix(ctx, actor)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, NewMatrixResponse(summary))
}

func (h *riskHandler) overdue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := auth.ActorFromContext(ctx)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	risks, err := h.uc.Dashboard.Overdue(ctx, actor, time.Now())
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"risks": NewRiskResponses(risks)})
}

func (h *riskHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, riskID, err := riskRequest(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	detail, err := h.uc.Risk.Get(ctx, actor, riskID)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, NewRiskDetailResponse(detail))
}

func (h *riskHandler) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, riskID, err := riskRequest(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	var req updateRiskRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	risk, err := h.uc.Risk.Update(ctx, actor, riskID, patch)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, NewRiskResponse(risk))
}

func (h *riskHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, riskID, err := riskRequest(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	if err := h.uc.Risk.Delete(ctx, actor, riskID); err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, deletedResponse{Deleted: true})
}

func (h *riskHandler) addTreatment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, riskID, err := riskRequest(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	var req addTreatmentRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	treatment, err := h.uc.Treatment.AddTreatment(ctx, actor, riskID, usecase.TreatmentInput{
		Description:             req.Description,
		ControlImplementationID: req.ControlImplementationID,
	})
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, NewTreatmentResponse(treatment))
}

func (h *riskHandler) updateTreatmentStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, riskID, err := riskRequest(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	treatmentID, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	var req updateTreatmentRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}

	treatment, err := h.uc.Treatment.UpdateTreatmentStatus(ctx, actor, riskID, treatmentID, types.TreatmentStatus(req.Status))
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, NewTreatmentResponse(treatment))
}

func (h *riskHandler) removeTreatment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, riskID, err := riskRequest(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	treatmentID, err := parseID(r.URL.Query().Get("id"))
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	if err := h.uc.Treatment.RemoveTreatment(ctx, actor, riskID, treatmentID); err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, deletedResponse{Deleted: true})
}

func (h *riskHandler) listReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, riskID, err := riskRequest(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	reviews, err := h.uc.Review.ListReviews(ctx, actor, riskID)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"history": NewReviewResponses(reviews)})
}

// recordReview appends a review entry. With ?apply=true the reviewed
// assessment is also written back to the risk.
func (h *riskHandler) recordReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, riskID, err := riskRequest(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	var req recordReviewRequest
	if err := decodeBody(r, &req); err != nil {
		handleError(ctx, w, err)
		return
	}
	if err := req.check(); err != nil {
		handleError(ctx, w, err)
		return
	}

	input := usecase.ReviewInput{
		Probability:         req.Probability,
		Impact:              req.Impact,
		ResidualProbability: req.ResidualProbability,
		ResidualImpact:      req.ResidualImpact,
		Status:              types.RiskStatus(req.Status),
		ReviewNotes:         req.ReviewNotes,
	}

	apply, _ := strconv.ParseBool(r.URL.Query().Get("apply"))
	if !apply {
		review, err := h.uc.Review.RecordReview(ctx, actor, riskID, input)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusCreated, NewReviewResponse(review))
		return
	}

	review, risk, err := h.uc.Review.ApplyReview(ctx, actor, riskID, input)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusCreated, appliedReviewResponse{
		Review: NewReviewResponse(review),
		Risk:   NewRiskResponse(risk),
	})
}

func (h *riskHandler) listAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, riskID, err := riskRequest(r)
	if err != nil {
		handleError(ctx, w, err)
		return
	}

	entries, err := h.uc.Audit.ListByRisk(ctx, actor, riskID)
	if err != nil {
		handleError(ctx, w, err)
		return
	}
	resp := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = NewAuditEntryResponse(e)
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"entries": resp})
}

func (req *updateRiskRequest) patch() (usecase.RiskPatch, error) {
	var p usecase.RiskPatch
	if err := req.check(); err != nil {
		return p, err
	}

	var err error
	if p.Title, err = req.Title.required("title"); err != nil {
		return p, err
	}
	if p.Probability, err = req.Probability.required("probability"); err != nil {
		return p, err
	}
	if p.Impact, err = req.Impact.required("impact"); err != nil {
		return p, err
	}
	category, err := req.Category.required("category")
	if err != nil {
		return p, err
	}
	if category != nil {
		c := types.Category(*category)
		p.Category = &c
	}
	status, err := req.Status.required("status")
	if err != nil {
		return p, err
	}
	if status != nil {
		s := types.RiskStatus(*status)
		p.Status = &s
	}

	p.Description = req.Description.nullable()
	p.ResidualProbability = req.ResidualProbability.nullable()
	p.ResidualImpact = req.ResidualImpact.nullable()
	p.TreatmentPlan = req.TreatmentPlan.nullable()
	p.RiskAppetite = req.RiskAppetite.nullable()
	p.ResponsibleID = req.ResponsibleID.nullable()
	if v := req.Treatment.nullable(); v != nil {
		t := types.TreatmentStrategy(*v)
		p.Treatment = &t
	}
	if v := req.MonitoringFrequency.nullable(); v != nil {
		f := types.MonitoringFrequency(*v)
		p.MonitoringFrequency = &f
	}

	p.ClearLastReviewDate = req.LastReviewDate.Null
	if req.LastReviewDate.Set && !req.LastReviewDate.Null {
		p.LastReviewDate = &req.LastReviewDate.Value
	}
	p.ClearNextReviewDate = req.NextReviewDate.Null
	if req.NextReviewDate.Set && !req.NextReviewDate.Null {
		p.NextReviewDate = &req.NextReviewDate.Value
	}

	return p, nil
}

func riskRequest(r *http.Request) (*auth.Actor, int64, error) {
	actor, err := auth.ActorFromContext(r.Context())
	if err != nil {
		return nil, 0, err
	}
	riskID, err := parseID(chi.URLParam(r, "riskID"))
	if err != nil {
		return nil, 0, err
	}
	return actor, riskID, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("id", "id must be a positive integer")
	}
	return id, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v); err != nil {
		return goerr.Wrap(badRequest("body", "invalid JSON body"), "failed to decode request body",
			goerr.V("error", err.Error()))
	}
	return nil
}
