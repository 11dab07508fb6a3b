// Complaint HTTP handlers.
//
//   - GET   /complaints             (admin: all, customer: own; weak ETag)
//   - POST  /complaints             (Idempotency-Key aware)
//   - GET   /complaints/{id}
//   - POST  /complaints/{id}/respond
//   - PATCH /complaints/{id}/status (admin only)
//   - POST  /complaints/{id}/rate   (owner only)
package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-complaints-backend/internal/domain"
	"github.com/tbourn/go-complaints-backend/internal/http/middleware"
	"github.com/tbourn/go-complaints-backend/internal/services"
	"github.com/tbourn/go-complaints-backend/internal/utils"
)

//
// DTOs
//

// CreateComplaintRequest is the JSON payload for submitting a complaint.
type CreateComplaintRequest struct {
	Title       string `json:"title" example:"Charged twice"`
	Description string `json:"description" example:"My card was charged twice for order 1042."`
	Category    string `json:"category" example:"billing"`
}

// RespondRequest adds to a complaint's thread. Only admins may set Status.
type RespondRequest struct {
	Response string  `json:"response" example:"We have issued a refund."`
	Status   *string `json:"status,omitempty" example:"resolved"`
}

// UpdateStatusRequest moves a complaint to another status.
type UpdateStatusRequest struct {
	Status string `json:"status" example:"in-progress"`
}

// RateRequest records the owner's satisfaction, an integer 1..5. Whole
// numbers written with a fraction (5.0) are accepted.
type RateRequest struct {
	Rating *float64 `json:"rating" example:"5"`
}

// Pagination carries pagination metadata when the list was paged.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// ListComplaintsResponse wraps the visible complaints.
type ListComplaintsResponse struct {
	Complaints []domain.Complaint `json:"complaints"`
	Pagination *Pagination        `json:"pagination,omitempty"`
}

// ComplaintResponse wraps a single complaint.
type ComplaintResponse struct {
	Complaint *domain.Complaint `json:"complaint"`
}

// ComplaintMessageResponse acknowledges a mutation and returns the result.
type ComplaintMessageResponse struct {
	Message   string            `json:"message" example:"Complaint submitted successfully"`
	Complaint *domain.Complaint `json:"complaint"`
}

//
// Helpers
//

// pageParams reads page and page_size. Paging is off unless one is given,
// and then page_size is bounded to [1,100].
func pageParams(c *gin.Context) (page, pageSize int, paged bool) {
	const (
		defaultPageSize = 20
		maxPageSize     = 100
	)
	if c.Query("page") == "" && c.Query("page_size") == "" {
		return 0, 0, false
	}
	page = max(1, utils.AtoiDefault(c.Query("page"), 1))
	pageSize = min(maxPageSize, max(1, utils.AtoiDefault(c.Query("page_size"), defaultPageSize)))
	return page, pageSize, true
}

// listETag fingerprints a listing: any create bumps the count and any update
// bumps a version and usually the newest updatedAt.
func listETag(who services.Caller, items []domain.Complaint, page, pageSize int) string {
	var newest time.Time
	versions := 0
	for i := range items {
		if items[i].UpdatedAt.After(newest) {
			newest = items[i].UpdatedAt
		}
		versions += items[i].Version
	}
	return fmt.Sprintf(`W/"complaints:%s:%d:%d:%d:%d:%d"`,
		who.ID, len(items), newest.UnixNano(), versions, page, pageSize)
}

// etagMatches implements If-None-Match with comma-separated lists and "*".
func etagMatches(header, etag string) bool {
	for _, cand := range strings.Split(header, ",") {
		cand = strings.TrimSpace(cand)
		if cand == "*" || cand == etag {
			return true
		}
	}
	return false
}

//
// Handlers
//

// ListComplaints godoc
// @ID          listComplaints
// @Summary     List complaints
// @Description Admins see every complaint, customers their own, in creation order. Supports weak ETag via If-None-Match and optional paging.
// @Tags        Complaints
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false  "Page number"     minimum(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListComplaintsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /complaints [get]
func (h *Handlers) ListComplaints(c *gin.Context) {
	who, found := caller(c)
	if !found {
		return
	}
	items, err := h.complaints.List(c.Request.Context(), who)
	if err != nil {
		failErr(c, err)
		return
	}
	if items == nil {
		items = []domain.Complaint{}
	}

	resp := ListComplaintsResponse{Complaints: items}
	page, pageSize, paged := pageParams(c)
	if paged {
		from, to, totalPages := utils.PageBounds(len(items), page, pageSize)
		resp.Complaints = items[from:to]
		resp.Pagination = &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      len(items),
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		}
	}

	etag := listETag(who, items, page, pageSize)
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, no-cache")
	if inm := c.GetHeader("If-None-Match"); inm != "" && etagMatches(inm, etag) {
		c.Status(http.StatusNotModified)
		return
	}
	ok(c, http.StatusOK, resp)
}

// CreateComplaint godoc
// @ID          createComplaint
// @Summary     Submit a complaint
// @Description Creates a pending complaint owned by the caller. A retry with the same Idempotency-Key returns the stored complaint with Idempotency-Replayed: true.
// @Tags        Complaints
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       Idempotency-Key  header  string  false  "Deduplicates retries"  example(2b6f0cc9-create)
// @Param       body             body    handlers.CreateComplaintRequest  true  "Complaint"
// @Success     201  {object}  handlers.ComplaintMessageResponse
// @Header      201  {string}  Idempotency-Replayed  "true when served from a stored result"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing fields or bad Idempotency-Key"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /complaints [post]
func (h *Handlers) CreateComplaint(c *gin.Context) {
	who, found := caller(c)
	if !found {
		return
	}
	var req CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	cmp, replayed, err := h.complaints.CreateIdempotent(c.Request.Context(), who, services.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
	}, key)
	if err != nil {
		failErr(c, err)
		return
	}
	if replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	ok(c, http.StatusCreated, ComplaintMessageResponse{Message: "Complaint submitted successfully", Complaint: cmp})
}

// GetComplaint godoc
// @ID          getComplaint
// @Summary     Get a complaint
// @Description Returns the complaint with its thread. Customers may only read their own.
// @Tags        Complaints
// @Produce     json
// @Security    BearerAuth
// @Param       id   path      string  true  "Complaint ID"  format(uuid)
// @Success     200  {object}  handlers.ComplaintResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Complaint not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /complaints/{id} [get]
func (h *Handlers) GetComplaint(c *gin.Context) {
	who, found := caller(c)
	if !found {
		return
	}
	cmp, err := h.complaints.Get(c.Request.Context(), who, c.Param("id"))
	if err != nil {
		failErrMsg(c, err, services.ErrForbidden, "Forbidden: You do not have permission to view this complaint")
		return
	}
	ok(c, http.StatusOK, ComplaintResponse{Complaint: cmp})
}

// RespondToComplaint godoc
// @ID          respondToComplaint
// @Summary     Add to a complaint's thread
// @Description Admins respond and may change the status; owners reply while the complaint is open, at most three times in a row.
// @Tags        Complaints
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                   true  "Complaint ID"  format(uuid)
// @Param       body  body      handlers.RespondRequest  true  "Response"
// @Success     200   {object}  handlers.ComplaintMessageResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Empty message or invalid status"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403   {object}  handlers.ErrorResponse  "Not the owner, or customer setting a status"
// @Failure     404   {object}  handlers.ErrorResponse  "Complaint not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Closed complaint, reply limit or concurrent update"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /complaints/{id}/respond [post]
func (h *Handlers) RespondToComplaint(c *gin.Context) {
	who, found := caller(c)
	if !found {
		return
	}
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cmp, err := h.complaints.Respond(c.Request.Context(), who, c.Param("id"), req.Response, req.Status)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ComplaintMessageResponse{Message: "Response added successfully", Complaint: cmp})
}

// UpdateComplaintStatus godoc
// @ID          updateComplaintStatus
// @Summary     Change a complaint's status
// @Description Admin only. Any status may move to any other.
// @Tags        Complaints
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                        true  "Complaint ID"  format(uuid)
// @Param       body  body      handlers.UpdateStatusRequest  true  "New status"
// @Success     200   {object}  handlers.ComplaintMessageResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Invalid status"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403   {object}  handlers.ErrorResponse  "Admin access required"
// @Failure     404   {object}  handlers.ErrorResponse  "Complaint not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Concurrent update"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /complaints/{id}/status [patch]
func (h *Handlers) UpdateComplaintStatus(c *gin.Context) {
	who, found := caller(c)
	if !found {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	cmp, err := h.complaints.SetStatus(c.Request.Context(), who, c.Param("id"), req.Status)
	if err != nil {
		failErrMsg(c, err, services.ErrValidation, "Valid status is required")
		return
	}
	ok(c, http.StatusOK, ComplaintMessageResponse{Message: "Complaint status updated successfully", Complaint: cmp})
}

// RateComplaint godoc
// @ID          rateComplaint
// @Summary     Rate a resolved complaint
// @Description Owner only, once, rating 1..5.
// @Tags        Complaints
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path      string                true  "Complaint ID"  format(uuid)
// @Param       body  body      handlers.RateRequest  true  "Rating"
// @Success     200   {object}  handlers.ComplaintMessageResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Rating out of range"
// @Failure     401   {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403   {object}  handlers.ErrorResponse  "Not the owner"
// @Failure     404   {object}  handlers.ErrorResponse  "Complaint not found"
// @Failure     409   {object}  handlers.ErrorResponse  "Not resolved, or already rated"
// @Failure     500   {object}  handlers.ErrorResponse  "Internal error"
// @Router      /complaints/{id}/rate [post]
func (h *Handlers) RateComplaint(c *gin.Context) {
	who, found := caller(c)
	if !found {
		return
	}
	var (
		req    RateRequest
		rating int
		valid  bool
	)
	if c.ShouldBindJSON(&req) == nil && req.Rating != nil {
		rating, valid = wholeNumber(*req.Rating)
	}
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Rating must be an integer between 1 and 5")
		return
	}
	cmp, err := h.complaints.Rate(c.Request.Context(), who, c.Param("id"), rating)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbidden):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "Forbidden: You can only rate your own complaints")
		case errors.Is(err, services.ErrInvalidState):
			fail(c, http.StatusConflict, ErrCodeConflict, "Only resolved complaints can be rated")
		default:
			failErr(c, err)
		}
		return
	}
	ok(c, http.StatusOK, ComplaintMessageResponse{Message: "Complaint rated successfully", Complaint: cmp})
}

// wholeNumber converts f to an int when it has no fractional part and fits
// comfortably in one.
func wholeNumber(f float64) (int, bool) {
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
