package handler

import (
	"net/http"

	"campusvoice/backend/internal/complaint"
	"campusvoice/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status string `json:"status"`
}

type replyRequest struct {
	Message string `json:"message"`
}

type voteRequest struct {
	VoteType string `json:"voteType"`
}

type commentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parentId"`
}

// ListComplaints supports ?status=&category=&submittedBy=&search=&page=&limit=.
func (h *Handler) ListComplaints(c *gin.Context) {
	page, limit := pageParams(c)
	result, err := h.Complaints.List(c.Request.Context(), complaint.ListQuery{
		Status:      c.Query("status"),
		Category:    c.Query("category"),
		SubmittedBy: c.Query("submittedBy"),
		Search:      c.Query("search"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) GetComplaint(c *gin.Context) {
	result, err := h.Complaints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) CreateComplaint(c *gin.Context) {
	var in complaint.Input
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Complaints.Create(c.Request.Context(), actor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, result)
}

func (h *Handler) UpdateComplaint(c *gin.Context) {
	var in complaint.UpdateInput
	if err := bind(c, &in); err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Complaints.Update(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) DeleteComplaint(c *gin.Context) {
	if err := h.Complaints.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Complaints.UpdateStatus(c.Request.Context(), actor(c), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) Reply(c *gin.Context) {
	var req replyRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Complaints.Reply(c.Request.Context(), actor(c), c.Param("id"), req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) VoteComplaint(c *gin.Context) {
	h.castVote(c, models.TargetComplaint)
}

func (h *Handler) VoteComment(c *gin.Context) {
	h.castVote(c, models.TargetComment)
}

func (h *Handler) castVote(c *gin.Context, tt models.TargetType) {
	var req voteRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Votes.Cast(c.Request.Context(), actor(c).ID, string(tt), c.Param("id"), req.VoteType)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

type votesResponse struct {
	Likes    int             `json:"likes"`
	Dislikes int             `json:"dislikes"`
	MyVote   models.VoteType `json:"myVote,omitempty"`
}

func (h *Handler) ComplaintVotes(c *gin.Context) {
	h.votes(c, models.TargetComplaint)
}

func (h *Handler) CommentVotes(c *gin.Context) {
	h.votes(c, models.TargetComment)
}

// votes reports the ledger tally and, for a signed-in caller, their own vote.
func (h *Handler) votes(c *gin.Context, tt models.TargetType) {
	ctx := c.Request.Context()
	tally, err := h.Votes.Tally(ctx, string(tt), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := votesResponse{Likes: tally.Likes, Dislikes: tally.Dislikes}
	if p := h.optionalActor(c); p.ID != "" {
		if resp.MyVote, err = h.Votes.MyVote(ctx, p.ID, string(tt), c.Param("id")); err != nil {
			h.fail(c, err)
			return
		}
	}
	respond(c, http.StatusOK, resp)
}

func (h *Handler) ListComments(c *gin.Context) {
	thread, err := h.Comments.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, thread)
}

func (h *Handler) CreateComment(c *gin.Context) {
	var req commentRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Comments.Create(c.Request.Context(), actor(c), c.Param("id"), req.ParentID, req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, result)
}

func (h *Handler) EditComment(c *gin.Context) {
	var req commentRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.Comments.Edit(c.Request.Context(), actor(c), c.Param("id"), req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	if err := h.Comments.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}
