package handlers

import (
	"errors"
	"net/http"

	"github.com/TKim713/bee-smart-backend-sub000/internal/service"
	"github.com/TKim713/bee-smart-backend-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
)

type InvitationHandler struct {
	invitationService *service.InvitationService
}

func NewInvitationHandler(invitationService *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: invitationService}
}

// SendInvitation 초대 발신
func (h *InvitationHandler) SendInvitation(c *gin.Context) {
	userID := c.GetString("userId")

	var req service.SendInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	inv, err := h.invitationService.Send(c.Request.Context(), userID, req)
	if err != nil {
		h.writeError(c, err, "Failed to send invitation")
		return
	}

	c.JSON(http.StatusCreated, inv)
}

// AcceptInvitation 초대 수락 → 배틀 생성
func (h *InvitationHandler) AcceptInvitation(c *gin.Context) {
	userID := c.GetString("userId")
	id := c.Param("id")

	inv, err := h.invitationService.Accept(c.Request.Context(), userID, id)
	if err != nil {
		h.writeError(c, err, "Failed to accept invitation")
		return
	}

	c.JSON(http.StatusOK, inv)
}

// DeclineInvitation 초대 거절
func (h *InvitationHandler) DeclineInvitation(c *gin.Context) {
	userID := c.GetString("userId")
	id := c.Param("id")

	inv, err := h.invitationService.Decline(c.Request.Context(), userID, id)
	if err != nil {
		h.writeError(c, err, "Failed to decline invitation")
		return
	}

	c.JSON(http.StatusOK, inv)
}

// CancelInvitation 초대 취소 (발신자)
func (h *InvitationHandler) CancelInvitation(c *gin.Context) {
	userID := c.GetString("userId")
	id := c.Param("id")

	inv, err := h.invitationService.Cancel(c.Request.Context(), userID, id)
	if err != nil {
		h.writeError(c, err, "Failed to cancel invitation")
		return
	}

	c.JSON(http.StatusOK, inv)
}

// ListPendingInvitations 수신한 유효 초대 목록
func (h *InvitationHandler) ListPendingInvitations(c *gin.Context) {
	userID := c.GetString("userId")

	invitations, err := h.invitationService.ListPending(c.Request.Context(), userID)
	if err != nil {
		logger.Error("Failed to list pending invitations", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invitations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invitations": invitations,
		"total":       len(invitations),
	})
}

// ListSentInvitations 발신한 초대 목록
func (h *InvitationHandler) ListSentInvitations(c *gin.Context) {
	userID := c.GetString("userId")

	invitations, err := h.invitationService.ListSent(c.Request.Context(), userID)
	if err != nil {
		logger.Error("Failed to list sent invitations", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list invitations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invitations": invitations,
		"total":       len(invitations),
	})
}

// writeError 서비스 오류를 HTTP 상태 코드로 변환
func (h *InvitationHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrSelfInvitation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot invite yourself"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitee not found"})
	case errors.Is(err, service.ErrInvitationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to act on this invitation"})
	case errors.Is(err, service.ErrDuplicatePending):
		c.JSON(http.StatusConflict, gin.H{"error": "A pending invitation already exists"})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "Invitation is no longer pending"})
	case errors.Is(err, service.ErrInvitationExpired):
		c.JSON(http.StatusConflict, gin.H{"error": "Invitation has expired"})
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many invitations sent, try again later"})
	default:
		logger.Error(fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
