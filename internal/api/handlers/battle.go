package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/TKim713/bee-smart-backend-sub000/internal/service"
	"github.com/TKim713/bee-smart-backend-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
)

type BattleHandler struct {
	battleService *service.BattleService
}

func NewBattleHandler(battleService *service.BattleService) *BattleHandler {
	return &BattleHandler{battleService: battleService}
}

// GetBattle 배틀 스냅샷 조회
func (h *BattleHandler) GetBattle(c *gin.Context) {
	id := c.Param("id")

	battle, err := h.battleService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBattleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Battle not found"})
			return
		}

		logger.Error("Failed to get battle", "battleId", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get battle"})
		return
	}

	c.JSON(http.StatusOK, battle)
}

// GetHistory 요청자의 배틀 이력 조회
func (h *BattleHandler) GetHistory(c *gin.Context) {
	userID := c.GetString("userId")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	battles, err := h.battleService.GetHistory(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		logger.Error("Failed to get battle history", "userId", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get battle history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"battles": battles,
		"total":   len(battles),
	})
}

// EndBattle 배틀 강제 종료 (이미 종료된 배틀은 변경 없이 성공)
func (h *BattleHandler) EndBattle(c *gin.Context) {
	id := c.Param("id")

	battle, err := h.battleService.End(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrBattleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Battle not found"})
			return
		}

		logger.Error("Failed to end battle", "battleId", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end battle"})
		return
	}

	c.JSON(http.StatusOK, battle)
}
