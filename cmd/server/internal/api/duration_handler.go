package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daysage/daysage/cmd/server/internal/services"
)

// HandlePredictDuration POST /api/v1/predict_duration
// 按当前用户的历史耗时预测某类任务的时长
// Required Scopes: users.ScopePlanRead
func HandlePredictDuration(svc services.DurationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var dto predictDurationRequestDTO
		if err := c.ShouldBindJSON(&dto); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}
		if dto.TaskType == "" {
			badRequestResponse(c, "task_type is required")
			return
		}

		pred, err := svc.Predict(currentUser(c), dto.TaskType)
		if err != nil {
			internalErrorResponse(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     "success",
			"prediction": pred,
		})
	}
}
