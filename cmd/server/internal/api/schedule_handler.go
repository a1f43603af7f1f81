package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daysage/daysage/cmd/server/internal/constants"
	"github.com/daysage/daysage/cmd/server/internal/planner"
	"github.com/daysage/daysage/cmd/server/internal/services"
)

// HandleOptimizeSchedule POST /api/v1/schedule/optimize
// 求解当前用户的单日排程
// Required Scopes: users.ScopePlanWrite
func HandleOptimizeSchedule(svc services.ScheduleService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var dto scheduleRequestDTO
		if err := c.ShouldBindJSON(&dto); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}
		if len(dto.Tasks) == 0 {
			badRequestResponse(c, "tasks must not be empty")
			return
		}

		req, err := toPlannerRequest(dto)
		if err != nil {
			badRequestResponse(c, err.Error())
			return
		}

		result, err := svc.Optimize(c.Request.Context(), currentUser(c), req)
		if err != nil {
			var infeasible *planner.InfeasibleError
			switch {
			case errors.As(err, &infeasible):
				// 必做任务放不下不是服务器故障，沿用 200 + status=error 约定
				c.JSON(http.StatusOK, scheduleResponseDTO{
					Status:      "error",
					Code:        constants.ErrCodeInfeasible,
					Message:     "Could not find a feasible schedule. Try reducing your workload or extending work hours.",
					Diagnostics: infeasible.Diagnostics,
				})
			case errors.Is(err, services.ErrTooManySolves):
				errorResponse(c, http.StatusServiceUnavailable, "SOLVE_CAPACITY_EXHAUSTED", "too many concurrent solves, retry later")
			default:
				badRequestResponse(c, err.Error())
			}
			return
		}

		c.JSON(http.StatusOK, scheduleResponseDTO{
			Status:         "success",
			ScheduledTasks: toScheduledTaskDTOs(result.Tasks),
		})
	}
}

// HandleGetWeights GET /api/v1/schedule/weights
// 查看当前用户学得的目标权重
// Required Scopes: users.ScopePlanRead
func HandleGetWeights(svc services.ScheduleService) gin.HandlerFunc {
	return func(c *gin.Context) {
		weights, err := svc.Weights(currentUser(c))
		if err != nil {
			internalErrorResponse(c, err)
			return
		}
		successResponse(c, gin.H{
			"user_id": currentUser(c),
			"weights": weights,
		})
	}
}
