package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/daysage/daysage/cmd/server/internal/services"
)

// HandleRecordFeedback POST /api/v1/schedule/feedback
// 记录用户对排程的反馈；样本足够时触发权重重训
// Required Scopes: users.ScopePlanWrite
func HandleRecordFeedback(svc services.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var dto feedbackRequestDTO
		if err := c.ShouldBindJSON(&dto); err != nil {
			badRequestResponse(c, "invalid request body")
			return
		}

		constraints, err := toPlannerConstraints(dto.ScheduleData.Constraints)
		if err != nil {
			badRequestResponse(c, err.Error())
			return
		}

		energy := 3
		if dto.FeedbackData.EnergyLevel != nil {
			energy = *dto.FeedbackData.EnergyLevel
		}

		completed := make([]string, 0, len(dto.FeedbackData.CompletedTasks))
		for _, id := range dto.FeedbackData.CompletedTasks {
			completed = append(completed, string(id))
		}
		adjusted := make([]string, 0, len(dto.FeedbackData.AdjustedTasks))
		for _, t := range dto.FeedbackData.AdjustedTasks {
			adjusted = append(adjusted, string(t.ID))
		}

		in := services.FeedbackInput{
			ScheduledTasks:  fromScheduledTaskDTOs(dto.ScheduleData.ScheduledTasks),
			Events:          fromEventDTOs(dto.ScheduleData.CalendarEvents),
			Constraints:     constraints,
			MoodScore:       dto.FeedbackData.MoodScore,
			EnergyLevel:     energy,
			CompletedTasks:  completed,
			AdjustedTasks:   adjusted,
			ActualDurations: dto.FeedbackData.ActualDurations,
		}

		result, err := svc.Record(c.Request.Context(), currentUser(c), in)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidMoodScore):
				badRequestResponse(c, "mood_score must be between 1 and 5")
			case errors.Is(err, services.ErrInvalidEnergyLevel):
				badRequestResponse(c, "energy_level must be between 1 and 5")
			default:
				internalErrorResponse(c, err)
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":          "success",
			"message":         "Feedback recorded successfully",
			"record_id":       result.RecordID,
			"sample_count":    result.SampleCount,
			"weights_updated": result.WeightsUpdated,
		})
	}
}
