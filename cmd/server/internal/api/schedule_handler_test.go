package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daysage/daysage/cmd/server/internal/planner"
	"github.com/daysage/daysage/cmd/server/internal/services"
	"github.com/daysage/daysage/cmd/server/internal/store"
)

var apiDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

// asUser 测试辅助中间件，模拟认证后注入的用户名
func asUser(username string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user", username)
		c.Next()
	}
}

func newScheduleRouter(t *testing.T) (*gin.Engine, *store.FileParamStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	params, err := store.NewFileParamStore(t.TempDir(), planner.Weights{})
	require.NoError(t, err)

	p := planner.New(planner.Config{
		TimeBudget: 5 * time.Second,
		Now:        func() time.Time { return apiDay.Add(8 * time.Hour) },
	})
	svc := services.NewScheduleService(p, params, 2, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := gin.New()
	r.POST("/api/v1/schedule/optimize", asUser("alice"), HandleOptimizeSchedule(svc))
	r.GET("/api/v1/schedule/weights", asUser("alice"), HandleGetWeights(svc))
	return r, params
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func optimizeBody(taskMinutes int) map[string]interface{} {
	return map[string]interface{}{
		"tasks": []map[string]interface{}{
			{
				"id":                 1,
				"title":              "写季度总结",
				"priority":           "High",
				"estimated_duration": taskMinutes,
				"due":                apiDay.Add(23 * time.Hour).Format(time.RFC3339),
			},
		},
		"calendar_events": []map[string]interface{}{
			{
				"id":    "e1",
				"title": "站会",
				"start": apiDay.Add(10 * time.Hour).Format(time.RFC3339),
				"end":   apiDay.Add(10*time.Hour + 30*time.Minute).Format(time.RFC3339),
			},
		},
		"constraints": map[string]interface{}{
			"work_hours":              map[string]string{"start": "09:00", "end": "17:00"},
			"max_continuous_work_min": 90,
		},
	}
}

func TestOptimizeEndpointSuccess(t *testing.T) {
	r, _ := newScheduleRouter(t)

	w := postJSON(t, r, "/api/v1/schedule/optimize", optimizeBody(60))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status         string `json:"status"`
		ScheduledTasks []struct {
			ID        string `json:"id"`
			Start     string `json:"start"`
			End       string `json:"end"`
			Mandatory bool   `json:"mandatory"`
		} `json:"scheduled_tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.ScheduledTasks, 1)
	assert.Equal(t, "1", resp.ScheduledTasks[0].ID)
	assert.True(t, resp.ScheduledTasks[0].Mandatory)

	start, err := time.Parse(time.RFC3339, resp.ScheduledTasks[0].Start)
	require.NoError(t, err)
	end, err := time.Parse(time.RFC3339, resp.ScheduledTasks[0].End)
	require.NoError(t, err)
	assert.False(t, start.Before(apiDay.Add(9*time.Hour)))
	assert.False(t, end.After(apiDay.Add(17*time.Hour)))
	// 不与站会重叠
	meetStart := apiDay.Add(10 * time.Hour)
	meetEnd := apiDay.Add(10*time.Hour + 30*time.Minute)
	assert.True(t, end.Compare(meetStart) <= 0 || start.Compare(meetEnd) >= 0)
}

func TestOptimizeEndpointInfeasible(t *testing.T) {
	r, _ := newScheduleRouter(t)

	// 10 小时任务放不进 8 小时工作日
	w := postJSON(t, r, "/api/v1/schedule/optimize", optimizeBody(600))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status      string                 `json:"status"`
		Code        string                 `json:"code"`
		Message     string                 `json:"message"`
		Diagnostics map[string]interface{} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "SCHEDULE_INFEASIBLE", resp.Code)
	assert.NotEmpty(t, resp.Message)
	assert.NotNil(t, resp.Diagnostics)
}

func TestOptimizeEndpointRejectsEmptyTasks(t *testing.T) {
	r, _ := newScheduleRouter(t)

	w := postJSON(t, r, "/api/v1/schedule/optimize", map[string]interface{}{
		"tasks": []map[string]interface{}{},
		"constraints": map[string]interface{}{
			"work_hours": map[string]string{"start": "09:00", "end": "17:00"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptimizeEndpointRejectsBadWorkHours(t *testing.T) {
	r, _ := newScheduleRouter(t)

	body := optimizeBody(60)
	body["constraints"] = map[string]interface{}{
		"work_hours": map[string]string{"start": "nine", "end": "17:00"},
	}
	w := postJSON(t, r, "/api/v1/schedule/optimize", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptimizeEndpointMalformedDueBecomesOptional(t *testing.T) {
	r, _ := newScheduleRouter(t)

	body := optimizeBody(60)
	body["tasks"].([]map[string]interface{})[0]["due"] = "not-a-date"
	body["target_date"] = apiDay.Format(time.RFC3339)

	w := postJSON(t, r, "/api/v1/schedule/optimize", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status         string `json:"status"`
		ScheduledTasks []struct {
			Mandatory bool `json:"mandatory"`
		} `json:"scheduled_tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.ScheduledTasks, 1)
	assert.False(t, resp.ScheduledTasks[0].Mandatory)
}

func TestWeightsEndpoint(t *testing.T) {
	r, params := newScheduleRouter(t)

	custom := planner.DefaultWeights()
	custom.BreakImportance = 2.5
	require.NoError(t, params.Put("alice", custom))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedule/weights", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		UserID  string          `json:"user_id"`
		Weights planner.Weights `json:"weights"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.UserID)
	assert.Equal(t, 2.5, resp.Weights.BreakImportance)
}
