// internal/api/handlers/mail_handler.go
// 通知郵件 API Handler

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"mail-dispatch/internal/config"
	"mail-dispatch/internal/metrics"
	"mail-dispatch/internal/models"
	"mail-dispatch/internal/templates"
	"mail-dispatch/internal/worker"
)

// IdempotencyHeader 冪等鍵 header
const IdempotencyHeader = "Idempotency-Key"

// JobSubmitter 背景派送器 (worker.Dispatcher)
type JobSubmitter interface {
	Submit(job *models.DispatchJob) error
	QueueDepth() int
}

// IdempotencyStore 冪等鍵儲存 (services.KeyDBService)
type IdempotencyStore interface {
	Reserve(ctx context.Context, templateID, key, dispatchID string) (string, bool, error)
	Release(ctx context.Context, templateID, key, dispatchID string) error
}

// 各情境受理後的回應訊息
var scenarioNames = map[templates.ID]string{
	templates.SubscriptionEnding: "Subscription ending notification",
	templates.OptInConfirmation:  "Opt-in confirmation email",
	templates.Newsletter:         "Newsletter",
	templates.ProductLaunch:      "Product launch announcement",
}

// MailHandler 郵件 Handler
type MailHandler struct {
	cfg         *config.Config
	dispatcher  JobSubmitter
	idempotency IdempotencyStore
	metrics     *metrics.Metrics
}

// NewMailHandler 建立 Mail Handler
// idempotency 為 nil 時忽略 Idempotency-Key
func NewMailHandler(cfg *config.Config, dispatcher JobSubmitter, idempotency IdempotencyStore, m *metrics.Metrics) *MailHandler {
	return &MailHandler{
		cfg:         cfg,
		dispatcher:  dispatcher,
		idempotency: idempotency,
		metrics:     m,
	}
}

// SendRequest 發送通知請求
type SendRequest struct {
	To   []string       `json:"to" binding:"required,min=1,dive,email"`
	Data map[string]any `json:"data" binding:"required"`
}

// Send 回傳指定模板的 handler
// 驗證後立即回應 202，實際寄送交給 dispatcher
func (h *MailHandler) Send(id templates.ID) gin.HandlerFunc {
	template := string(id)

	return func(c *gin.Context) {
		var req SendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.metrics.RecordRequest(template, metrics.OutcomeInvalid)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "validation_error",
				"message": err.Error(),
			})
			return
		}

		if key, ok := nonScalarField(req.Data); ok {
			h.metrics.RecordRequest(template, metrics.OutcomeInvalid)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "validation_error",
				"message": fmt.Sprintf("data.%s must be a string, number or boolean", key),
			})
			return
		}

		missing, err := missingVariables(id, req.Data)
		if err != nil {
			h.metrics.RecordRequest(template, metrics.OutcomeRenderError)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "render_error",
				"message": err.Error(),
			})
			return
		}
		if len(missing) > 0 {
			h.metrics.RecordRequest(template, metrics.OutcomeInvalid)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "validation_error",
				"message": "Missing required data fields: " + strings.Join(missing, ", "),
				"missing": missing,
			})
			return
		}

		// company_name 一律以設定值覆寫
		vars := make(templates.Variables, len(req.Data)+1)
		for k, v := range req.Data {
			vars[k] = v
		}
		vars[templates.CompanyNameKey] = h.cfg.CompanyName

		rendered, err := templates.Render(id, vars)
		if err != nil {
			h.metrics.RecordRequest(template, metrics.OutcomeRenderError)
			if errors.Is(err, templates.ErrMissingVariable) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"success": false,
					"error":   "missing_variable",
					"message": err.Error(),
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "render_error",
				"message": err.Error(),
			})
			return
		}

		job := models.NewDispatchJob(template, req.To, rendered.Subject, rendered.HTML)
		job.ClientID = c.GetString("client_id")
		job.IdempotencyKey = strings.TrimSpace(c.GetHeader(IdempotencyHeader))

		reserved := false
		if job.IdempotencyKey != "" && h.idempotency != nil {
			existing, ok, err := h.idempotency.Reserve(c.Request.Context(), template, job.IdempotencyKey, job.ID)
			switch {
			case err != nil:
				log.Printf("[Mail] Warning: idempotency check skipped for %s: %v", template, err)
			case !ok:
				h.metrics.RecordRequest(template, metrics.OutcomeDuplicate)
				c.JSON(http.StatusAccepted, gin.H{
					"success":     true,
					"dispatch_id": existing,
					"status":      models.DispatchStatusDuplicate,
					"message":     "Request with this Idempotency-Key has already been accepted.",
				})
				return
			default:
				reserved = true
			}
		}

		if err := h.dispatcher.Submit(job); err != nil {
			if reserved {
				if relErr := h.idempotency.Release(c.Request.Context(), template, job.IdempotencyKey, job.ID); relErr != nil {
					log.Printf("[Mail] Warning: failed to release idempotency key for %s: %v", job.ID, relErr)
				}
			}

			h.metrics.RecordRequest(template, metrics.OutcomeRejected)
			message := "Dispatcher is busy, please retry later"
			if errors.Is(err, worker.ErrDispatcherClosed) {
				message = "Service is shutting down"
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error":   "dispatch_unavailable",
				"message": message,
			})
			return
		}

		h.metrics.RecordRequest(template, metrics.OutcomeAccepted)
		h.metrics.SetQueueDepth(h.dispatcher.QueueDepth())

		c.JSON(http.StatusAccepted, gin.H{
			"success":     true,
			"dispatch_id": job.ID,
			"status":      models.DispatchStatusAccepted,
			"message":     scenarioNames[id] + " has been queued.",
		})
	}
}

// nonScalarField 找出第一個物件或陣列型別的欄位
func nonScalarField(data map[string]any) (string, bool) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch data[k].(type) {
		case map[string]any, []any:
			return k, true
		}
	}
	return "", false
}

// missingVariables 列出模板需要但請求未提供的欄位 (null 視為未提供)
func missingVariables(id templates.ID, data map[string]any) ([]string, error) {
	required, err := templates.RequiredVariables(id)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, name := range required {
		if v, ok := data[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
