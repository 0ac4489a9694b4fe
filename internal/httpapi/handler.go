package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mdp211/flowmeter-monitor/internal/model"
	"github.com/mdp211/flowmeter-monitor/internal/validator"
	"go.uber.org/zap"
)

// MonitorService is the core pipeline consumed by the HTTP surface.
type MonitorService interface {
	UpdateReadings(ctx context.Context, serialNumber string, update model.ReadingUpdate) error
	AcknowledgeWarning(ctx context.Context, warningID, flowmeterID, userID string) error
}

// Handler exposes the monitoring endpoints.
type Handler struct {
	service   MonitorService
	validator *validator.Validator
	logger    *zap.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(service MonitorService, v *validator.Validator, logger *zap.Logger) *Handler {
	return &Handler{service: service, validator: v, logger: logger}
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type updateReadingsRequest struct {
	SerialNumber string   `json:"serial_number"`
	Flowrate     *float64 `json:"flowrate"`
	Temperature  *float64 `json:"temperature"`
	Pressure     *float64 `json:"pressure"`
	Humidity     *float64 `json:"humidity"`
	Timestamp    string   `json:"timestamp"`
}

// UpdateReadings ingests one reading update for a flowmeter identified by
// serial number.
func (h *Handler) UpdateReadings(w http.ResponseWriter, r *http.Request) {
	var req updateReadingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.SerialNumber == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	receivedAt := time.Now().UTC()
	timestamp, result := h.validator.ReadingTimestamp(req.Timestamp, receivedAt)
	if result.UsedFallback {
		h.logger.Warn("falling back to server time for reading timestamp",
			zap.String("serial_number", req.SerialNumber),
			zap.String("reason", result.Reason),
		)
	}

	update := model.ReadingUpdate{
		Flowrate:    req.Flowrate,
		Temperature: req.Temperature,
		Pressure:    req.Pressure,
		Humidity:    req.Humidity,
		Timestamp:   timestamp,
	}

	if err := h.service.UpdateReadings(r.Context(), req.SerialNumber, update); err != nil {
		h.logger.Error("update-readings failed",
			zap.Error(err),
			zap.String("serial_number", req.SerialNumber),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type acknowledgeWarningRequest struct {
	WarningID   string `json:"warning_id"`
	FlowmeterID string `json:"flowmeter_id"`
	UserID      string `json:"user_id"`
}

// AcknowledgeWarning marks a warning as seen by its owning user.
func (h *Handler) AcknowledgeWarning(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeWarningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.WarningID == "" || req.FlowmeterID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	if err := h.service.AcknowledgeWarning(r.Context(), req.WarningID, req.FlowmeterID, req.UserID); err != nil {
		h.logger.Error("acknowledge-warning failed",
			zap.Error(err),
			zap.String("warning_id", req.WarningID),
			zap.String("flowmeter_id", req.FlowmeterID),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
