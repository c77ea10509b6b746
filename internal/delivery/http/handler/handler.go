package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/user/serp-rank-service/internal/delivery/http/request"
	"github.com/user/serp-rank-service/internal/delivery/http/response"
	"github.com/user/serp-rank-service/internal/entity"
	"github.com/user/serp-rank-service/internal/usecase"
)

const reportFileName = "search_results.txt"

type Handler struct {
	runController usecase.RunController
}

func NewHandler(runController usecase.RunController) *Handler {
	return &Handler{
		runController: runController,
	}
}

func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req request.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	runID, err := h.runController.Start(entity.RunConfig{
		DriverPath:   req.Driver(),
		TargetDomain: req.WebsiteToCheck,
		Keywords:     req.Keywords,
		Cities:       req.Cities,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAlreadyRunning):
			h.writeJSONError(w, "Script is already running.", http.StatusConflict)
		case errors.Is(err, usecase.ErrInvalidRunConfig):
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			slog.Error("Failed to start run", "error", err)
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.ActionResponse{Status: "success", RunID: runID})
}

func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.runController.Pause()
	h.writeJSON(w, http.StatusOK, response.ActionResponse{Status: "paused"})
}

func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.runController.Resume()
	h.writeJSON(w, http.StatusOK, response.ActionResponse{Status: "resumed"})
}

func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.runController.Stop()
	h.writeJSON(w, http.StatusOK, response.ActionResponse{Status: "stopped"})
}

func (h *Handler) HandleCaptchaSolved(w http.ResponseWriter, r *http.Request) {
	resolved := h.runController.CaptchaSolved()
	h.writeJSON(w, http.StatusOK, response.CaptchaResponse{Status: "ok", Resolved: resolved})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, response.NewStatusResponse(h.runController.Status()))
}

func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	report, err := h.runController.Report()
	if err != nil || report == "" {
		h.writeJSONError(w, "No results", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+reportFileName+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(report)); err != nil {
		slog.Error("Failed to write report", "error", err)
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
