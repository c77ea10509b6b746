package response

import "github.com/user/serp-rank-service/internal/entity"

type ActionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

type CaptchaResponse struct {
	Status   string `json:"status"`
	Resolved bool   `json:"resolved"`
}

// StatusResponse is the polled view of the current run.
type StatusResponse struct {
	ScriptRunning     bool    `json:"script_running"`
	Paused            bool    `json:"paused"`
	Captcha           bool    `json:"captcha"`
	ElapsedTime       float64 `json:"elapsed_time"`
	CompletedSearches int     `json:"completed_searches"`
	TotalSearches     int     `json:"total_searches"`
	Output            string  `json:"output"`
	ResultsContent    string  `json:"results_content"`
	RunID             string  `json:"run_id"`
	Phase             string  `json:"phase"`
}

// NewStatusResponse maps a snapshot to the wire format. Elapsed time is in seconds.
func NewStatusResponse(s entity.ProgressSnapshot) StatusResponse {
	resp := StatusResponse{
		ScriptRunning:     s.Running,
		Paused:            s.Paused,
		Captcha:           s.CaptchaPending,
		ElapsedTime:       s.Elapsed.Seconds(),
		CompletedSearches: s.Completed,
		TotalSearches:     s.Total,
		Output:            s.Log,
		RunID:             s.RunID,
		Phase:             string(s.Phase),
	}
	if !s.Running {
		resp.ResultsContent = s.Report
	}
	return resp
}
