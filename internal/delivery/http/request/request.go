package request

import (
	"encoding/json"
	"fmt"

	"github.com/user/serp-rank-service/pkg/utils"
)

// RunRequest starts a run. Keywords and cities may be sent either as one
// comma/newline separated string or as a JSON array.
type RunRequest struct {
	DriverPath       string   `json:"driver_path"`
	ChromeDriverPath string   `json:"chromedriver_path"`
	WebsiteToCheck   string   `json:"website_to_check"`
	Keywords         TextList `json:"keywords"`
	Cities           TextList `json:"cities"`
}

// Driver returns the browser binary path, preferring driver_path.
func (r RunRequest) Driver() string {
	if r.DriverPath != "" {
		return r.DriverPath
	}
	return r.ChromeDriverPath
}

// TextList is a list of trimmed, non-empty entries.
type TextList []string

func (l *TextList) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*l = utils.SplitList(raw)
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("expected a string or an array of strings")
	}
	*l = utils.CleanList(items)
	return nil
}
