// Package report renders a user-status response for the console.
// Rendering is pure: the same parsed response always produces the same
// output text.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"surfstat/internal/statusapi"
)

// Labels containing these substrings are internal serving models, not
// user-facing quota pools.
var hiddenLabelParts = []string{"autocomplete", "embedding"}

// FormatNumber formats a number with thousand separators
func FormatNumber(n int64) string {
	if n == 0 {
		return "0"
	}

	str := fmt.Sprintf("%d", n)
	negative := n < 0
	if negative {
		str = str[1:]
	}

	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}

	if negative {
		return "-" + result
	}
	return result
}

// Credits extracts the monthly allotment and available credits. ok is
// false unless both are present and finite.
func Credits(us *statusapi.UserStatus) (monthly, available float64, ok bool) {
	if us == nil || us.PlanStatus == nil || us.PlanStatus.PlanInfo == nil {
		return 0, 0, false
	}
	if us.PlanStatus.PlanInfo.MonthlyPromptCredits == nil || us.PlanStatus.AvailablePromptCredits == nil {
		return 0, 0, false
	}
	monthly = *us.PlanStatus.PlanInfo.MonthlyPromptCredits
	available = *us.PlanStatus.AvailablePromptCredits
	if !isFinite(monthly) || !isFinite(available) {
		return 0, 0, false
	}
	return monthly, available, true
}

// UsedPercent returns round(used/monthly*100), or 0 when monthly is 0.
func UsedPercent(monthly, available float64) int {
	if monthly == 0 {
		return 0
	}
	return int(math.Round((monthly - available) / monthly * 100))
}

// DisplayLabel prefers the explicit label, falling back to the model
// identifier.
func DisplayLabel(m statusapi.ModelConfig) string {
	if m.Label != "" {
		return m.Label
	}
	if m.ModelOrAlias != nil {
		return m.ModelOrAlias.Model
	}
	return ""
}

// FilterModels drops entries whose display label matches a hidden
// serving model, case-insensitively.
func FilterModels(models []statusapi.ModelConfig) []statusapi.ModelConfig {
	var kept []statusapi.ModelConfig
	for _, m := range models {
		label := strings.ToLower(DisplayLabel(m))
		hidden := false
		for _, part := range hiddenLabelParts {
			if strings.Contains(label, part) {
				hidden = true
				break
			}
		}
		if !hidden {
			kept = append(kept, m)
		}
	}
	return kept
}

// RemainingPercent renders a quota fraction as "NN%", or "N/A" when the
// fraction is absent or not finite.
func RemainingPercent(m statusapi.ModelConfig) string {
	if m.QuotaInfo == nil || m.QuotaInfo.RemainingFraction == nil {
		return "N/A"
	}
	f := *m.QuotaInfo.RemainingFraction
	if !isFinite(f) {
		return "N/A"
	}
	return fmt.Sprintf("%d%%", int(math.Round(f*100)))
}

// ResetTime renders a quota reset timestamp in local time, or "N/A"
// when absent or unparseable.
func ResetTime(m statusapi.ModelConfig) string {
	if m.QuotaInfo == nil || m.QuotaInfo.ResetTime == "" {
		return "N/A"
	}
	t, err := time.Parse(time.RFC3339, m.QuotaInfo.ResetTime)
	if err != nil {
		return "N/A"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// Render writes the usage report for a parsed response.
func Render(w io.Writer, resp *statusapi.UserStatusResponse) {
	if resp == nil || resp.UserStatus == nil {
		fmt.Fprintln(w, "No user status returned by the language server.")
		return
	}
	us := resp.UserStatus

	email := us.Email
	if email == "" {
		email = "Unknown"
	}
	fmt.Fprintf(w, "Email: %s\n", email)

	if monthly, available, ok := Credits(us); ok {
		used := monthly - available
		fmt.Fprintf(w, "Prompt credits: %s / %s used (%d%%)\n",
			FormatNumber(int64(math.Round(used))),
			FormatNumber(int64(math.Round(monthly))),
			UsedPercent(monthly, available))
	}

	models := FilterModels(us.ModelConfigs())
	if len(models) == 0 {
		return
	}

	labelWidth := len("Model")
	for _, m := range models {
		if l := len(DisplayLabel(m)); l > labelWidth {
			labelWidth = l
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-*s  %9s  %s\n", labelWidth, "Model", "Remaining", "Resets")
	fmt.Fprintln(w, strings.Repeat("─", labelWidth+2+9+2+16))

	for _, m := range models {
		fmt.Fprintf(w, "%-*s  %9s  %s\n",
			labelWidth, DisplayLabel(m), RemainingPercent(m), ResetTime(m))
	}
}

// RenderJSON outputs the parsed response as indented JSON.
func RenderJSON(w io.Writer, resp *statusapi.UserStatusResponse) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
