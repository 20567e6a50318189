package statusapi

import "encoding/json"

// UserStatusResponse is the GetUserStatus response envelope. Every
// field the server may omit is a pointer or raw message so partial
// responses degrade instead of failing the decode.
type UserStatusResponse struct {
	UserStatus *UserStatus `json:"userStatus"`
}

// UserStatus holds the account and quota state for the signed-in user.
type UserStatus struct {
	Email                  string                  `json:"email"`
	PlanStatus             *PlanStatus             `json:"planStatus"`
	CascadeModelConfigData *CascadeModelConfigData `json:"cascadeModelConfigData"`
}

type PlanStatus struct {
	PlanInfo               *PlanInfo `json:"planInfo"`
	AvailablePromptCredits *float64  `json:"availablePromptCredits"`
}

type PlanInfo struct {
	MonthlyPromptCredits *float64 `json:"monthlyPromptCredits"`
}

// CascadeModelConfigData keeps the model list raw; some server builds
// send it in a non-list shape, which must not poison the whole response.
type CascadeModelConfigData struct {
	ClientModelConfigs json.RawMessage `json:"clientModelConfigs"`
}

type ModelConfig struct {
	Label        string        `json:"label"`
	ModelOrAlias *ModelOrAlias `json:"modelOrAlias"`
	QuotaInfo    *QuotaInfo    `json:"quotaInfo"`
}

type ModelOrAlias struct {
	Model string `json:"model"`
}

type QuotaInfo struct {
	RemainingFraction *float64 `json:"remainingFraction"`
	ResetTime         string   `json:"resetTime"`
}

// ModelConfigs decodes the per-model quota entries. Returns nil when
// the list is absent or not actually a list.
func (u *UserStatus) ModelConfigs() []ModelConfig {
	if u == nil || u.CascadeModelConfigData == nil {
		return nil
	}
	var configs []ModelConfig
	if err := json.Unmarshal(u.CascadeModelConfigData.ClientModelConfigs, &configs); err != nil {
		return nil
	}
	return configs
}
