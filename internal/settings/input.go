package settings

import (
	"fmt"
	"strings"
	"time"

	"github.com/uhot33-create/MyPortal/internal/model"
)

// 数値項目は「値が存在すること」を検証するためポインタで受け取る。

// NewsKeywordInput はニュースキーワード設定の保存リクエスト1件。
type NewsKeywordInput struct {
	ID      string   `json:"id"`
	Keyword string   `json:"keyword"`
	Enabled bool     `json:"enabled"`
	Order   *float64 `json:"order"`
	Limit   *float64 `json:"limit"`
	RSSURL  string   `json:"rssUrl"`
}

// XTargetInput はXターゲット設定の保存リクエスト1件。
type XTargetInput struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Username   string   `json:"username"`
	ProfileURL string   `json:"profileUrl"`
	Enabled    bool     `json:"enabled"`
	Order      *float64 `json:"order"`
}

// PowerDailyInput は日次電力使用量の保存リクエスト1件。
type PowerDailyInput struct {
	ID       string   `json:"id"`
	Date     string   `json:"date"`
	PowerKwh *float64 `json:"powerKwh"`
	CostYen  *float64 `json:"costYen"`
}

// PowerMonthlyInput は月次電力使用量の保存リクエスト1件。
type PowerMonthlyInput struct {
	ID       string   `json:"id"`
	Month    string   `json:"month"`
	PowerKwh *float64 `json:"powerKwh"`
	CostYen  *float64 `json:"costYen"`
}

// invalid はindex番目（0始まり）の項目の検証エラーを生成する。
func invalid(index int, format string, args ...any) *model.APIError {
	return model.NewInvalidPayloadError(fmt.Sprintf("%d件目: %s", index+1, fmt.Sprintf(format, args...)))
}

// idSet はペイロード内のID重複を検出する。
type idSet map[string]struct{}

func (s idSet) add(index int, id string) *model.APIError {
	if strings.TrimSpace(id) == "" {
		return invalid(index, "idは必須です")
	}
	if _, ok := s[id]; ok {
		return invalid(index, "idが重複しています (%s)", id)
	}
	s[id] = struct{}{}
	return nil
}

// clampLimit は0を既定値に置き換えた上で取得件数を[1,20]に丸める。
func clampLimit(v float64) int {
	n := int(v)
	if n == 0 {
		n = model.DefaultNewsLimit
	}
	if n < model.MinNewsLimit {
		return model.MinNewsLimit
	}
	if n > model.MaxNewsLimit {
		return model.MaxNewsLimit
	}
	return n
}

// URLChecker はrssUrlの静的検証を行うインターフェース。
type URLChecker interface {
	ValidateURL(rawURL string) error
}

// SanitizeNews はニュースキーワード設定を検証・正規化する。
// 1件でも不正な項目があれば何も返さずエラーとする。orderは送信順に1..Nへ振り直す。
func SanitizeNews(inputs []NewsKeywordInput, checker URLChecker) ([]model.NewsKeywordSetting, error) {
	ids := idSet{}
	out := make([]model.NewsKeywordSetting, 0, len(inputs))

	for i, in := range inputs {
		if err := ids.add(i, in.ID); err != nil {
			return nil, err
		}
		keyword := strings.TrimSpace(in.Keyword)
		if keyword == "" {
			return nil, invalid(i, "keywordは必須です")
		}
		if in.Order == nil {
			return nil, invalid(i, "orderは必須です")
		}
		if in.Limit == nil {
			return nil, invalid(i, "limitは必須です")
		}
		rssURL := strings.TrimSpace(in.RSSURL)
		if rssURL != "" && checker != nil {
			if err := checker.ValidateURL(rssURL); err != nil {
				return nil, invalid(i, "rssUrlが不正です (%v)", err)
			}
		}

		out = append(out, model.NewsKeywordSetting{
			ID:      in.ID,
			Keyword: keyword,
			Enabled: in.Enabled,
			Order:   i + 1,
			Limit:   clampLimit(*in.Limit),
			RSSURL:  rssURL,
		})
	}
	return out, nil
}

// SanitizeXTargets はXターゲット設定を検証・正規化する。
// usernameとprofileUrlはどちらか一方のみを指定し、ユーザー名に解決できなければならない。
func SanitizeXTargets(inputs []XTargetInput) ([]model.XTargetSetting, error) {
	ids := idSet{}
	out := make([]model.XTargetSetting, 0, len(inputs))

	for i, in := range inputs {
		if err := ids.add(i, in.ID); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, invalid(i, "nameは必須です")
		}
		if in.Order == nil {
			return nil, invalid(i, "orderは必須です")
		}

		t := model.XTargetSetting{
			ID:         in.ID,
			Name:       name,
			Username:   strings.TrimSpace(in.Username),
			ProfileURL: strings.TrimSpace(in.ProfileURL),
			Enabled:    in.Enabled,
			Order:      i + 1,
		}
		switch {
		case t.Username == "" && t.ProfileURL == "":
			return nil, invalid(i, "usernameまたはprofileUrlのどちらかが必要です")
		case t.Username != "" && t.ProfileURL != "":
			return nil, invalid(i, "usernameとprofileUrlは同時に指定できません")
		}
		if _, ok := ResolveHandle(t); !ok {
			return nil, invalid(i, "ユーザー名を特定できません")
		}

		out = append(out, t)
	}
	return out, nil
}

func validateAmount(i int, field string, v *float64) (float64, *model.APIError) {
	if v == nil {
		return 0, invalid(i, "%sは必須です", field)
	}
	if *v < 0 {
		return 0, invalid(i, "%sは0以上で指定してください", field)
	}
	return *v, nil
}

// SanitizePowerDaily は日次電力使用量を検証する。dateは実在するYYYY-MM-DDでなければならない。
func SanitizePowerDaily(inputs []PowerDailyInput) ([]model.PowerUsageDailySetting, error) {
	ids := idSet{}
	out := make([]model.PowerUsageDailySetting, 0, len(inputs))

	for i, in := range inputs {
		if err := ids.add(i, in.ID); err != nil {
			return nil, err
		}
		if _, err := time.Parse("2006-01-02", in.Date); err != nil || len(in.Date) != len("2006-01-02") {
			return nil, invalid(i, "dateはYYYY-MM-DD形式で指定してください")
		}
		kwh, apiErr := validateAmount(i, "powerKwh", in.PowerKwh)
		if apiErr != nil {
			return nil, apiErr
		}
		yen, apiErr := validateAmount(i, "costYen", in.CostYen)
		if apiErr != nil {
			return nil, apiErr
		}

		out = append(out, model.PowerUsageDailySetting{ID: in.ID, Date: in.Date, PowerKwh: kwh, CostYen: yen})
	}
	return out, nil
}

// SanitizePowerMonthly は月次電力使用量を検証する。monthは実在するYYYY-MMでなければならない。
func SanitizePowerMonthly(inputs []PowerMonthlyInput) ([]model.PowerUsageMonthlySetting, error) {
	ids := idSet{}
	out := make([]model.PowerUsageMonthlySetting, 0, len(inputs))

	for i, in := range inputs {
		if err := ids.add(i, in.ID); err != nil {
			return nil, err
		}
		if _, err := time.Parse("2006-01", in.Month); err != nil || len(in.Month) != len("2006-01") {
			return nil, invalid(i, "monthはYYYY-MM形式で指定してください")
		}
		kwh, apiErr := validateAmount(i, "powerKwh", in.PowerKwh)
		if apiErr != nil {
			return nil, apiErr
		}
		yen, apiErr := validateAmount(i, "costYen", in.CostYen)
		if apiErr != nil {
			return nil, apiErr
		}

		out = append(out, model.PowerUsageMonthlySetting{ID: in.ID, Month: in.Month, PowerKwh: kwh, CostYen: yen})
	}
	return out, nil
}
