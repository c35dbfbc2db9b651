package domain

// ConditionType enumerates the alert condition kinds spec §3/§4.F.
type ConditionType string

const (
	ConditionPriceAbove    ConditionType = "priceAbove"
	ConditionPriceBelow    ConditionType = "priceBelow"
	ConditionPriceChangePct ConditionType = "priceChangePct"
	ConditionVolumeSpike   ConditionType = "volumeSpike"
)

// Direction qualifies a priceChangePct condition.
type Direction string

const (
	DirectionUp  Direction = "up"
	DirectionDown Direction = "down"
	DirectionAny Direction = "any"
)

// AlertCondition is a tagged variant: exactly one ConditionType applies,
// with type-specific fields meaningful only for that type (spec §9,
// "dynamic payload kinds ... map cleanly to tagged variants").
type AlertCondition struct {
	Type           ConditionType `json:"type"`
	Threshold      float64       `json:"threshold"`
	Direction      Direction     `json:"direction,omitempty"`
	TimeWindowSecs int64         `json:"timeWindowSecs,omitempty"`
}

// Alert is a user-owned rule evaluated by the AlertEngine against a
// cached market snapshot.
type Alert struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Platform  Venue          `json:"platform"`
	MarketID  string         `json:"marketId"`
	Condition AlertCondition `json:"condition"`
	Enabled   bool           `json:"enabled"`
	Triggered bool           `json:"triggered"`
	Channel   Channel        `json:"channel,omitempty"`
	ChatID    string         `json:"chatId,omitempty"`
}
