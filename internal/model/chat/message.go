package chat

// Roles for Message.Role.
const (
	RoleUser   = "user"
	RoleSystem = "system"
)

// Message persists a single conversation turn. Timestamps are epoch
// millis and non-decreasing in append order.
//
// IsLocationRequest marks a system message still waiting for the user
// to supply a location; it implies DiseaseInfo is set and WeatherInfo
// is not. Attaching weather clears the flag.
type Message struct {
	ID                string     `json:"id"`
	Role              string     `json:"role"`
	Content           string     `json:"content"`
	Image             string     `json:"image,omitempty"`
	Timestamp         int64      `json:"timestamp"`
	DiseaseInfo       *Diagnosis `json:"diseaseInfo,omitempty"`
	WeatherInfo       *Weather   `json:"weatherInfo,omitempty"`
	IsLocationRequest bool       `json:"isLocationRequest,omitempty"`
}
