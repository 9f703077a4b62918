package domain

// Settings belong to a browser profile and are never shared between profiles.
type Settings struct {
	SoundNotifications bool   `json:"soundNotifications"`
	Theme              string `json:"theme"`
}

func DefaultSettings() Settings {
	return Settings{SoundNotifications: true, Theme: "dark"}
}
