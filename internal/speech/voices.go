package speech

type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender"`
	// Espeak is the espeak-ng voice used when the espeak engine renders this voice.
	Espeak string `json:"-"`
}

// Voices lists the voices advertised by the tts service.
func Voices() []Voice {
	return []Voice{
		{ID: "en_US-lessac-medium", Name: "Lessac (English US)", Language: "en-US", Gender: "female", Espeak: "en-us+f3"},
		{ID: "en_US-ryan-medium", Name: "Ryan (English US)", Language: "en-US", Gender: "male", Espeak: "en-us+m3"},
	}
}
