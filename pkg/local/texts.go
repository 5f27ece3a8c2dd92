package local

import "time"

var (
	InitialGreeting = NewSet(
		"Welcome to Your Legal AI. I dey here to help you understand law matter in simple English, Pidgin, Hausa, Yoruba or Igbo. How you wan make I help you today?",
	)
	StreamFailed = NewSet(
		"Abeg, network wahala or something go wrong. Try ask again.",
	)
	Offline = NewSet(
		"You are currently offline. Please connect to the internet to chat.",
		NewTrans(Pidgin, "Network no dey. Abeg connect to internet make we fit yarn."),
	)
	LocationRequest = NewSet(
		"I am currently at Lat: %v, Long: %v. Please find a lawyer or legal aid near me.",
	)

	nightOwl      = NewSet("Night Owl")
	goodMorning   = NewSet("Good morning", NewTrans(Yoruba, "E kaaro"), NewTrans(Hausa, "Ina kwana"), NewTrans(Igbo, "Ụtụtụ ọma"))
	goodAfternoon = NewSet("Good afternoon", NewTrans(Yoruba, "E kaasan"), NewTrans(Hausa, "Ina wuni"), NewTrans(Igbo, "Ehihie ọma"))
	goodEvening   = NewSet("Good evening", NewTrans(Yoruba, "E kaale"), NewTrans(Hausa, "Barka da yamma"), NewTrans(Igbo, "Mgbede ọma"))
	goodNight     = NewSet("Good night", NewTrans(Yoruba, "O daaro"), NewTrans(Hausa, "Sai da safe"), NewTrans(Igbo, "Ka chi fo"))
)

// Greeting builds the time-of-day greeting shown as the first message of a new chat.
func Greeting(language Language, at time.Time) string {
	var timeGreeting TextSet
	switch hour := at.Hour(); {
	case hour < 5:
		timeGreeting = nightOwl
	case hour < 12:
		timeGreeting = goodMorning
	case hour < 17:
		timeGreeting = goodAfternoon
	case hour < 22:
		timeGreeting = goodEvening
	default:
		timeGreeting = goodNight
	}
	return timeGreeting.Text(language) + "! " + InitialGreeting.Text(language)
}
