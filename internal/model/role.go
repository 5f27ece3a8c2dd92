package model

type Sender string

const (
	SenderUser  = Sender("user")
	SenderModel = Sender("model")
)

func ParseSender(s string) Sender {
	switch s {
	case "user":
		return SenderUser
	default:
		return SenderModel
	}
}

type Feedback string

const (
	FeedbackNone    = Feedback("")
	FeedbackLike    = Feedback("like")
	FeedbackDislike = Feedback("dislike")
)

func ParseFeedback(s string) (Feedback, bool) {
	switch s {
	case "like":
		return FeedbackLike, true
	case "dislike":
		return FeedbackDislike, true
	default:
		return FeedbackNone, false
	}
}
