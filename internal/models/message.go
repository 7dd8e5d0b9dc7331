package models

// Message is a short text posted by an account.
type Message struct {
	ID              int64  `json:"message_id"`
	PostedBy        int64  `json:"posted_by"`
	Text            string `json:"message_text"`
	TimePostedEpoch int64  `json:"time_posted_epoch"`
}
