package domain

import "time"

// PostbackAction identifies what a quick-reply button asks for.
type PostbackAction string

const (
	ActionTweet PostbackAction = "tweet"
	ActionSlack PostbackAction = "slack"
)

// StoredMessage keeps a delivered summary around (24h) so a later
// postback can turn it into a tweet or Slack draft.
type StoredMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
