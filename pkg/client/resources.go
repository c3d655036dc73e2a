package client

import (
	"encoding/json"

	"github.com/Sternrassler/manifold-client/pkg/richtext"
)

// Market is a Manifold contract. Only commonly used fields are decoded;
// the full object is kept in Raw.
type Market struct {
	ID              string  `json:"id"`
	Slug            string  `json:"slug"`
	Question        string  `json:"question"`
	URL             string  `json:"url"`
	CreatorID       string  `json:"creatorId"`
	CreatorUsername string  `json:"creatorUsername"`
	OutcomeType     string  `json:"outcomeType"`
	Mechanism       string  `json:"mechanism"`
	Probability     float64 `json:"probability"`
	Volume          float64 `json:"volume"`
	IsResolved      bool    `json:"isResolved"`
	Resolution      string  `json:"resolution"`
	CreatedTime     int64   `json:"createdTime"`
	CloseTime       int64   `json:"closeTime"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw object.
func (m *Market) UnmarshalJSON(data []byte) error {
	type alias Market
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Raw = append(json.RawMessage(nil), data...)
	*m = Market(a)
	return nil
}

// User is a Manifold user profile.
type User struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Name          string  `json:"name"`
	AvatarURL     string  `json:"avatarUrl"`
	Balance       float64 `json:"balance"`
	TotalDeposits float64 `json:"totalDeposits"`
	CreatedTime   int64   `json:"createdTime"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw object.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Raw = append(json.RawMessage(nil), data...)
	*u = User(a)
	return nil
}

// Bet is a single trade on a market.
type Bet struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	ContractID  string  `json:"contractId"`
	AnswerID    string  `json:"answerId"`
	Outcome     string  `json:"outcome"`
	Amount      float64 `json:"amount"`
	Shares      float64 `json:"shares"`
	ProbBefore  float64 `json:"probBefore"`
	ProbAfter   float64 `json:"probAfter"`
	CreatedTime int64   `json:"createdTime"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw object.
func (b *Bet) UnmarshalJSON(data []byte) error {
	type alias Bet
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Raw = append(json.RawMessage(nil), data...)
	*b = Bet(a)
	return nil
}

// Comment is a market comment. Content holds the rich-text body.
type Comment struct {
	ID           string            `json:"id"`
	ContractID   string            `json:"contractId"`
	UserID       string            `json:"userId"`
	UserUsername string            `json:"userUsername"`
	ReplyToID    string            `json:"replyToCommentId"`
	Content      richtext.Document `json:"content"`
	CreatedTime  int64             `json:"createdTime"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw object.
func (c *Comment) UnmarshalJSON(data []byte) error {
	type alias Comment
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Raw = append(json.RawMessage(nil), data...)
	*c = Comment(a)
	return nil
}

// PlainText returns the comment body as plain text.
func (c *Comment) PlainText() string {
	return c.Content.Text()
}

// Txn is a mana transaction.
type Txn struct {
	ID          string  `json:"id"`
	Category    string  `json:"category"`
	FromID      string  `json:"fromId"`
	FromType    string  `json:"fromType"`
	ToID        string  `json:"toId"`
	ToType      string  `json:"toType"`
	Amount      float64 `json:"amount"`
	Token       string  `json:"token"`
	CreatedTime int64   `json:"createdTime"`

	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw object.
func (t *Txn) UnmarshalJSON(data []byte) error {
	type alias Txn
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.Raw = append(json.RawMessage(nil), data...)
	*t = Txn(a)
	return nil
}
