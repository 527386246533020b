// Package chat answers help questions with canned responses picked by keyword.
package chat

import (
	"strings"
	"time"

	"github.com/sadhanaschool/backend/core"
)

const defaultReply = "I'm here to help! Ask me about attendance, marks, fees, timetable, or contact information."

type (
	Message struct {
		Message string `json:"message" validate:"required"`
	}

	Reply struct {
		Response  string    `json:"response"`
		Timestamp time.Time `json:"timestamp"`
	}

	topic struct {
		keyword string
		reply   string
	}

	// Bot replies to messages with the answer of the first topic they mention.
	Bot struct {
		topics []topic
	}
)

// NewBot returns a bot answering about attendance, marks, fees, timetable and contact, in that order.
func NewBot(conf *core.Config) *Bot {
	contact := "Reach the school office at " + conf.DefaultFromEmail.Address
	return &Bot{topics: []topic{
		{"attendance", "To view your attendance, check the Attendance section in your dashboard."},
		{"marks", "Your marks and grades are available in the Marks section."},
		{"fees", "Visit the Fees section to check your fee status or make a payment."},
		{"timetable", "Your class timetable is available in the Timetable section."},
		{"contact", contact},
	}}
}

func (b *Bot) Reply(msg Message) Reply {
	text := strings.ToLower(msg.Message)
	reply := Reply{Response: defaultReply, Timestamp: core.NowFunc()}
	for _, t := range b.topics {
		if strings.Contains(text, t.keyword) {
			reply.Response = t.reply
			break
		}
	}
	return reply
}
