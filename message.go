package postoffice

import (
	"fmt"
	"unicode/utf8"

	"github.com/rbaliyan/postoffice/store"
)

// PlaceholderID is the id a Message carries before the office assigns one.
// A message id is meaningful only after Send has accepted the message.
const PlaceholderID int64 = 1

// Message represents one piece of communication between two users.
//
// A Message is created standalone by the caller and handed to the office
// via Send. Messages returned by office operations are snapshots of mailbox
// state at retrieval time; the office-held record stays authoritative, so
// getters on an older snapshot may return stale values.
type Message struct {
	sender    string
	recipient string
	subject   string
	body      string
	id        int64
	read      bool
}

// NewMessage creates an unsent message.
// Sender and recipient formats are not validated; an unknown recipient is
// only detected at Send time.
func NewMessage(sender, recipient, subject, body string) *Message {
	return &Message{
		sender:    sender,
		recipient: recipient,
		subject:   subject,
		body:      body,
		id:        PlaceholderID,
	}
}

// Sender returns the sender's username.
func (m *Message) Sender() string { return m.sender }

// Recipient returns the recipient's username.
func (m *Message) Recipient() string { return m.recipient }

// Subject returns the message subject.
func (m *Message) Subject() string { return m.subject }

// Body returns the message body.
func (m *Message) Body() string { return m.body }

// ID returns the message id: PlaceholderID until AssignID is called.
func (m *Message) ID() int64 { return m.id }

// IsRead reports whether the message has been read.
func (m *Message) IsRead() bool { return m.read }

// AssignID sets the message id. Send does not call this itself: it returns
// the office-assigned id and leaves syncing the Message to the caller, so
// AssignID may overwrite a previously assigned id without complaint.
func (m *Message) AssignID(id int64) { m.id = id }

// BodyLength returns the length of the body in characters.
func (m *Message) BodyLength() int { return utf8.RuneCountInString(m.body) }

// String renders the message in its fixed multi-line form:
// id, sender, recipient, subject, body.
func (m *Message) String() string {
	return fmt.Sprintf("message number: %d\nfrom: %s\nto: %s\nsubject: %s\n%s",
		m.id, m.sender, m.recipient, m.subject, m.body)
}

// data converts the message into the storage-level creation payload.
func (m *Message) data() store.RecordData {
	return store.RecordData{
		Sender:    m.sender,
		Recipient: m.recipient,
		Subject:   m.subject,
		Body:      m.body,
	}
}

// fromRecord builds a snapshot Message from a storage record.
func fromRecord(rec store.Record) *Message {
	return &Message{
		sender:    rec.Sender,
		recipient: rec.Recipient,
		subject:   rec.Subject,
		body:      rec.Body,
		id:        rec.ID,
		read:      rec.Read,
	}
}

// fromRecords builds snapshot Messages from storage records, keeping order.
func fromRecords(recs []store.Record) []*Message {
	msgs := make([]*Message, len(recs))
	for i, rec := range recs {
		msgs[i] = fromRecord(rec)
	}
	return msgs
}
