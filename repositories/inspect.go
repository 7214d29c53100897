package repositories

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"social-chat/domain/chat"

	"github.com/dgraph-io/badger/v4"
)

// Record is a human readable view of one stored key, used by the inspection tools.
type Record struct {
	Key       string
	Type      string
	Timestamp string
	EntityID  string
	Namespace string
	Detail    string
}

const timestampLayout = "2006-01-02 15:04:05"

// DescribeRecord decodes a raw key/value pair. Password hashes are never rendered.
func DescribeRecord(key string, val []byte) Record {
	parts := strings.Split(key, ":")
	record := Record{
		Key:       key,
		Type:      "RAW",
		Timestamp: "-",
		EntityID:  "-",
		Namespace: "-",
		Detail:    "Size: " + strconv.Itoa(len(val)) + " bytes",
	}
	if len(parts) < 2 {
		return record
	}

	var err error
	switch parts[0] {
	case "conv":
		record.Type = "CONVERSATION"
		record.EntityID = parts[1]
		var conversation chat.Conversation
		conversation, err = decodeConversation(val)
		record.Timestamp = format(conversation.CreatedAt)
		record.Detail = "participants=" + strings.Join(conversation.Participants, ",")
	case "member":
		record.Type = "MEMBER"
		record.Namespace = parts[1]
		record.EntityID = at(parts, 2)
		record.Detail = ""
	case "unread":
		record.Type = "UNREAD"
		record.Namespace = parts[1]
		record.EntityID = at(parts, 2)
		var count uint64
		count, err = decodeCounter(val)
		record.Detail = "count=" + strconv.FormatUint(count, 10)
	case "last":
		record.Type = "LAST"
		record.Namespace = parts[1]
		var pointer lastPointer
		pointer, err = decodeLastPointer(val)
		record.EntityID = pointer.MessageID
		record.Timestamp = format(pointer.UpdatedAt)
		record.Detail = ""
	case "msg":
		var message chat.Message
		message, err = decodeMessage(val)
		record.Type = "MESSAGE"
		if kind := message.Kind(); kind != "" {
			record.Type = strings.ToUpper(string(kind))
		}
		record.Namespace = parts[1]
		record.EntityID = message.ID
		record.Timestamp = format(message.CreatedAt)
		record.Detail = fmt.Sprintf("from=%s %s%s", message.SenderID, message.Content(), message.MediaRef())
	case "msgid":
		record.Type = "INDEX"
		record.EntityID = parts[1]
		record.Detail = string(val)
	case "rcpt":
		record.Type = "RECEIPT"
		record.Namespace = parts[1]
		record.EntityID = at(parts, 2)
		record.Detail = "read_by=" + at(parts, 3)
	case "user":
		record.Type = "USER"
		record.EntityID = parts[1]
		var user User
		user, err = decodeUser(val)
		record.Timestamp = format(user.CreatedAt)
		record.Detail = fmt.Sprintf("%s <%s> roles=%s", user.DisplayName, user.Email, strings.Join(user.Roles, ","))
	case "avatar":
		record.Type = "AVATAR"
		record.Namespace = string(val)
		record.EntityID = strings.Join(parts[1:], ":")
		record.Detail = ""
	case "media":
		record.Type = "MEDIA"
		record.Namespace = string(val)
		record.EntityID = strings.Join(parts[1:], ":")
		record.Detail = ""
	case "email":
		record.Type = "EMAIL"
		record.Namespace = parts[1]
		record.EntityID = string(val)
		record.Detail = ""
	}
	if err != nil {
		record.Detail = "Error: " + err.Error()
	}
	return record
}

// ScanRecords walks every key under prefix in order and stops after limit records when limit is positive.
func ScanRecords(db *badger.DB, prefix string, limit int, fn func(Record)) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		seen := 0
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if limit > 0 && seen == limit {
				return nil
			}
			item := it.Item()
			err := item.Value(func(val []byte) error {
				fn(DescribeRecord(string(item.Key()), val))
				return nil
			})
			if err != nil {
				return err
			}
			seen++
		}
		return nil
	})
}

func at(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return "-"
}

func format(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timestampLayout)
}
