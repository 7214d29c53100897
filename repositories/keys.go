package repositories

import (
	"fmt"
	"strings"
	"time"
)

// Key layout. Every message key embeds a 19-digit zero padded timestamp
// so that lexicographical order is chronological order.
//
//	conv:{conversation}                  conversation record
//	member:{user}:{conversation}         membership index
//	unread:{conversation}:{user}         unread counter (uint64 big endian)
//	last:{conversation}                  last message pointer
//	msg:{conversation}:{ts}:{message}    message record
//	msgid:{message}                      message key index
//	rcpt:{conversation}:{message}:{user} read receipt
//	user:{user}                          account
//	email:{email}                        account id by email
//	avatar:{media}                       user owning an avatar blob
//	media:{media}                        message carrying a media blob

func conversationKey(id string) []byte {
	return []byte("conv:" + id)
}

func memberPrefix(userID string) []byte {
	return []byte("member:" + userID + ":")
}

func memberKey(userID, conversationID string) []byte {
	return append(memberPrefix(userID), conversationID...)
}

func unreadPrefix(conversationID string) []byte {
	return []byte("unread:" + conversationID + ":")
}

func unreadKey(conversationID, userID string) []byte {
	return append(unreadPrefix(conversationID), userID...)
}

func lastKey(conversationID string) []byte {
	return []byte("last:" + conversationID)
}

func messagePrefix(conversationID string) []byte {
	return []byte("msg:" + conversationID + ":")
}

func messageKey(conversationID string, at time.Time, messageID string) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", conversationID, at.UnixNano(), messageID))
}

func messageIndexKey(messageID string) []byte {
	return []byte("msgid:" + messageID)
}

func receiptPrefix(conversationID, messageID string) []byte {
	return []byte("rcpt:" + conversationID + ":" + messageID + ":")
}

func receiptKey(conversationID, messageID, userID string) []byte {
	return append(receiptPrefix(conversationID, messageID), userID...)
}

func userKey(userID string) []byte {
	return []byte("user:" + userID)
}

func emailKey(email string) []byte {
	return []byte("email:" + strings.ToLower(strings.TrimSpace(email)))
}

func avatarKey(ref string) []byte {
	return []byte("avatar:" + ref)
}

func mediaKey(ref string) []byte {
	return []byte("media:" + ref)
}
