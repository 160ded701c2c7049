package session

import (
	"testing"
	"time"
)

// FuzzDecodeRecord exercises the refresh-record decoder with arbitrary inputs.
// Goal: no panics; anything accepted must carry a user id.
func FuzzDecodeRecord(f *testing.F) {
	encoded, err := EncodeRecord(&RefreshRecord{
		UserID:    "user1",
		Email:     "fuzz@cuc.cr",
		UserType:  "estudiante",
		CreatedAt: time.Unix(1700000000, 0),
		ExpiresAt: time.Unix(1700000900, 0),
	})
	if err == nil {
		f.Add(encoded)
	}
	f.Add([]byte{})
	f.Add([]byte("null"))
	f.Add([]byte(`{"userId":""}`))
	f.Add([]byte(`{"userId":1}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := DecodeRecord(data)
		if err != nil {
			return
		}
		if rec == nil || rec.UserID == "" {
			t.Fatal("DecodeRecord accepted a record without user id")
		}
	})
}
