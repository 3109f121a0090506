package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"time"
)

// Public widget tokens rotate on a fixed interval and are tied to the
// origin the widget loads from. A token is the HMAC of its rotation bucket
// plus that origin, so the server never stores anything; verification
// accepts the current and the previous bucket to cover clients that fetched
// a token just before rotation.
const widgetTokenRotation = time.Hour

var widgetSecret []byte

func ConfigureWidgetSecret(secret string) {
	widgetSecret = []byte(secret)
}

func IssuePublicToken(now func() time.Time, origin string) string {
	return signBucket(bucketAt(now().UTC()), origin)
}

func VerifyPublicToken(token string, now func() time.Time, origin string) bool {
	if token == "" {
		return false
	}
	bucket := bucketAt(now().UTC())
	if hmacEqual(token, signBucket(bucket, origin)) {
		return true
	}
	return hmacEqual(token, signBucket(bucket-1, origin))
}

func bucketAt(t time.Time) int64 {
	return t.Unix() / int64(widgetTokenRotation/time.Second)
}

func signBucket(bucket int64, origin string) string {
	mac := hmac.New(sha256.New, widgetSecret)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(bucket >> (8 * (7 - i)))
	}
	mac.Write([]byte("widget:"))
	mac.Write(buf[:])
	mac.Write([]byte(":" + origin))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func hmacEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
