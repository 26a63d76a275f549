package videosvc

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	stateSalt = []byte("darasa.services.video.state")
	stateTTL  = 10 * time.Minute

	ErrInvalidState = errors.New("invalid or expired state")
)

// StateFor issues the OAuth state for the authorize URL: an HMAC over the
// tutor id and issue time, so the callback can verify it without any
// server-side storage.
func (mc *MeetingClient) StateFor(tutorID string) string {
	return mc.stateWithTimestamp(tutorID, mc.now().Unix())
}

// VerifyState checks that state was issued for this tutor and is still
// within its TTL.
func (mc *MeetingClient) VerifyState(tutorID, state string) error {
	parts := strings.SplitN(state, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidState
	}
	data, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(parts[0])
	if err != nil {
		return ErrInvalidState
	}
	ts, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return ErrInvalidState
	}

	// check that state has not been tampered with
	if subtle.ConstantTimeCompare([]byte(mc.stateWithTimestamp(tutorID, ts)), []byte(state)) == 0 {
		return ErrInvalidState
	}

	if mc.now().Sub(time.Unix(ts, 0)) > stateTTL {
		return ErrInvalidState
	}
	return nil
}

func (mc *MeetingClient) stateWithTimestamp(tutorID string, ts int64) string {
	tsB32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(strconv.FormatInt(ts, 10)))
	return fmt.Sprintf("%s-%s", tsB32, mc.signState(tutorID, ts))
}

func (mc *MeetingClient) signState(tutorID string, ts int64) string {
	key := sha256.Sum256(append(stateSalt, mc.conf.SecretKey...))
	h := hmac.New(sha256.New, key[:])
	h.Write([]byte(tutorID))
	h.Write([]byte(strconv.FormatInt(ts, 10)))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
