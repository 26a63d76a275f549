package videosvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/profile"
)

var (
	// errors
	ErrNotConnected = errors.New("tutor has not connected the meeting API")
	ErrTokenExpired = errors.New("meeting API token expired and no refresh token is available")
)

// Meeting is a scheduled meeting created on the external meeting API.
type Meeting struct {
	ID       int64  `json:"id"`
	Topic    string `json:"topic"`
	JoinURL  string `json:"join_url"`
	StartURL string `json:"start_url"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// MeetingClient talks to the external meeting API on behalf of tutors.
// OAuth tokens are persisted on the tutor profile.
type MeetingClient struct {
	conf    *core.Config
	profSvc profile.ServiceInterface
	client  *http.Client
	logger  core.Logger

	// mockable in tests
	now func() time.Time
}

func NewMeetingClient(conf *core.Config, profSvc profile.ServiceInterface, logger core.Logger) *MeetingClient {
	return &MeetingClient{
		conf:    conf,
		profSvc: profSvc,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		now:     time.Now,
	}
}

// AuthCodeURL builds the OAuth authorize URL the tutor is redirected to.
// state is echoed back on the callback and must be verified there.
func (mc *MeetingClient) AuthCodeURL(state string) string {
	q := make(url.Values)
	q.Set("response_type", "code")
	q.Set("client_id", mc.conf.Meeting.ClientID)
	q.Set("redirect_uri", mc.conf.Meeting.RedirectURI)
	q.Set("state", state)
	return mc.conf.Meeting.AuthBaseURL + "/authorize?" + q.Encode()
}

// Connect exchanges the authorization code for tokens and stores them on
// the tutor's profile.
func (mc *MeetingClient) Connect(tutorID, code string) error {
	form := make(url.Values)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", mc.conf.Meeting.RedirectURI)

	tok, err := mc.token(form)
	if err != nil {
		return errors.Wrap(err, "exchanging authorization code")
	}
	return mc.storeTokens(tutorID, tok)
}

// accessToken returns a valid access token for the tutor, refreshing it
// first if it has expired.
func (mc *MeetingClient) accessToken(p profile.TutorProfile) (string, error) {
	if !p.MeetingConnected() {
		return "", ErrNotConnected
	}
	if p.MeetingAccessToken != "" && mc.now().Before(p.MeetingTokenExpiry) {
		return p.MeetingAccessToken, nil
	}
	if p.MeetingRefreshToken == "" {
		return "", ErrTokenExpired
	}

	form := make(url.Values)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", p.MeetingRefreshToken)

	tok, err := mc.token(form)
	if err != nil {
		return "", errors.Wrap(err, "refreshing token")
	}
	if err := mc.storeTokens(p.UserID, tok); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (mc *MeetingClient) token(form url.Values) (tokenResponse, error) {
	req, err := http.NewRequest(http.MethodPost, mc.conf.Meeting.AuthBaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, err
	}
	req.SetBasicAuth(mc.conf.Meeting.ClientID, mc.conf.Meeting.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := mc.client.Do(req)
	if err != nil {
		return tokenResponse{}, core.NewTransientError(err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusInternalServerError {
		return tokenResponse{}, core.NewTransientError(errors.Errorf("meeting API status %d", res.StatusCode))
	}
	if res.StatusCode != http.StatusOK {
		return tokenResponse{}, errors.Errorf("meeting API status %d", res.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&tok); err != nil {
		return tokenResponse{}, errors.Wrap(err, "decoding token response")
	}
	return tok, nil
}

func (mc *MeetingClient) storeTokens(tutorID string, tok tokenResponse) error {
	expiry := mc.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return mc.profSvc.SetMeetingTokens(tutorID, tok.AccessToken, tok.RefreshToken, expiry)
}

// CreateMeeting schedules a meeting on the external API for the tutor.
func (mc *MeetingClient) CreateMeeting(tutorID, topic string, startTime time.Time, duration time.Duration) (Meeting, error) {
	p, err := mc.profSvc.GetTutor(tutorID)
	if err != nil {
		return Meeting{}, err
	}
	token, err := mc.accessToken(p)
	if err != nil {
		return Meeting{}, err
	}

	payload := map[string]interface{}{
		"topic":      topic,
		"type":       2, // scheduled meeting
		"start_time": startTime.UTC().Format(time.RFC3339),
		"duration":   int(duration.Minutes()),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Meeting{}, errors.Wrap(err, "encoding meeting payload")
	}

	req, err := http.NewRequest(http.MethodPost, mc.conf.Meeting.APIBaseURL+"/users/me/meetings", strings.NewReader(string(body)))
	if err != nil {
		return Meeting{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := mc.client.Do(req)
	if err != nil {
		return Meeting{}, core.NewTransientError(err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusInternalServerError {
		return Meeting{}, core.NewTransientError(errors.Errorf("meeting API status %d", res.StatusCode))
	}
	if res.StatusCode != http.StatusCreated && res.StatusCode != http.StatusOK {
		return Meeting{}, errors.Errorf("meeting API status %d", res.StatusCode)
	}

	var m Meeting
	if err := json.NewDecoder(res.Body).Decode(&m); err != nil {
		return Meeting{}, errors.Wrap(err, "decoding meeting response")
	}
	mc.logger.Info(fmt.Sprintf("created meeting %d for tutor %s", m.ID, tutorID))
	return m, nil
}
