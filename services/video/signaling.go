package videosvc

import (
	"sync"

	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/realtime"
)

// Call relays WebRTC negotiation for one session's video call. Each call
// owns its broker subscription; callers construct a Call when the call
// screen opens and must Close it on hangup, releasing the subscription
// and clearing the negotiation state.
type Call struct {
	sessionID string
	sessSvc   session.ServiceInterface
	sub       *realtime.Subscription
	closeOnce sync.Once
}

func NewCall(broker *realtime.Broker, sessSvc session.ServiceInterface, sessionID string) *Call {
	sub := broker.Subscribe(func(ch realtime.Change) bool {
		if ch.Table != session.Table {
			return false
		}
		s, ok := ch.Payload.(session.Session)
		return ok && s.ID == sessionID
	})
	return &Call{
		sessionID: sessionID,
		sessSvc:   sessSvc,
		sub:       sub,
	}
}

// Updates delivers the session's change feed, including signaling writes
// made by the other peer. The channel closes on Close.
func (c *Call) Updates() <-chan realtime.Change {
	return c.sub.Events()
}

func (c *Call) SendOffer(sdp string) error {
	_, err := c.sessSvc.UpdateSignaling(c.sessionID, session.SignalingUpdate{Offer: sdp})
	return err
}

func (c *Call) SendAnswer(sdp string) error {
	_, err := c.sessSvc.UpdateSignaling(c.sessionID, session.SignalingUpdate{Answer: sdp})
	return err
}

func (c *Call) AddOfferCandidate(candidate string) error {
	_, err := c.sessSvc.UpdateSignaling(c.sessionID, session.SignalingUpdate{OfferCandidate: candidate})
	return err
}

func (c *Call) AddAnswerCandidate(candidate string) error {
	_, err := c.sessSvc.UpdateSignaling(c.sessionID, session.SignalingUpdate{AnswerCandidate: candidate})
	return err
}

// Close hangs up: the negotiation state is cleared from the session row
// and the subscription released. Safe to call more than once.
func (c *Call) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_, err = c.sessSvc.UpdateSignaling(c.sessionID, session.SignalingUpdate{Clear: true})
		c.sub.Unsubscribe()
	})
	return err
}
