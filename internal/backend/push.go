package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rowan/genbridge/internal/domain"
	"github.com/rowan/genbridge/internal/logger"
)

// pushEnvelope is the wire shape of a push channel message. Any message whose
// type is not "job_update" is ignored.
type pushEnvelope struct {
	Type string          `json:"type"`
	Job  json.RawMessage `json:"job"`
}

// PushDialer opens best-effort push connections to the backend. One connection
// is opened per workflow-view lifetime; it is never retried on failure, the
// polling fallback covers the gap.
type PushDialer struct {
	wsURL  string
	logger *logger.Logger
}

// NewPushDialer creates a push dialer for the backend websocket endpoint.
func NewPushDialer(wsURL string, log *logger.Logger) *PushDialer {
	if log == nil {
		log = logger.GetDefault()
	}
	return &PushDialer{wsURL: wsURL, logger: log}
}

// PushSession is one open push connection.
type PushSession struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// Close drops the connection. Safe to call more than once.
func (s *PushSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

// Dial opens a push connection scoped to one workflow and starts a read loop.
// onJob is invoked for every valid job_update frame; onState reports
// connectivity changes (true once on connect, false once when the connection
// drops for any reason). Malformed frames are logged and dropped without
// affecting the connection.
func (d *PushDialer) Dial(ctx context.Context, workflowID string, onJob func(domain.Job), onState func(bool)) (*PushSession, error) {
	u, err := url.Parse(d.wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse push url: %w", err)
	}
	q := u.Query()
	q.Set("workflowId", workflowID)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}

	session := &PushSession{conn: conn}
	log := d.logger.WithField(logger.FieldWorkflowID, workflowID)

	go func() {
		onState(true)
		defer onState(false)
		defer session.Close()

		// Close the socket when the owning view goes away so ReadMessage
		// unblocks.
		go func() {
			<-ctx.Done()
			session.Close()
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					log.WithError(err).Debug("push channel closed")
				}
				return
			}

			var env pushEnvelope
			if err := json.Unmarshal(data, &env); err != nil {
				log.WithError(err).Warn("dropping malformed push frame")
				continue
			}
			if env.Type != "job_update" || len(env.Job) == 0 {
				continue
			}

			var job domain.Job
			if err := json.Unmarshal(env.Job, &job); err != nil {
				log.WithError(err).Warn("dropping malformed job_update payload")
				continue
			}
			onJob(job)
		}
	}()

	return session, nil
}
