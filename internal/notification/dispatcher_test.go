package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// stubChannel records deliveries and optionally fails.
type stubChannel struct {
	name string
	err  error

	mu   sync.Mutex
	sent []Summary
}

func (c *stubChannel) Name() string { return c.name }

func (c *stubChannel) Send(_ context.Context, summary Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, summary)
	return nil
}

func (c *stubChannel) deliveries() []Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Summary{}, c.sent...)
}

type DispatcherSuite struct {
	suite.Suite
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherSuite))
}

func (s *DispatcherSuite) TestDispatch() {
	summary := Summary{OperationKind: "register", Total: 3, Successful: 2, Failed: 1}

	s.Run("fans out to every channel", func() {
		email := &stubChannel{name: "email"}
		slack := &stubChannel{name: "slack"}
		d := NewDispatcher([]Channel{email, slack})

		d.Dispatch(context.Background(), summary)

		s.Require().Len(email.deliveries(), 1)
		s.Require().Len(slack.deliveries(), 1)
		s.Equal(summary, email.deliveries()[0])
	})

	s.Run("one failing channel does not block the others", func() {
		broken := &stubChannel{name: "email", err: errors.New("smtp refused")}
		slack := &stubChannel{name: "slack"}
		teams := &stubChannel{name: "teams"}
		d := NewDispatcher([]Channel{broken, slack, teams})

		d.Dispatch(context.Background(), summary)

		s.Len(slack.deliveries(), 1)
		s.Len(teams.deliveries(), 1)
	})

	s.Run("no channels is a no-op", func() {
		d := NewDispatcher(nil)
		d.Dispatch(context.Background(), summary)
	})
}

func (s *DispatcherSuite) TestEmailChannel() {
	var gotFrom, gotTo, gotSubject, gotBody string
	send := func(_ context.Context, from, to, subject, body string) error {
		gotFrom, gotTo, gotSubject, gotBody = from, to, subject, body
		return nil
	}
	ch := NewEmailChannel("noreply@ecotrace.io", "ops@ecotrace.io", send)

	err := ch.Send(context.Background(), Summary{
		OperationKind: "recycle",
		Total:         10,
		Successful:    9,
		Failed:        1,
		Duration:      1500 * time.Millisecond,
	})
	s.Require().NoError(err)
	s.Equal("noreply@ecotrace.io", gotFrom)
	s.Equal("ops@ecotrace.io", gotTo)
	s.Contains(gotSubject, "recycle")
	s.Contains(gotSubject, "9 successful")
	s.Contains(gotBody, "Failed: 1")
	s.Contains(gotBody, "1.5s")
}

func TestSMTPSenderUnreachableRelay(t *testing.T) {
	send := NewSMTPSender("127.0.0.1:1", "", "")
	err := send(context.Background(), "noreply@ecotrace.io", "ops@ecotrace.io", "subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp send")
}

func TestSummaryDurationMarshalsAsMilliseconds(t *testing.T) {
	body, err := json.Marshal(Summary{OperationKind: "register", Total: 2, Duration: 2500 * time.Millisecond})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.EqualValues(t, 2500, raw["duration_ms"])
}

func TestWebhookChannel(t *testing.T) {
	summary := Summary{OperationKind: "sanitize", Total: 5, Successful: 5}

	t.Run("posts JSON payload", func(t *testing.T) {
		var gotContentType string
		var gotBody []byte
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotContentType = r.Header.Get("Content-Type")
			buf := make([]byte, r.ContentLength)
			_, _ = r.Body.Read(buf)
			gotBody = buf
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		ch := NewSlackChannel(srv.URL)
		require.NoError(t, ch.Send(context.Background(), summary))
		assert.Equal(t, "application/json", gotContentType)
		assert.Contains(t, string(gotBody), "sanitize")
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		ch := NewTeamsChannel(srv.URL)
		err := ch.Send(context.Background(), summary)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("unreachable endpoint is an error", func(t *testing.T) {
		ch := NewSlackChannel("http://127.0.0.1:1/webhook")
		assert.Error(t, ch.Send(context.Background(), summary))
	})
}
