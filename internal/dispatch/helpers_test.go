package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/shipbot/internal/testutil"
	"github.com/roach88/shipbot/internal/urbit"
)

const bridgeShip = urbit.Ship("bridge")

// graphFrame builds a graph-store add-nodes frame with one post. The author
// is written verbatim.
func graphFrame(author string, host urbit.Ship, name, text string) string {
	contents, _ := json.Marshal(urbit.Contents{urbit.Text(text)})
	return fmt.Sprintf(`{"graph-update":{"add-nodes":{"resource":{"ship":%q,"name":%q},"nodes":{"/1":{"post":{"author":%q,"index":"/1","time-sent":1622548800000,"contents":%s,"hash":null,"signatures":[]},"children":null}}}}}`,
		host.Name(), name, author, contents)
}

func inviteFrame(host urbit.Ship, name string) string {
	return fmt.Sprintf(`{"invite-update":{"invite":{"term":"groups","uid":"0v1","invite":{"ship":%q,"app":"group-push-hook","resource":{"ship":%q,"name":%q},"recipient":"~bridge","text":""}}}}`,
		host.String(), host.String(), name)
}

const nullInviteFrame = `{"invite-update":{"invite":null}}`

func metadataAddFrame(app, resourcePath string) string {
	return fmt.Sprintf(`{"metadata-update":{"add":{"app-name":%q,"resource":%q,"group":"/ship/~peerY/grp"}}}`, app, resourcePath)
}

// metadataAssociationsFrame builds an associations frame from app/path pairs.
func metadataAssociationsFrame(entries ...[2]string) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf(`"/%s%s":{"app-name":%q,"resource":%q,"group":"/ship/~peerY/grp"}`, e[0], e[1], e[0], e[1])
	}
	return `{"metadata-update":{"associations":{` + strings.Join(parts, ",") + `}}}`
}

// recordingResponder counts calls and answers messages starting with "c ".
type recordingResponder struct {
	mu    sync.Mutex
	calls []urbit.AuthoredMessage
}

func (r *recordingResponder) Respond(msg urbit.AuthoredMessage) (urbit.Message, bool) {
	r.mu.Lock()
	r.calls = append(r.calls, msg)
	r.mu.Unlock()

	words := msg.Words()
	if len(words) == 0 || words[0] != "c" {
		return urbit.Message{}, false
	}
	return urbit.NewMessage().AddText("chart for " + strings.Join(words[1:], " ")), true
}

func (r *recordingResponder) Calls() []urbit.AuthoredMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]urbit.AuthoredMessage(nil), r.calls...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupDispatcher returns an opened dispatcher over a fake transport.
func setupDispatcher(t *testing.T, responder Responder, opts ...Option) (*Dispatcher, *testutil.FakeTransport) {
	t.Helper()
	fake := testutil.NewFakeTransport()
	identity, err := NewIdentity(bridgeShip)
	require.NoError(t, err)

	opts = append([]Option{
		WithLogger(discardLogger()),
		WithTokenGenerator(testutil.NewSequenceTokenGenerator("cycle")),
	}, opts...)
	d := New(fake, identity, responder, opts...)
	require.NoError(t, d.Open(context.Background()))
	fake.Reset()
	return d, fake
}
