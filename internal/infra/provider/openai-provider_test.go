package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-connector/internal/domain/apperrors"

	"github.com/stretchr/testify/require"
)

func TestOpenAIStreamChat_TimeoutEmitsTerminalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Accept the connection and never answer. Drain the request body so
		// the server can detect the client disconnect and cancel r.Context();
		// otherwise server.Close() deadlocks waiting on this handler.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	op := NewOpenAIProvider(newTestLogger(), "test-key", server.URL, 5*time.Second, 150*time.Millisecond)
	deltas := drain(t, op.StreamChat(context.Background(), "gpt-4", nil))

	require.Len(t, deltas, 1)
	require.ErrorIs(t, deltas[0].Err, apperrors.ErrBackendUnavailable)
}
