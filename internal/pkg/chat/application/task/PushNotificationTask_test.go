package task

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guru-chat/internal/infrastructure/logger"
	qport "guru-chat/internal/infrastructure/queue/port"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeServer struct {
	handlers map[string]qport.Handler
}

func (s *fakeServer) Register(taskType string, h qport.Handler) {
	if s.handlers == nil {
		s.handlers = map[string]qport.Handler{}
	}
	s.handlers[taskType] = h
}
func (s *fakeServer) Run(context.Context) error  { return nil }
func (s *fakeServer) Stop(context.Context) error { return nil }

type fakeClient struct {
	tasks []qport.Task
	opts  []qport.EnqueueOption
}

func (c *fakeClient) Enqueue(_ context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	c.tasks = append(c.tasks, t)
	c.opts = append(c.opts, opts...)
	return "id-1", nil
}
func (c *fakeClient) Close() error { return nil }

type fakeGateway struct {
	err  error
	sent []PushNotificationTaskPayload
}

func (g *fakeGateway) Send(_ context.Context, recipientID, text, senderName string) error {
	g.sent = append(g.sent, PushNotificationTaskPayload{RecipientID: recipientID, MessageText: text, SenderDisplayName: senderName})
	return g.err
}

func TestEnqueuePushNotification(t *testing.T) {
	c := &fakeClient{}
	id, err := EnqueuePushNotification(context.Background(), c, PushNotificationTaskPayload{
		RecipientID: "9", MessageText: "Hi", SenderDisplayName: "Ana",
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)

	require.Len(t, c.tasks, 1)
	assert.Equal(t, PushNotificationTaskType, c.tasks[0].Type)
	assert.JSONEq(t, `{"recipientId":"9","messageText":"Hi","senderDisplayName":"Ana"}`, string(c.tasks[0].Payload))
	require.Len(t, c.opts, 1)
	assert.Equal(t, NotificationsQueue, c.opts[0].Queue)
	assert.True(t, c.opts[0].NoRetry)
}

func TestPushNotificationHandler(t *testing.T) {
	srv := &fakeServer{}
	gw := &fakeGateway{}
	RegisterPushNotificationTask(srv, gw)
	h := srv.handlers[PushNotificationTaskType]
	require.NotNil(t, h)

	payload, err := json.Marshal(PushNotificationTaskPayload{RecipientID: "9", MessageText: "Hi", SenderDisplayName: "Ana"})
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), qport.Task{Type: PushNotificationTaskType, Payload: payload}))
	assert.Equal(t, []PushNotificationTaskPayload{{RecipientID: "9", MessageText: "Hi", SenderDisplayName: "Ana"}}, gw.sent)

	gw.err = errors.New("gateway down")
	err = h(context.Background(), qport.Task{Type: PushNotificationTaskType, Payload: payload})
	assert.ErrorIs(t, err, qport.ErrSkipRetry)

	err = h(context.Background(), qport.Task{Type: PushNotificationTaskType, Payload: []byte("{")})
	assert.ErrorIs(t, err, qport.ErrSkipRetry)

	err = h(context.Background(), qport.Task{Type: PushNotificationTaskType, Payload: []byte(`{"messageText":"x"}`)})
	assert.ErrorIs(t, err, qport.ErrSkipRetry)
}
