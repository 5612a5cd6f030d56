package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListThreads(t *testing.T) {
	c := stayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/inbox/threads", r.URL.Path)
		fmt.Fprint(w, `{"threads":[
			{"id":7,"stay_title":"Sunny Loft near the Sagrada Familia","host_name":"Marta","last_message":"The key is in the lockbox.","updated_at":"2026-08-24T18:03:00Z","unread":1}
		]}`)
	})

	threads, err := c.ListThreads(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, "Marta", threads[0].HostName)
	assert.Equal(t, 1, threads[0].Unread)
}

func TestFetchThread(t *testing.T) {
	c := stayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/inbox/threads/7", r.URL.Path)
		fmt.Fprint(w, `{
			"thread":{"id":7,"stay_title":"Sunny Loft near the Sagrada Familia","host_name":"Marta"},
			"messages":[
				{"id":1,"thread_id":7,"sender":"host","body":"Welcome!","sent_at":"2026-08-24T17:00:00Z"},
				{"id":2,"thread_id":7,"sender":"guest","body":"What is the wifi password?","sent_at":"2026-08-24T17:30:00Z"}
			]
		}`)
	})

	thread, messages, err := c.FetchThread(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 7, thread.ID)
	require.Len(t, messages, 2)
	assert.Equal(t, "guest", messages[1].Sender)
}

func TestSendMessage(t *testing.T) {
	c := stayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/inbox/threads/7/messages", r.URL.Path)
		payload, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"body":"running late, there by six"}`, string(payload))
		fmt.Fprint(w, `{"id":3,"thread_id":7,"sender":"guest","body":"running late, there by six","sent_at":"2026-08-25T15:40:00Z"}`)
	})

	message, err := c.SendMessage(context.Background(), 7, "running late, there by six")
	require.NoError(t, err)
	assert.Equal(t, 3, message.ID)
	assert.Equal(t, "guest", message.Sender)
}

func TestSendMessage_EmptyBody(t *testing.T) {
	c := &WanderClient{BaseURL: "http://127.0.0.1:1"}
	_, err := c.SendMessage(context.Background(), 7, "")
	assert.Error(t, err)
}
