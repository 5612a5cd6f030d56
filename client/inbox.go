package client

import (
	"context"
	"fmt"
)

// ListThreads returns the inbox conversations, most recently active first.
func (c *WanderClient) ListThreads(ctx context.Context) ([]Thread, error) {
	var response struct {
		Threads []Thread `json:"threads"`
	}
	if err := c.getJSON(ctx, c.apiURL("/v1/inbox/threads"), &response); err != nil {
		return nil, err
	}
	return response.Threads, nil
}

// FetchThread returns one conversation with its messages.
func (c *WanderClient) FetchThread(ctx context.Context, threadID int) (Thread, []Message, error) {
	var response struct {
		Thread   Thread    `json:"thread"`
		Messages []Message `json:"messages"`
	}
	if err := c.getJSON(ctx, c.apiURL(fmt.Sprintf("/v1/inbox/threads/%d", threadID)), &response); err != nil {
		return Thread{}, nil, err
	}
	return response.Thread, response.Messages, nil
}

// SendMessage posts a message to a thread and returns it as stored.
func (c *WanderClient) SendMessage(ctx context.Context, threadID int, body string) (Message, error) {
	if body == "" {
		return Message{}, fmt.Errorf("message body cannot be empty")
	}
	payload := struct {
		Body string `json:"body"`
	}{Body: body}

	var message Message
	if err := c.postJSON(ctx, c.apiURL(fmt.Sprintf("/v1/inbox/threads/%d/messages", threadID)), payload, &message); err != nil {
		return Message{}, err
	}
	return message, nil
}
