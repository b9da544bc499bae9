package core

import (
	"context"
	"net/http"
)

// Request описывает запрос к удаленному API.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response описывает ответ удаленного API.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Sender отправляет запросы; реализации: сеть и записанные взаимодействия.
type Sender interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// SenderFunc адаптирует функцию к Sender.
type SenderFunc func(ctx context.Context, req *Request) (*Response, error)

func (f SenderFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
