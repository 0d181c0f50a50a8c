//
// Date: 2026-02-16
// Copyright (c) 2026. All rights reserved.
//

package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func TestWSDialerSendAndRecv(t *testing.T) {
	received := make(chan string, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(msg)

		_ = conn.WriteMessage(websocket.TextMessage, []byte("~m~5~m~hello"))
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	dialer := &WSDialer{}
	tr, err := dialer.Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer tr.Close()

	if err := tr.Send(context.Background(), "ping"); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	select {
	case got := <-received:
		if got != "ping" {
			t.Errorf("server received %q, want ping", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to receive message")
	}

	select {
	case frame := <-tr.Recv():
		if frame != "~m~5~m~hello" {
			t.Errorf("client received %q, want ~m~5~m~hello", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client to receive message")
	}
}

func TestWSTransportRecvClosesOnServerClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	dialer := &WSDialer{}
	tr, err := dialer.Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer tr.Close()

	select {
	case _, ok := <-tr.Recv():
		if ok {
			t.Error("expected channel to be closed, got a frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recv channel to close")
	}
}

func TestWSTransportCloseIsIdempotent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(50 * time.Millisecond)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	dialer := &WSDialer{}
	tr, err := dialer.Dial(context.Background(), url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Errorf("first close returned error: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("second close returned error: %v", err)
	}
}
