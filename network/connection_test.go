package network

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestEncodeDecodePacket(t *testing.T) {
	payload := []byte(`{"content":"left"}`)
	raw, err := EncodePacket(MsgTypeHeistInput, payload)
	if err != nil {
		t.Fatalf("EncodePacket failed: %v", err)
	}
	if len(raw) != 4+len(payload) {
		t.Fatalf("Expected %d bytes, got %d", 4+len(payload), len(raw))
	}

	packet, err := DecodePacket(raw)
	if err != nil {
		t.Fatalf("DecodePacket failed: %v", err)
	}
	if packet.MsgID != MsgTypeHeistInput {
		t.Errorf("Expected msg id %d, got %d", MsgTypeHeistInput, packet.MsgID)
	}
	if int(packet.Length) != len(payload) {
		t.Errorf("Expected length %d, got %d", len(payload), packet.Length)
	}
	if !bytes.Equal(packet.Data, payload) {
		t.Errorf("Expected payload %s, got %s", payload, packet.Data)
	}
}

func TestDecodePacket_Short(t *testing.T) {
	cases := [][]byte{
		nil,
		{0, 1, 0},
		{0, 1, 0, 5, 'a', 'b'},
	}
	for _, raw := range cases {
		if _, err := DecodePacket(raw); !errors.Is(err, io.ErrShortBuffer) {
			t.Errorf("Expected ErrShortBuffer for %v, got %v", raw, err)
		}
	}
}

func TestEncodePacket_TooLarge(t *testing.T) {
	if _, err := EncodePacket(MsgTypePost, make([]byte, 1<<16)); !errors.Is(err, ErrPacketTooLarge) {
		t.Errorf("Expected ErrPacketTooLarge, got %v", err)
	}
}

type captureConn struct {
	msgID uint16
	data  []byte
}

func (c *captureConn) Send(msgID uint16, data []byte) error {
	c.msgID, c.data = msgID, data
	return nil
}
func (c *captureConn) Close() error                        { return nil }
func (c *captureConn) RemoteAddr() net.Addr                { return &net.TCPAddr{} }
func (c *captureConn) SetHeartbeat(interval time.Duration) {}
func (c *captureConn) ReadPacket() (*Packet, error)        { return nil, nil }

func TestSendJSON(t *testing.T) {
	conn := &captureConn{}
	if err := SendJSON(conn, MsgTypePost, PostMessage{Handle: "h1", Content: "hello"}); err != nil {
		t.Fatalf("SendJSON failed: %v", err)
	}
	if conn.msgID != MsgTypePost {
		t.Errorf("Expected msg id %d, got %d", MsgTypePost, conn.msgID)
	}
	var msg PostMessage
	if err := json.Unmarshal(conn.data, &msg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if msg.Handle != "h1" || msg.Content != "hello" {
		t.Errorf("Expected h1/hello, got %s/%s", msg.Handle, msg.Content)
	}
}

func TestWSConnection_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewWSConnection(ws)
		defer conn.Close()
		packet, err := conn.ReadPacket()
		if err != nil {
			return
		}
		conn.Send(MsgTypePost, packet.Data)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	client := NewWSConnection(ws)
	defer client.Close()
	client.SetHeartbeat(time.Second)

	if err := client.Send(MsgTypeHeistInput, []byte("down")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	packet, err := client.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket failed: %v", err)
	}
	if packet.MsgID != MsgTypePost || string(packet.Data) != "down" {
		t.Errorf("Expected echo of down as post, got %d %q", packet.MsgID, packet.Data)
	}
}
