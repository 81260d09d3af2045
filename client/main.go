package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/heist/network"
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func short(handle string) string {
	if len(handle) > 8 {
		return handle[:8]
	}
	return handle
}

func printPacket(packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypeJoinResult:
		var r network.JoinResult
		if json.Unmarshal(packet.Data, &r) == nil {
			log.Printf("Joined %s: %s as %s", r.RoomID, r.Status, r.Role)
		}
	case network.MsgTypePost:
		var m network.PostMessage
		if json.Unmarshal(packet.Data, &m) == nil {
			log.Printf("[%s]\n%s", short(m.Handle), m.Content)
		}
	case network.MsgTypeEdit:
		var m network.PostMessage
		if json.Unmarshal(packet.Data, &m) == nil {
			log.Printf("[%s edited]\n%s", short(m.Handle), m.Content)
		}
	case network.MsgTypeHeistEnd:
		var e network.HeistEnd
		if json.Unmarshal(packet.Data, &e) == nil {
			log.Printf("Heist over (%s): floor %d, %d vault(s), %d coins each",
				e.Outcome, e.Floor, e.VaultsObtained, e.PayoutEach)
		}
	case network.MsgTypeError:
		var e network.ErrorMessage
		if json.Unmarshal(packet.Data, &e) == nil {
			log.Printf("Error: %s", e.Error)
		}
	default:
		log.Printf("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
	}
}

func main() {
	addr := flag.String("addr", "localhost:8080", "game server address")
	player := flag.String("player", "", "player id, defaults to the connection id")
	roomID := flag.String("room", "", "heist room to join, empty for quick join")
	create := flag.Bool("create", false, "plan a new heist instead of joining one")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.DecodePacket(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			printPacket(packet)
		}
	}()

	if *create {
		log.Println("Sending Create Heist request...")
		err = send(c, network.MsgTypeCreateHeist, network.CreateRequest{PlayerID: *player})
	} else {
		log.Println("Sending Join Heist request...")
		err = send(c, network.MsgTypeJoinHeist, network.JoinRequest{RoomID: *roomID, PlayerID: *player})
	}
	if err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Client started. Type your answers and press Enter.")

	lines := make(chan string)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			text, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- strings.TrimSpace(text)
		}
	}()

	heartbeat := time.NewTicker(20 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-done:
			return
		case <-heartbeat.C:
			if err := send(c, network.MsgTypeHeartbeat, struct{}{}); err != nil {
				log.Println("Write error:", err)
				return
			}
		case text, ok := <-lines:
			if !ok {
				return
			}
			if text == "" {
				continue
			}
			if err := send(c, network.MsgTypeHeistInput, network.InputMessage{Content: text}); err != nil {
				log.Println("Write error:", err)
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			send(c, network.MsgTypeLeaveHeist, struct{}{})
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
